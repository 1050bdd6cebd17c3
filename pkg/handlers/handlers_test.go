package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greystones/roster/pkg/core/engine"
	"github.com/greystones/roster/pkg/core/model"
	"github.com/greystones/roster/pkg/db"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunStore struct {
	runs map[string]*db.ScheduleRun
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{runs: make(map[string]*db.ScheduleRun)}
}

func (s *fakeRunStore) InsertRun(_ context.Context, run *db.ScheduleRun) error {
	s.runs[run.ID] = run
	return nil
}

func (s *fakeRunStore) GetRun(_ context.Context, id string) (*db.ScheduleRun, error) {
	run, ok := s.runs[id]
	if !ok {
		return nil, db.ErrRunNotFound
	}
	return run, nil
}

func newTestHandler() (*Handler, *fakeRunStore) {
	store := newFakeRunStore()
	return &Handler{
		Store:  store,
		Logger: zap.NewNop(),
		Opts:   engine.Options{},
	}, store
}

func requestBody(t *testing.T) []byte {
	t.Helper()
	req := model.ScheduleRequest{
		Period: model.Period{StartDate: "2025-07-07", Weeks: 1},
		SeasonRules: model.SeasonRules{
			VictoriaDay: "2025-05-19",
			June30:      "2025-06-30",
			LabourDay:   "2025-09-01",
			Oct31:       "2025-10-31",
		},
		Hours: model.Hours{
			Greystones: model.LocationHours{Start: "09:00", End: "17:00"},
		},
		Coverage: model.Coverage{
			GreystonesWeekdayStaff: 1,
			GreystonesWeekendStaff: 1,
		},
		LeadershipRules: model.LeadershipRules{
			WeekendTeamLeadersIfManagerOff: 1,
		},
		Employees: []model.Employee{
			{
				ID:              "e1",
				Name:            "Avery",
				Roles:           []model.Role{model.RoleStoreClerk},
				MaxHoursPerWeek: 40,
				PriorityTier:    model.TierA,
				Availability: map[string][]string{
					"mon": {"09:00-17:00"}, "tue": {"09:00-17:00"},
					"wed": {"09:00-17:00"}, "thu": {"09:00-17:00"},
					"fri": {"09:00-17:00"}, "sat": {"09:00-17:00"},
					"sun": {"09:00-17:00"},
				},
			},
		},
	}
	body, err := json.Marshal(&req)
	require.NoError(t, err)
	return body
}

func doRequest(h *Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	h.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler()

	w := doRequest(h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGenerate_ReturnsResultAndSaves(t *testing.T) {
	h, store := newTestHandler()

	w := doRequest(h, http.MethodPost, "/api/generate", requestBody(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result model.ScheduleResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.NotEmpty(t, result.RunID)
	assert.Len(t, result.Assignments, 7)
	assert.Contains(t, store.runs, result.RunID)
}

func TestGenerate_DryRunDoesNotSave(t *testing.T) {
	h, store := newTestHandler()

	w := doRequest(h, http.MethodPost, "/api/generate?dry_run=true", requestBody(t))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, store.runs)
}

func TestGenerate_UnknownFieldRejected(t *testing.T) {
	h, _ := newTestHandler()

	var payload map[string]any
	require.NoError(t, json.Unmarshal(requestBody(t), &payload))
	payload["coverge"] = map[string]any{"greystones_weekday_staff": 2}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	w := doRequest(h, http.MethodPost, "/api/generate", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown field")
}

func TestRegenerate_UnknownFieldRejected(t *testing.T) {
	h, _ := newTestHandler()

	w := doRequest(h, http.MethodPost, "/api/generate", requestBody(t))
	require.Equal(t, http.StatusOK, w.Code)
	var first model.ScheduleResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))

	body := []byte(`{"loked_ids":["a1"]}`)
	w = doRequest(h, http.MethodPost, "/api/runs/"+first.RunID+"/regenerate", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown field")
}

func TestGenerate_MalformedJSON(t *testing.T) {
	h, _ := newTestHandler()

	w := doRequest(h, http.MethodPost, "/api/generate", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerate_InvalidRequest(t *testing.T) {
	h, _ := newTestHandler()

	var req model.ScheduleRequest
	require.NoError(t, json.Unmarshal(requestBody(t), &req))
	req.Employees[0].MinHoursPerWeek = 50
	body, err := json.Marshal(&req)
	require.NoError(t, err)

	w := doRequest(h, http.MethodPost, "/api/generate", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "min_hours_per_week")
}

func TestGetRun(t *testing.T) {
	h, _ := newTestHandler()

	w := doRequest(h, http.MethodPost, "/api/generate", requestBody(t))
	require.Equal(t, http.StatusOK, w.Code)
	var result model.ScheduleResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	w = doRequest(h, http.MethodGet, "/api/runs/"+result.RunID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var fetched model.ScheduleResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, result.RunID, fetched.RunID)
	assert.Len(t, fetched.Assignments, 7)
}

func TestGetRun_NotFound(t *testing.T) {
	h, _ := newTestHandler()

	w := doRequest(h, http.MethodGet, "/api/runs/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegenerate_LocksHeldAcrossRuns(t *testing.T) {
	h, _ := newTestHandler()

	w := doRequest(h, http.MethodPost, "/api/generate", requestBody(t))
	require.Equal(t, http.StatusOK, w.Code)
	var first model.ScheduleResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))

	body, err := json.Marshal(map[string][]string{"locked_ids": {first.Assignments[0].ID}})
	require.NoError(t, err)
	w = doRequest(h, http.MethodPost, "/api/runs/"+first.RunID+"/regenerate", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var second model.ScheduleResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, []string{first.Assignments[0].ID}, second.LockedIDs)
}

func TestRegenerate_UnknownLockIsConflict(t *testing.T) {
	h, _ := newTestHandler()

	w := doRequest(h, http.MethodPost, "/api/generate", requestBody(t))
	require.Equal(t, http.StatusOK, w.Code)
	var first model.ScheduleResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))

	body, err := json.Marshal(map[string][]string{"locked_ids": {"bogus-lock"}})
	require.NoError(t, err)
	w = doRequest(h, http.MethodPost, "/api/runs/"+first.RunID+"/regenerate", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "bogus-lock")
}

func TestRegenerate_UnknownRunIsNotFound(t *testing.T) {
	h, _ := newTestHandler()

	body, err := json.Marshal(map[string][]string{"locked_ids": {}})
	require.NoError(t, err)
	w := doRequest(h, http.MethodPost, "/api/runs/missing/regenerate", body)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportCSV(t *testing.T) {
	h, _ := newTestHandler()

	w := doRequest(h, http.MethodPost, "/api/generate", requestBody(t))
	require.Equal(t, http.StatusOK, w.Code)
	var result model.ScheduleResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	w = doRequest(h, http.MethodGet, "/api/runs/"+result.RunID+"/export.csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), result.RunID)

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "date,location,block,start,end,employee_id,role,source", lines[0])
	assert.Contains(t, lines[1], "2025-07-07,Greystones,floor")
}
