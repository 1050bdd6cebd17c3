package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greystones/roster/pkg/core/engine"
	"github.com/greystones/roster/pkg/core/model"
	"github.com/greystones/roster/pkg/db"
)

// RunStore defines the database operations needed by the scheduling services
type RunStore interface {
	InsertRun(ctx context.Context, run *db.ScheduleRun) error
	GetRun(ctx context.Context, id string) (*db.ScheduleRun, error)
}

// GenerateResult contains the outcome of a generation run
type GenerateResult struct {
	RunID  string
	Result *model.ScheduleResult
	Saved  bool
}

// GenerateSchedule validates the request, runs the scheduling engine and
// persists the run. If dryRun is true or store is nil the run is not saved.
func GenerateSchedule(
	ctx context.Context,
	store RunStore,
	logger *zap.Logger,
	req *model.ScheduleRequest,
	opts engine.Options,
	dryRun bool,
) (*GenerateResult, error) {
	logger.Debug("Starting generateSchedule",
		zap.String("period_start", req.Period.StartDate),
		zap.Int("weeks", req.Period.Weeks),
		zap.Int("employees", len(req.Employees)),
		zap.Bool("dry_run", dryRun))

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schedule request: %w", err)
	}

	logger.Info("Running scheduling engine")
	result, err := engine.Generate(req, opts)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	result.RunID = uuid.New().String()

	logger.Info("Generation completed",
		zap.String("run_id", result.RunID),
		zap.Int("assignments", len(result.Assignments)),
		zap.Int("violations", len(result.Violations)))

	for _, v := range result.Violations {
		logger.Warn("Constraint violation",
			zap.String("kind", string(v.Kind)),
			zap.String("date", v.Date),
			zap.String("employee_id", v.EmployeeID),
			zap.String("detail", v.Detail))
	}

	saved := false
	if store != nil && !dryRun {
		if err := saveRun(ctx, store, req, result); err != nil {
			return nil, err
		}
		saved = true
		logger.Info("Run saved", zap.String("run_id", result.RunID))
	} else if dryRun {
		logger.Info("Dry run mode - run not saved")
	}

	return &GenerateResult{
		RunID:  result.RunID,
		Result: result,
		Saved:  saved,
	}, nil
}

// LoadRun fetches a persisted run and decodes its request and result
func LoadRun(ctx context.Context, store RunStore, runID string) (*model.ScheduleRequest, *model.ScheduleResult, error) {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch run %s: %w", runID, err)
	}

	var req model.ScheduleRequest
	if err := json.Unmarshal(run.Request, &req); err != nil {
		return nil, nil, fmt.Errorf("failed to decode stored request for run %s: %w", runID, err)
	}

	var result model.ScheduleResult
	if err := json.Unmarshal(run.Result, &result); err != nil {
		return nil, nil, fmt.Errorf("failed to decode stored result for run %s: %w", runID, err)
	}

	return &req, &result, nil
}

func saveRun(ctx context.Context, store RunStore, req *model.ScheduleRequest, result *model.ScheduleResult) error {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	resJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	run := &db.ScheduleRun{
		ID:          result.RunID,
		PeriodStart: req.Period.StartDate,
		Weeks:       req.Period.Weeks,
		Request:     reqJSON,
		Result:      resJSON,
		LockedIDs:   result.LockedIDs,
	}
	if err := store.InsertRun(ctx, run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}
