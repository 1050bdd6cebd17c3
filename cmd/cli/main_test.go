package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRequestFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "request.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadRequest(t *testing.T) {
	path := writeRequestFile(t, `{"period":{"start_date":"2025-07-07","weeks":1}}`)

	req, err := readRequest(path)
	require.NoError(t, err)
	assert.Equal(t, "2025-07-07", req.Period.StartDate)
	assert.Equal(t, 1, req.Period.Weeks)
}

func TestReadRequest_RejectsUnknownFields(t *testing.T) {
	path := writeRequestFile(t, `{"period":{"start_date":"2025-07-07","weeks":1},"coverge":{}}`)

	_, err := readRequest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}

func TestReadRequest_MissingFile(t *testing.T) {
	_, err := readRequest(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read request file")
}
