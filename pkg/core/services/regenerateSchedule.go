package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greystones/roster/pkg/core/engine"
)

// RegenerateSchedule replays the locked assignments of a prior run and
// rebuilds everything else, producing and persisting a new run. The prior run
// is left untouched. If dryRun is true the new run is not saved.
func RegenerateSchedule(
	ctx context.Context,
	store RunStore,
	logger *zap.Logger,
	priorRunID string,
	lockedIDs []string,
	opts engine.Options,
	dryRun bool,
) (*GenerateResult, error) {
	logger.Debug("Starting regenerateSchedule",
		zap.String("prior_run_id", priorRunID),
		zap.Int("locked", len(lockedIDs)),
		zap.Bool("dry_run", dryRun))

	req, prior, err := LoadRun(ctx, store, priorRunID)
	if err != nil {
		return nil, err
	}

	logger.Info("Running scheduling engine with locks",
		zap.String("prior_run_id", priorRunID),
		zap.Int("locked", len(lockedIDs)))
	result, err := engine.Regenerate(req, prior, lockedIDs, opts)
	if err != nil {
		return nil, fmt.Errorf("regeneration failed: %w", err)
	}

	result.RunID = uuid.New().String()

	logger.Info("Regeneration completed",
		zap.String("run_id", result.RunID),
		zap.Int("assignments", len(result.Assignments)),
		zap.Int("violations", len(result.Violations)))

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
