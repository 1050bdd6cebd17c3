package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/greystones/roster/internal/config"
	"github.com/greystones/roster/pkg/core/engine"
	"github.com/greystones/roster/pkg/core/model"
	"github.com/greystones/roster/pkg/core/services"
	"github.com/greystones/roster/pkg/export"
	"github.com/greystones/roster/pkg/handlers"
	"github.com/greystones/roster/pkg/postgres"
	"github.com/greystones/roster/pkg/utils/logging"
)

// App holds the application dependencies
type App struct {
	cfg    *config.Config
	store  *postgres.Store
	logger *zap.Logger
	opts   engine.Options
	ctx    context.Context
}

var (
	env string
	app *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "roster",
		Short: "Greystones roster CLI - Generate and manage shift schedules",
		Long:  `A CLI tool for generating deterministic multi-week shift schedules, locking assignments and regenerating around them.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil && app.logger != nil {
				app.logger.Sync()
			}
			if app != nil && app.store != nil {
				app.store.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "dev", "Environment name used for log file prefixes")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(regenerateCmd())
	rootCmd.AddCommand(listRunsCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config and the run store. The store is optional:
// commands that persist runs fail with a clear error when DATABASE_URL is
// not configured.
func initApp() error {
	var err error
	app = &App{
		ctx: context.Background(),
	}

	app.logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.logger.Info("Starting application", zap.String("environment", env))

	app.cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.logger.Debug("Configuration loaded successfully")

	app.opts = engine.DefaultOptions()
	if app.cfg.Engine.MinRestHours > 0 {
		app.opts.MinRestHours = app.cfg.Engine.MinRestHours
	}
	if app.cfg.Engine.MaxConsecutiveDays > 0 {
		app.opts.MaxConsecutiveDays = app.cfg.Engine.MaxConsecutiveDays
	}

	if app.cfg.DatabaseURL != "" {
		app.logger.Info("Connecting to database")
		app.store, err = postgres.NewStore(app.ctx, app.cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := app.store.RunMigrations(app.ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		app.logger.Info("Database initialized successfully")
	} else {
		app.logger.Debug("No DATABASE_URL configured, runs will not be persisted")
	}

	return nil
}

func requireStore() (services.RunStore, error) {
	if app.store == nil {
		return nil, fmt.Errorf("no database configured - set DATABASE_URL or databaseURL in roster_config.yaml")
	}
	return app.store, nil
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <request.json>",
		Short: "Generate a schedule from a request file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			outPath, _ := cmd.Flags().GetString("out")

			req, err := readRequest(args[0])
			if err != nil {
				return err
			}

			var store services.RunStore
			if app.store != nil {
				store = app.store
			}

			result, err := services.GenerateSchedule(app.ctx, store, app.logger, req, app.opts, dryRun)
			if err != nil {
				return err
			}

			printResult(result)
			return writeOut(outPath, result.Result)
		},
	}

	cmd.Flags().Bool("dry-run", false, "Run without saving to the database")
	cmd.Flags().String("out", "", "Write the assignments CSV to this path")

	return cmd
}

func regenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regenerate <run_id> [lock_id...]",
		Short: "Regenerate a run keeping the named assignments fixed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			outPath, _ := cmd.Flags().GetString("out")

			store, err := requireStore()
			if err != nil {
				return err
			}

			result, err := services.RegenerateSchedule(app.ctx, store, app.logger, args[0], args[1:], app.opts, dryRun)
			if err != nil {
				return err
			}

			printResult(result)
			return writeOut(outPath, result.Result)
		},
	}

	cmd.Flags().Bool("dry-run", false, "Run without saving to the database")
	cmd.Flags().String("out", "", "Write the assignments CSV to this path")

	return cmd
}

func listRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listRuns",
		Short: "List all persisted schedule runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireStore(); err != nil {
				return err
			}

			runs, err := app.store.ListRuns(app.ctx)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			fmt.Printf("\nFound %d runs:\n\n", len(runs))
			for _, run := range runs {
				fmt.Printf("- %s  start=%s weeks=%d locked=%d created=%s\n",
					run.ID,
					run.PeriodStart,
					run.Weeks,
					len(run.LockedIDs),
					run.CreatedAt.Format("2006-01-02 15:04"),
				)
			}

			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := requireStore()
			if err != nil {
				return err
			}

			h := &handlers.Handler{
				Store:  store,
				Logger: app.logger,
				Opts:   app.opts,
			}

			app.logger.Info("Starting HTTP server", zap.String("addr", app.cfg.ListenAddr))
			return h.Router().Run(app.cfg.ListenAddr)
		},
	}
}

func readRequest(path string) (*model.ScheduleRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}

	var req model.ScheduleRequest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("failed to parse request file: %w", err)
	}

	return &req, nil
}

func printResult(result *services.GenerateResult) {
	fmt.Printf("\nRun %s\n\n", result.RunID)
	fmt.Printf("Assignments: %d\n", len(result.Result.Assignments))
	fmt.Printf("Violations:  %d\n", len(result.Result.Violations))
	if result.Saved {
		fmt.Println("Saved:       yes")
	} else {
		fmt.Println("Saved:       no")
	}

	if len(result.Result.Violations) > 0 {
		fmt.Println("\nViolations:")
		for _, v := range result.Result.Violations {
			line := fmt.Sprintf("  %s %s", v.Date, v.Kind)
			if v.EmployeeID != "" {
				line += " " + v.EmployeeID
			}
			fmt.Printf("%s: %s\n", line, v.Detail)
		}
	}
	fmt.Println()
}

func writeOut(path string, result *model.ScheduleResult) error {
	if path == "" {
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := export.WriteCSV(f, result); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", path)
	return nil
}
