package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alohacamp/leadcheck/internal/runner"
)

var (
	checkLimit   int
	checkStartID int64
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a duplicate-check batch over eligible leads",
	Long:  "Fetches leads with a validated email and no prior verdict, checks each against HubSpot and the property directory, and writes the verdict back.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		checker, err := initChecker()
		if err != nil {
			return err
		}

		limit := checkLimit
		if limit == 0 {
			limit = cfg.Batch.Limit
		}

		r := runner.New(st, checker, runner.Options{
			Concurrency: cfg.Batch.MaxConcurrent,
			Pace:        time.Duration(cfg.Batch.PaceMilliseconds) * time.Millisecond,
		})

		run, err := r.Run(ctx, limit, checkStartID)
		if err != nil {
			return eris.Wrap(err, "run batch")
		}

		zap.L().Info("run recorded",
			zap.String("run_id", run.ID),
			zap.Int("leads_processed", run.Attempted),
			zap.Int("updated_count", run.Updated),
			zap.Int("errors", run.Errors),
		)
		return nil
	},
}

func init() {
	checkCmd.Flags().IntVar(&checkLimit, "limit", 0, "max number of leads to process (default from config)")
	checkCmd.Flags().Int64Var(&checkStartID, "start-id", 0, "resume from this lead id")
	rootCmd.AddCommand(checkCmd)
}
