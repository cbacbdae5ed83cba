package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/enrich"
	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/profile"
	"github.com/sells-group/profile-cli/internal/store"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <subject>",
	Short: "Run every enrichment task group for a stored subject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("enrich"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		orch, err := newOrchestrator(cfg, nil)
		if err != nil {
			return err
		}

		result, err := enrichSubject(ctx, st, orch, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Summary)
		for _, f := range result.Failures {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s: %s (%s)\n", f.Task, f.Item, f.Message, f.Code)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}

// enrichSubject runs the orchestrator against a stored subject, persists the
// enriched profile and records the run.
func enrichSubject(ctx context.Context, st store.Store, orch *enrich.Orchestrator, subjectID string) (model.EnrichmentRunResult, error) {
	sessions := profile.NewSessions(st, 0)
	sess, err := sessions.Open(ctx, subjectID)
	if err != nil {
		return model.EnrichmentRunResult{}, err
	}

	runCtx := ctx
	if cfg != nil && cfg.Enrichment.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, seconds(cfg.Enrichment.TimeoutSecs))
		defer cancel()
	}

	result := orch.RunAll(runCtx, sess.Current(), func(update func(model.Profile) model.Profile) {
		sess.Apply(update)
	})

	// Persist even when the run was cut short.
	if err := sessions.Close(context.WithoutCancel(ctx), subjectID); err != nil {
		return result, eris.Wrapf(err, "save subject %s", subjectID)
	}
	if _, err := st.RecordRun(context.WithoutCancel(ctx), subjectID, result); err != nil {
		zap.L().Warn("record enrichment run", zap.String("subject", subjectID), zap.Error(err))
	}
	return result, nil
}
