package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/api"
	"github.com/sells-group/profile-cli/internal/metrics"
	"github.com/sells-group/profile-cli/internal/profile"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the profile HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := cfg.Server.Port
		if servePort != 0 {
			port = servePort
		}
		cfg.Server.Port = port
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		mx := metrics.New()
		orch, err := newOrchestrator(cfg, mx)
		if err != nil {
			return err
		}
		sessions := profile.NewSessions(st, milliseconds(cfg.Session.DebounceMs))
		jobs := newManager(cfg, mx)

		deps := api.Deps{
			Sessions: sessions,
			Jobs:     jobs,
			Enricher: orch,
			Runs:     st,
			Metrics:  mx,
		}
		if breaches := newBreachClient(cfg); breaches != nil {
			deps.Breaches = breaches
		}

		srv := &http.Server{
			Addr: fmt.Sprintf(":%d", port),
			Handler: api.New(deps,
				api.WithMaxUpload(int64(cfg.Extraction.MaxUploadMB)<<20),
				api.WithCORSOrigins(cfg.Server.CORSOrigins),
				api.WithEnrichTimeout(seconds(cfg.Enrichment.TimeoutSecs)),
			).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		zap.L().Info("starting server", zap.Int("port", port))
		serveErr := api.Serve(ctx, srv)

		// Settle in-flight work and persist every open profile.
		drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := jobs.Shutdown(drainCtx); err != nil {
			zap.L().Warn("extraction jobs did not drain", zap.Error(err))
		}
		if err := sessions.CloseAll(drainCtx); err != nil {
			zap.L().Error("flush profiles on shutdown", zap.Error(err))
		}
		return serveErr
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
