package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/paydesk/internal/app"
	"github.com/noah-isme/paydesk/internal/health"
	"github.com/noah-isme/paydesk/internal/obs"
)

const shutdownGrace = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP front end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if port, _ := cmd.Flags().GetString("port"); port != "" {
				cfg.Port = port
			}
			ctx := cmd.Context()

			obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
			metrics := obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBuckets), nil)

			tracing := cfg.TracingEnabled
			if tracing {
				shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
					ServiceName:   "paydesk",
					Endpoint:      cfg.OTLPEndpoint,
					Exporter:      cfg.TracingExporter,
					SamplingRatio: cfg.TracingSampling,
					Environment:   cfg.AppEnv,
				})
				if err != nil {
					logger.Error().Err(err).Msg("initialise tracing")
					tracing = false
				} else {
					defer func() {
						if err := shutdown(context.Background()); err != nil {
							logger.Error().Err(err).Msg("shutdown tracer")
						}
					}()
				}
			}

			deps, cleanup, err := app.NewDependencies(ctx, cfg, logger, true)
			defer cleanup()
			if err != nil {
				return err
			}
			handler, err := app.NewRouter(deps, app.RouterOptions{Metrics: metrics, Tracing: tracing})
			if err != nil {
				return usageError{err}
			}

			srv := &http.Server{
				Addr:              cfg.HTTPAddr(),
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}
			serverErrors := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", srv.Addr).Str("frappe", deps.Frappe.BaseURL()).Bool("redis", deps.Redis != nil).Msg("server starting")
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			health.SetReady(false)
			logger.Info().Msg("server draining")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("graceful shutdown incomplete")
				return srv.Close()
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides PORT)")
	return cmd
}
