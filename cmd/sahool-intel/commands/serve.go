package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/kafaat/sahool-intel/pkg/config"
	"github.com/kafaat/sahool-intel/pkg/server"
)

func newServeCommand(version string) *cobra.Command {
	var (
		addr  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the field intelligence HTTP API",
		Long: `Run the HTTP API server.

Endpoints:
  GET    /v1/fields/{field_id}/intelligence   unified intelligence snapshot
  DELETE /v1/fields/{field_id}/intelligence   invalidate cached snapshot
  POST   /v1/fields/{field_id}/schedule       build a daily work schedule
  GET    /v1/health                           service and engine health
  GET    /metrics                             Prometheus metrics`,
		Example: `  # Serve with defaults
  sahool-intel serve

  # Serve on a custom address with config hot-reload
  sahool-intel serve --addr :9090 --config sahool.yaml --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.shutdown(context.Background())

			handler, err := server.New(server.Config{
				Orchestrator: a.orch,
				Scheduler:    a.scheduler,
				Logger:       a.logger,
				Metrics:      a.metrics,
				Version:      version,
			})
			if err != nil {
				return err
			}

			if addr == "" {
				addr = a.cfg.Server.Addr()
			}
			srv := &http.Server{
				Addr:         addr,
				Handler:      handler,
				ReadTimeout:  a.cfg.Server.ReadTimeout.Std(),
				WriteTimeout: a.cfg.Server.WriteTimeout.Std(),
			}

			if watch {
				path := resolveConfigPath()
				if path == "" {
					return fmt.Errorf("--watch requires --config")
				}
				watcher, err := config.NewWatcher(path, a.logger, func(cfg *config.Config) {
					// Listen address and cache backend need a restart; log so
					// the operator knows the reload was partial.
					a.logger.Info("configuration change detected, restart to apply server and cache settings")
				})
				if err != nil {
					return err
				}
				defer watcher.Close()
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.WithField("addr", addr).Info("http server listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-cmd.Context().Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				a.logger.Info("shutting down http server")
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "hot-reload configuration on change")

	return cmd
}
