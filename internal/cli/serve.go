package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/spf13/cobra"
	"github.com/wesellis/pulse-activity-tracker/internal/api"
)

var (
	serveAddr      string
	serveNoRebuild bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with periodic pattern rebuilds",
	Long: `Serve the decision API over HTTP and rebuild the pattern index in the
background every patterns.rebuild_interval.

Endpoints:
  GET  /health
  GET  /decision
  GET  /suggestions
  POST /compensation
  POST /completions
  POST /patterns/rebuild`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Planner == nil {
			return fmt.Errorf("planner not initialized")
		}

		addr := serveAddr
		if !cmd.Flags().Changed("addr") && Config != nil && Config.APIAddr != "" {
			addr = Config.APIAddr
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log := logger().WithField("component", "serve")

		s := &api.Server{Planner: Planner, Log: logger()}
		if Rebuilder != nil {
			s.Rebuilder = Rebuilder
		}
		if TodoStore != nil {
			s.Todos = TodoStore
		}

		rebuildDone := make(chan error, 1)
		if Rebuilder != nil && !serveNoRebuild {
			interval := time.Hour
			if Config != nil && Config.Patterns.RebuildInterval > 0 {
				interval = Config.Patterns.RebuildInterval
			}
			go func() { rebuildDone <- Rebuilder.Run(ctx, interval) }()
		} else {
			rebuildDone <- nil
		}

		accessLog := logger().WithField("component", "http").Writer()
		defer accessLog.Close()

		srv := &http.Server{
			Addr:         addr,
			Handler:      handlers.LoggingHandler(accessLog, api.NewRouter(s)),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			log.WithField("addr", addr).Info("starting HTTP API")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
				return
			}
			serveErr <- nil
		}()

		select {
		case err := <-serveErr:
			stop()
			<-rebuildDone
			if err != nil {
				return fmt.Errorf("serving HTTP API: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down HTTP API: %w", err)
		}
		if err := <-rebuildDone; err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost:8000", "Listen address (default: api_addr from config)")
	serveCmd.Flags().BoolVar(&serveNoRebuild, "no-rebuild", false, "Disable the background pattern rebuild loop")
	rootCmd.AddCommand(serveCmd)
}
