package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"carelogic/arbiter/pkg/arbiter"
)

var serveFlags struct {
	listenAddress string
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve metrics and health endpoints",
	Long: `Run the engine as a long-lived process exposing operational endpoints.

The serve command loads the configured rule sets (with hot reload when
watching is enabled) and exposes:
  /metrics - Prometheus exposition
  /healthz - aggregated component health

Examples:
  # Serve on the default address
  arbiter serve

  # Serve on a custom address
  arbiter serve --listen 0.0.0.0:9464

  # Validate config without starting
  arbiter serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "127.0.0.1:9464", "listen address")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.dryRun {
		fmt.Println("Configuration valid")
		return nil
	}

	engine, err := arbiter.New(cfg, nil)
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer engine.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", engine.Metrics().Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := engine.Health(r.Context())
		if status.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		writeJSONResponse(w, status)
	})

	server := &http.Server{
		Addr:              serveFlags.listenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	fmt.Printf("Serving on %s\n", serveFlags.listenAddress)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}
