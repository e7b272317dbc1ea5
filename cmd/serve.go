package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/encoder"
	"github.com/kozaktomas/attendance/internal/matcher"
	"github.com/kozaktomas/attendance/internal/registry"
	"github.com/kozaktomas/attendance/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the attendance web server.
The server exposes enrollment, model training, attendance marking and
reporting over a JSON API, backed by PostgreSQL and the face embedding
service.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("memory", false, "Use in-memory storage instead of PostgreSQL")
	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

// resolveServeHostPort resolves host and port: flags win over config/env.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.Config) (string, int) {
	host := cfg.Web.Host
	port := cfg.Web.Port
	if flagHost := mustGetString(cmd, "host"); flagHost != "" {
		host = flagHost
	}
	if flagPort := mustGetInt(cmd, "port"); flagPort > 0 {
		port = flagPort
	}
	return host, port
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	st, err := openStores(cfg, mustGetBool(cmd, "memory"))
	if err != nil {
		return err
	}
	defer st.close()

	ctx := context.Background()

	// Orphaned samples or encodings mean a corrupted store; refuse to serve.
	if err := st.persons.CheckIntegrity(ctx); err != nil {
		return fmt.Errorf("store integrity check failed: %w", err)
	}

	enc := encoder.NewClient(cfg.FaceAPI.URL, cfg.FaceAPI.Model)
	reg := registry.New(st.persons, enc)
	holder := matcher.NewModelHolder(cfg.MatchTolerance())
	ledger := attendance.NewLedger(st.attendance)

	// Train from whatever is already enrolled. An empty store is fine; the
	// model stays untrained until samples arrive.
	if model, err := holder.Rebuild(ctx, reg); err != nil {
		fmt.Printf("Warning: initial model training failed: %v\n", err)
	} else if model.Trained() {
		fmt.Printf("Trained model v%d: %d encodings, %d persons (tolerance %.2f)\n",
			model.Version(), model.Size(), model.Persons(), model.Tolerance())
	} else {
		fmt.Println("No enrollment data yet; recognition disabled until samples are added")
	}

	host, port := resolveServeHostPort(cmd, cfg)
	server := web.NewServer(host, port, reg, holder, ledger, enc)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting attendance API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
