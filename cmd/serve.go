package cmd

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/trellis-notes/trellis/internal/api"
	"github.com/trellis-notes/trellis/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server exposing notes, attributes, tree operations
and search under /api/v1.`,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: from config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to bind to (default: from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	host := serveHost
	if host == "" {
		host = appConfig.HTTPHost
	}
	port := servePort
	if port == 0 {
		port = appConfig.HTTPPort
	}

	server := api.NewAPIServer(appConfig, app)

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Shutting down HTTP server")
		if err := server.Stop(); err != nil {
			logger.Error("Shutdown error: %v", err)
		}
	}()

	fmt.Printf("Serving on http://%s:%d\n", host, port)
	if err := server.Start(host, port); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
