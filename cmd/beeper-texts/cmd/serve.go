package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tetmin/mcp-beeper-texts/internal/api"
)

// shutdownTimeout bounds how long in-flight requests may run after Ctrl+C.
const shutdownTimeout = 10 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the read-only HTTP API",
	Long: `Serve the archive over a local HTTP JSON API.

Routes (all GET):
  /health
  /api/v1/chats
  /api/v1/chats/{chatID}/messages
  /api/v1/search/messages?q=
  /api/v1/search/chats?q=
  /api/v1/people/{name}/messages
  /api/v1/attachments?uri=

Configure in config.toml:
  [server]
  api_port = 8787
  bind_addr = "127.0.0.1"
  api_key = "..."          # required when binding beyond loopback

Use Ctrl+C to stop the server gracefully.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if servePort != 0 {
		cfg.Server.APIPort = servePort
	}
	if err := cfg.Server.ValidateSecure(); err != nil {
		return err
	}
	if err := openArchive().Check(); err != nil {
		logger.Warn("archive not available yet; requests will fail with 503", "error", err)
	}

	srv := api.NewServer(cfg, newEngine(), logger)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	fmt.Printf("beeper-texts API listening on http://%s\n", srv.Addr())
	fmt.Println("Press Ctrl+C to stop.")

	if err := g.Wait(); err != nil {
		return err
	}
	// Report an interrupt so main exits with 130.
	return cmd.Context().Err()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides [server] api_port)")
}
