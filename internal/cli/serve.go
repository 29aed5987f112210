package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/prlens/internal/api"
	"github.com/sprite-ai/prlens/internal/pipeline"
	"github.com/sprite-ai/prlens/internal/publish"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing the prlens pipeline.

Endpoints:
  GET  /health          Health check
  POST /api/analyze     Run the pipeline and return the report
  POST /api/parse       Parse a diff into per-file statistics
  POST /api/jobs        Queue a run
  GET  /api/jobs/{id}   Job status and report
  GET  /api/ws          WebSocket streaming stage progress and the report
  GET  /metrics         Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "", "address to listen on (default from config)")
	serveCmd.Flags().IntP("port", "p", 0, "port to listen on (default from config)")
	serveCmd.Flags().Bool("publish", false, "publish every report to the report directory")
}

func runServe(cmd *cobra.Command, args []string) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var opts []pipeline.Option
	if pub, _ := cmd.Flags().GetBool("publish"); pub {
		opts = append(opts, pipeline.WithPublisher(publish.New(publish.NewDir(cfg.Publish.Dir), logger)))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return api.New(cfg, logger, opts...).ListenAndServe(ctx)
}
