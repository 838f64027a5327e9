package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/healthrocket-labs/ignition/internal/daemon"
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to listen on (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveMetrics, "metrics", false, "Enable the Prometheus /metrics endpoint")
	rootCmd.AddCommand(serveCmd)
}

var (
	serveHost    string
	servePort    int
	serveMetrics bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ignition API server",
	Long:  `Start the progression API server and the nightly streak-reset scheduler.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}

	// Override config from flags
	if serveHost != "" {
		cfg.API.Host = serveHost
	}
	if servePort > 0 {
		cfg.API.Port = servePort
	}
	if serveMetrics {
		cfg.Telemetry.Prometheus = true
	}

	d, err := daemon.NewWithConfig(cfg)
	if err != nil {
		return err
	}
	d.Server.SetVersion(rootCmd.Version)

	return d.Serve(context.Background())
}
