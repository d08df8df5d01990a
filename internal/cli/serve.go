package cli

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/hbnb/internal/api"
	"github.com/mesh-intelligence/hbnb/pkg/types"
)

func newServeCmd(a *app) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API",
		Long: "Open the store, serve /api/v1 until interrupted, then save and close.\n" +
			"The listener comes from --host/--port, HBNB_API_HOST/HBNB_API_PORT, or config.yaml.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.apiConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			log.SetPrefix("[HBNB] ")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.withStore(func(s types.Storage) error {
				return serve(ctx, cfg, s)
			})
		},
	}
	cmd.Flags().StringVar(&host, "host", api.DefaultHost, "listen host")
	cmd.Flags().IntVar(&port, "port", api.DefaultPort, "listen port")
	return cmd
}

func serve(ctx context.Context, cfg api.Config, s types.Storage) error {
	if err := api.NewServer(cfg, s).Run(ctx); err != nil {
		return sysErrorf("%w", err)
	}
	log.Printf("saving and closing store")
	return nil
}
