package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/todmy/doc-consolidator/internal/api"
	"github.com/todmy/doc-consolidator/internal/auth"
	"github.com/todmy/doc-consolidator/internal/config"
	"github.com/todmy/doc-consolidator/internal/storage"
)

func (a *app) newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the consolidation HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, cfg *config.Config, log *slog.Logger, c *components) error {
				if cmd.Flags().Changed("addr") {
					cfg.Server.Addr = addr
				}

				db, err := storage.Open(ctx, cfg.Database.URL)
				if err != nil {
					return err
				}
				defer db.Close()

				if cfg.Database.Migrate {
					if err := storage.Migrate(ctx, db, cfg.Embeddings.Dimension()); err != nil {
						return err
					}
				}

				authService := auth.NewJWTService(cfg.Auth, auth.NewPostgresRepository(db))

				server := api.NewServer(api.ServerConfig{
					Pipeline:       c.Pipeline,
					Auth:           authService,
					Documents:      storage.NewPostgresDocumentRepository(db),
					Claims:         storage.NewPostgresClaimRepository(db),
					Runs:           storage.NewPostgresRunRepository(db),
					Conflicts:      storage.NewPostgresConflictRepository(db),
					Embedder:       c.Embedder,
					AllowedOrigins: cfg.Server.AllowedOrigins,
					Log:            log,
				})

				log.Info("starting consolidator server",
					"addr", cfg.Server.Addr,
					"llm", c.Provider != nil,
					"embeddings", c.Embedder != nil,
					"graph", cfg.Graph.Enabled)

				return server.Run(ctx, cfg.Server.Addr)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
