package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowforge/internal/config"
	"github.com/matzehuels/flowforge/internal/server"
	"github.com/matzehuels/flowforge/pkg/automation"
	"github.com/matzehuels/flowforge/pkg/automation/mongostore"
	"github.com/matzehuels/flowforge/pkg/cache"
)

// newServeCmd creates the serve command, which runs the persistence
// service HTTP API until interrupted.
//
// Storage is selected by configuration: a MongoDB URI enables the
// durable store, otherwise everything lives in memory. A Redis address
// enables the shared read-through cache.
func newServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the automation persistence service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.ListenAddr = addr
			}

			var store automation.Store = automation.NewMemoryStore()
			switch {
			case cfg.Mongo.URI != "":
				ms, disconnect, err := mongostore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
				if err != nil {
					return err
				}
				defer func() {
					if err := disconnect(ctx); err != nil {
						logger.Warn("mongo disconnect failed", "err", err)
					}
				}()
				if err := ms.EnsureIndexes(ctx); err != nil {
					return err
				}
				store = ms
				logger.Info("using mongo store", "database", cfg.Mongo.Database)
			case cfg.Storage.Dir != "":
				fs, err := automation.NewFileStore(cfg.Storage.Dir)
				if err != nil {
					return err
				}
				store = fs
				logger.Info("using file store", "dir", cfg.Storage.Dir)
			default:
				logger.Info("using in-memory store")
			}

			var c cache.Cache = cache.NewNullCache()
			if cfg.Redis.Addr != "" {
				rc, err := cache.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password)
				if err != nil {
					return err
				}
				c = rc
				logger.Info("using redis cache", "addr", cfg.Redis.Addr)
			}
			defer func() {
				if err := c.Close(); err != nil {
					logger.Warn("cache close failed", "err", err)
				}
			}()

			srv := server.New(store,
				server.WithCache(c, cfg.Redis.TTL),
				server.WithLogger(logger))
			return srv.ListenAndServe(ctx, cfg.Server.ListenAddr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
