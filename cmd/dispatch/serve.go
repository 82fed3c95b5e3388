package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/taskfleet/dispatch/pkg/dispatch"
	"github.com/taskfleet/dispatch/pkg/logger"
	"github.com/taskfleet/dispatch/pkg/server"
)

// ServeConfig holds configuration for the serve command.
type ServeConfig struct {
	Host      string
	Port      int
	Watch     bool
	MaxActive int
}

// NewServeConfig creates a ServeConfig with default values.
func NewServeConfig() *ServeConfig {
	return &ServeConfig{
		Host:      "localhost",
		Port:      8722,
		MaxActive: dispatch.DefaultMaxActive,
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dispatch HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		config := getServeConfigFromFlags(cmd)

		store, err := openStore(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to load agent registry")
		}

		aliases, err := loadAliases()
		if err != nil {
			return errors.Wrap(err, "failed to load alias rules")
		}

		d := dispatch.New(store,
			dispatch.WithAliases(aliases),
			dispatch.WithMaxActive(config.MaxActive),
		)

		s, err := server.New(&server.Config{Host: config.Host, Port: config.Port}, store, d)
		if err != nil {
			return err
		}

		if config.Watch {
			go func() {
				if err := store.Watch(ctx); err != nil && ctx.Err() == nil {
					logger.G(ctx).WithError(err).Error("registry watcher stopped")
				}
			}()
		}

		return s.Start(ctx)
	},
}

func init() {
	defaults := NewServeConfig()
	serveCmd.Flags().String("host", defaults.Host, "Host to bind the server to")
	serveCmd.Flags().IntP("port", "p", defaults.Port, "Port to bind the server to")
	serveCmd.Flags().Bool("watch", false, "Reload the registry when source directories change")
	serveCmd.Flags().Int("max-active", defaults.MaxActive, "Maximum definitions activated per request")
}

// getServeConfigFromFlags extracts serve configuration from command flags.
func getServeConfigFromFlags(cmd *cobra.Command) *ServeConfig {
	config := NewServeConfig()

	if host, err := cmd.Flags().GetString("host"); err == nil {
		config.Host = host
	}
	if port, err := cmd.Flags().GetInt("port"); err == nil {
		config.Port = port
	}
	if watch, err := cmd.Flags().GetBool("watch"); err == nil {
		config.Watch = watch
	}
	if maxActive, err := cmd.Flags().GetInt("max-active"); err == nil {
		config.MaxActive = maxActive
	}

	return config
}
