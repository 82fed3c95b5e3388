package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/taskfleet/dispatch/pkg/alias"
	"github.com/taskfleet/dispatch/pkg/logger"
	"github.com/taskfleet/dispatch/pkg/presenter"
	"github.com/taskfleet/dispatch/pkg/registry"
)

var rootCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Activation dispatcher for declarative agent definitions",
	Long: `dispatch loads a library of agent definitions (YAML frontmatter +
markdown knowledge) and decides, per request, which definitions activate,
in what order, with how much content and which tool capabilities.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if level := viper.GetString("log_level"); level != "" {
			if err := logger.SetLogLevel(level); err != nil {
				presenter.Default.Warning("invalid log_level, using default")
			}
		}
		logger.SetLogFormat(viper.GetString("log_format"))
		if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
			presenter.Default.SetQuiet(true)
		}
	},
}

func init() {
	viper.SetEnvPrefix("DISPATCH")
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.dispatch")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig()

	viper.SetDefault("log_format", "text")

	rootCmd.PersistentFlags().StringSlice("agent-dirs", []string{"./agents"}, "Directories containing agent definition files")
	rootCmd.PersistentFlags().String("aliases", "", "Path to an alias rule file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress non-essential output")

	_ = viper.BindPFlag("agent_dirs", rootCmd.PersistentFlags().Lookup("agent-dirs"))
	_ = viper.BindPFlag("aliases", rootCmd.PersistentFlags().Lookup("aliases"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(serveCmd)
}

// agentDirs returns the configured agent source directories.
func agentDirs() []string {
	return viper.GetStringSlice("agent_dirs")
}

// openStore loads the configured sources into a registry store.
func openStore(ctx context.Context) (*registry.Store, error) {
	return registry.Open(ctx, agentDirs()...)
}

// loadAliases builds the alias resolver from the configured rule file, or
// an empty resolver when none is configured.
func loadAliases() (*alias.Resolver, error) {
	path := viper.GetString("aliases")
	if path == "" {
		return alias.NewResolver(nil), nil
	}
	rules, err := alias.LoadRules(path)
	if err != nil {
		return nil, err
	}
	return alias.NewResolver(rules), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		presenter.Default.Error(err, "command failed")
		os.Exit(1)
	}
}
