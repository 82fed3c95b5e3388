package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/taskfleet/dispatch/pkg/dispatch"
	"github.com/taskfleet/dispatch/pkg/presenter"
)

// ActivateConfig holds configuration for the activate command.
type ActivateConfig struct {
	Agent     string
	Budget    int
	MaxActive int
	JSON      bool
}

// NewActivateConfig creates an ActivateConfig with default values.
func NewActivateConfig() *ActivateConfig {
	return &ActivateConfig{
		Budget:    4096,
		MaxActive: dispatch.DefaultMaxActive,
	}
}

// Validate checks the ActivateConfig.
func (c *ActivateConfig) Validate() error {
	if c.Budget <= 0 {
		return errors.Errorf("budget must be positive, got %d", c.Budget)
	}
	if c.MaxActive <= 0 {
		return errors.Errorf("max-active must be positive, got %d", c.MaxActive)
	}
	return nil
}

var activateCmd = &cobra.Command{
	Use:   "activate [text...]",
	Short: "Run an activation request against the agent registry",
	Long: `Activate decides which agent definitions apply to the given input
text (or an explicitly invoked agent), composes their content under the
token budget, and reports the granted tool capabilities.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		config := getActivateConfigFromFlags(cmd)
		if err := config.Validate(); err != nil {
			return err
		}

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

		result := d.Activate(ctx, config.Agent, strings.Join(args, " "), config.Budget)

		if config.JSON {
			encoded, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return errors.Wrap(err, "failed to encode result")
			}
			fmt.Println(string(encoded))
			return nil
		}

		printResult(result)
		return nil
	},
}

func printResult(result dispatch.Result) {
	p := presenter.Default

	if result.NoMatch {
		p.Info("no agent definitions matched")
		return
	}

	p.Section("Activated")
	for _, activation := range result.Activated {
		line := fmt.Sprintf("%s (score %d, %d tokens)", activation.ID, activation.Score, activation.Tokens)
		if activation.Explicit {
			line += " [explicit]"
		}
		if activation.Truncated {
			line += " [truncated]"
		}
		p.Info(line)
	}

	for _, id := range result.Omitted {
		p.Warning(fmt.Sprintf("%s omitted: global budget exhausted", id))
	}

	if len(result.Tools) > 0 {
		p.Info("granted tools: " + strings.Join(result.Tools, ", "))
	}

	p.Separator()
	fmt.Println(result.Content)
}

func init() {
	defaults := NewActivateConfig()
	activateCmd.Flags().StringP("agent", "a", defaults.Agent, "Explicitly invoke an agent by id")
	activateCmd.Flags().IntP("budget", "b", defaults.Budget, "Global token budget for composed content")
	activateCmd.Flags().Int("max-active", defaults.MaxActive, "Maximum definitions activated per request")
	activateCmd.Flags().Bool("json", false, "Emit the raw activation result as JSON")
}

// getActivateConfigFromFlags extracts activate configuration from command flags.
func getActivateConfigFromFlags(cmd *cobra.Command) *ActivateConfig {
	config := NewActivateConfig()

	if agent, err := cmd.Flags().GetString("agent"); err == nil {
		config.Agent = agent
	}
	if budget, err := cmd.Flags().GetInt("budget"); err == nil {
		config.Budget = budget
	}
	if maxActive, err := cmd.Flags().GetInt("max-active"); err == nil {
		config.MaxActive = maxActive
	}
	if jsonOut, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSON = jsonOut
	}

	return config
}
