package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/taskfleet/dispatch/pkg/presenter"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Inspect the loaded agent definitions",
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all agent definitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return errors.Wrap(err, "failed to load agent registry")
		}

		p := presenter.Default
		p.Section(fmt.Sprintf("Agents (%d)", store.Current().Len()))
		for _, def := range store.Current().All() {
			mode := "auto"
			if !def.AutoActivate {
				mode = "explicit-only"
			}
			p.Info(fmt.Sprintf("%-30s tier=%-8s %s", def.ID, def.Tier, mode))
		}
		return nil
	},
}

var agentsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one agent definition in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return errors.Wrap(err, "failed to load agent registry")
		}

		def, ok := store.Current().Lookup(args[0])
		if !ok {
			return errors.Errorf("agent %q not found", args[0])
		}

		p := presenter.Default
		p.Section(def.ID)
		p.Info("tier:       " + def.Tier)
		if def.Module != "" {
			p.Info("module:     " + def.Module)
		}
		p.Info(fmt.Sprintf("triggers:   %s", strings.Join(def.Triggers, ", ")))
		p.Info(fmt.Sprintf("auto:       %t", def.AutoActivate))
		p.Info(fmt.Sprintf("tools:      %s", strings.Join(def.Tools, ", ")))
		p.Info(fmt.Sprintf("max_tokens: %d", def.MaxTokens))
		p.Info("path:       " + def.Path)
		for _, warning := range def.Warnings {
			p.Warning(warning)
		}
		return nil
	},
}

func init() {
	agentsCmd.AddCommand(agentsListCmd)
	agentsCmd.AddCommand(agentsShowCmd)
}
