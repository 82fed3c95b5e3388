package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskfleet/dispatch/pkg/presenter"
	"github.com/taskfleet/dispatch/pkg/registry"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the agent definition sources without serving",
	Long: `Validate loads every configured source and reports structural
problems (missing ids, duplicate ids, invalid tiers, bad budgets) and
data-quality warnings (capability tokens outside the vocabulary).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := presenter.Default

		reg, err := registry.Load(cmd.Context(), agentDirs()...)
		if err != nil {
			p.Error(err, "validation failed")
			return err
		}

		warnings := 0
		for _, def := range reg.All() {
			for _, warning := range def.Warnings {
				p.Warning(fmt.Sprintf("%s: %s", def.ID, warning))
				warnings++
			}
		}

		p.Success(fmt.Sprintf("%d definitions valid (%d warnings)", reg.Len(), warnings))
		return nil
	},
}
