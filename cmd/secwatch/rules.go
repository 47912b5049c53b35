package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/aleister1102/secwatch/internal/rules"
	"github.com/aleister1102/secwatch/internal/scanner"
	"github.com/spf13/cobra"
)

func newRulesCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the rule catalogue and whether each rule is active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(root.bootstrapLogger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			log, err := buildLogger(cfg.LogConfig, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			engine := scanner.NewEngine(log, scanner.EngineOptions{})
			engine.Reconcile(cfg.ScanConfig.EnabledRules, cfg.ScanConfig.DisabledRules)
			active := make(map[string]bool)
			for _, rule := range engine.Rules() {
				active[rule.ID()] = true
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RULE\tSEVERITY\tACTIVE\tDESCRIPTION")
			for _, rule := range rules.DefaultRules() {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", rule.ID(), rule.Severity(), active[rule.ID()], rule.Description())
			}
			return tw.Flush()
		},
	}
}
