package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/aleister1102/secwatch/internal/fixer"
	"github.com/spf13/cobra"
)

func newHistoryCommand(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent fix attempts from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(root.bootstrapLogger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			if cfg.FixConfig.JournalPath == "" {
				return errors.New("no fix journal configured, set fix_config.journal_path")
			}
			log, err := buildLogger(cfg.LogConfig, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			journal, err := fixer.OpenJournal(cfg.FixConfig.JournalPath, log)
			if err != nil {
				return err
			}
			defer closeJournal(journal, log)

			records, err := journal.Recent(context.Background(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tRESULT\tFILE\tALERT")
			for _, rec := range records {
				outcome := "applied"
				if !rec.Success {
					outcome = string(rec.ErrorKind)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.AppliedAt.Local().Format(time.DateTime), outcome, rec.FilePath, rec.AlertID)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}
