package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kakeibot/internal/journal"
)

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently journaled expense records",
		Long:  "Reads the local journal database and prints the most recent expense records, newest first. Requires journal.enabled in the config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if !cfg.Journal.Enabled {
				return fmt.Errorf("journal is disabled; enable it with 'kakeibot config set journal.enabled true'")
			}

			store, err := journal.Open(cfg.Journal.DBPath, logger)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			ctx := cmd.Context()
			entries, err := store.Recent(ctx, limit)
			if err != nil {
				return fmt.Errorf("read journal: %w", err)
			}
			total, err := store.Total(ctx)
			if err != nil {
				return fmt.Errorf("read journal: %w", err)
			}

			if len(entries) == 0 {
				fmt.Println("no records yet")
				return nil
			}
			for _, e := range entries {
				if e.Category != "" {
					fmt.Printf("%s  %8d円  [%s] %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Amount, e.Category, e.Description)
				} else {
					fmt.Printf("%s  %8d円  %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Amount, e.Description)
				}
			}
			fmt.Printf("\n合計: %d円\n", total)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of records to show")
	return cmd
}
