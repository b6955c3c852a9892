package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func (cli *commandLine) billingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "billing",
		Short: "Billing maintenance",
	}

	var at string
	remind := &cobra.Command{
		Use:   "remind-overdue",
		Short: "Notify students with unpaid invoices past their due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().UTC()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at must be an RFC3339 time: %w", err)
				}
				now = t.UTC()
			}
			count, err := cli.billingSvc.RemindOverdue(context.Background(), now)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d student(s) notified\n", count)
			return nil
		},
	}
	remind.Flags().StringVar(&at, "at", "", "Reference time in RFC3339 (default now)")

	cmd.AddCommand(remind)
	return cmd
}
