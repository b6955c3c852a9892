package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/lms"
)

func (cli *commandLine) lmsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lms",
		Short: "Learning material maintenance",
	}

	var classID string
	clone := &cobra.Command{
		Use:   "clone-modules",
		Short: "Copy the modules of the latest class of the same course into a class",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if classID == "" {
				_ = cmd.Usage()
				return errHelp
			}
			mods, err := cli.lmsSvc.CloneMostRecentModules(context.Background(), lms.Viewer{IsAdmin: true}, classID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d module(s) cloned into class %s\n", len(mods), classID)
			return nil
		},
	}
	clone.Flags().StringVar(&classID, "class", "", "ID of the class to fill")

	cmd.AddCommand(clone)
	return cmd
}
