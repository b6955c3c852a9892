package main

import (
	"github.com/spf13/cobra"
)

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose command over the database",
		Long: `Run a goose command over the database.

Commands:
  up, up-by-one, up-to VERSION, down, down-to VERSION,
  redo, reset, status, version, create NAME [go|sql], fix`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				return errHelp
			}
			return cli.migrate(args[0], args[1:]...)
		},
	}
}
