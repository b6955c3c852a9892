package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/user"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	var (
		name, uname, email string
		roles              []string
		isAdmin            bool
	)
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or update the one with the same username or email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if uname == "" || email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			if isAdmin {
				roles = append([]string(nil), user.AllRoles...)
			}
			for _, role := range roles {
				if !core.ContainsString(user.AllRoles, role) {
					return fmt.Errorf("unknown role %q", role)
				}
			}
			pwd, err := promptPassword(cmd)
			if err != nil {
				return err
			}
			usr, err := cli.addUser(name, uname, email, pwd, roles)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s (%s) saved\n", usr.Username, usr.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "The user's full name")
	cmd.Flags().StringVar(&uname, "username", "", "The user's username (required)")
	cmd.Flags().StringVar(&email, "email", "", "The user's email (required)")
	cmd.Flags().StringSliceVar(&roles, "role", []string{user.RoleStudent}, "The user's roles")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "Grant every role to the user")
	return cmd
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, uname, email, pwd string, roles []string) (user.User, error) {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: uname})
	if err == user.ErrNotFound {
		usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	}
	if err != nil {
		if err != user.ErrNotFound {
			return user.User{}, err
		}
		usr = user.User{Username: uname, Email: email}
	}
	if name = core.CleanString(name); name != "" {
		usr.Name = name
	}
	if usr.Name == "" {
		usr.Name = uname
	}
	usr.Roles = roles
	usr.SetActive(true)
	usr.UpdatedAt = core.NowFunc()
	if usr.CreatedAt.IsZero() {
		usr.CreatedAt = usr.UpdatedAt
	}
	if err := usr.SetPassword(pwd); err != nil {
		return user.User{}, err
	}
	return cli.usrRepo.UpdateOrCreateUser(ctx, usr)
}
