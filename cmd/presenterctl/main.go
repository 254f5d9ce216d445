// Command presenterctl is the supervisor-side CLI for managing the
// allow-list: add, remove, and list users without going through the admin
// HTTP endpoints.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/churchstage/presenter-proxy/internal/config"
	"github.com/churchstage/presenter-proxy/internal/store"
)

func main() {
	app := &cli.Command{
		Name:  "presenterctl",
		Usage: "manage the presenter-proxy allow-list",
		Commands: []*cli.Command{
			usersCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "presenterctl:", err)
		os.Exit(exitCode(err))
	}
}

// userError marks an error that should exit 1 (bad input) rather than 2
// (internal failure).
type userError struct{ error }

func exitCode(err error) int {
	if _, ok := err.(userError); ok {
		return 1
	}
	return 2
}

func openUserStore() (*store.UserStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	fs := afero.NewOsFs()
	if err := fs.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, err
	}
	return store.NewUserStore(fs, cfg.DataDir), nil
}

func usersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "manage the allow-list",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "allow-list an email",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "email"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "admin", Usage: "grant admin privileges"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					email := cmd.StringArg("email")
					if email == "" {
						return userError{fmt.Errorf("email is required")}
					}
					users, err := openUserStore()
					if err != nil {
						return err
					}
					if _, err := users.Add(email); err != nil {
						return err
					}
					if cmd.Bool("admin") {
						if err := users.SetAdmin(email, true); err != nil {
							return err
						}
					}
					fmt.Printf("added %s\n", store.Canonicalize(email))
					return nil
				},
			},
			{
				Name:  "remove",
				Usage: "remove an email from the allow-list",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "email"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					email := cmd.StringArg("email")
					if email == "" {
						return userError{fmt.Errorf("email is required")}
					}
					users, err := openUserStore()
					if err != nil {
						return err
					}
					if !users.IsAllowed(email) {
						return userError{fmt.Errorf("%s is not allow-listed", email)}
					}
					if err := users.Remove(email); err != nil {
						return err
					}
					fmt.Printf("removed %s\n", store.Canonicalize(email))
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "list allow-listed users",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					users, err := openUserStore()
					if err != nil {
						return err
					}
					for _, u := range users.ListAll() {
						role := "user"
						if u.Admin {
							role = "admin"
						}
						fmt.Printf("%-40s %s\n", u.Email, role)
					}
					return nil
				},
			},
		},
	}
}
