package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aanand-mishra/biblioteca/internal/auth"
	"github.com/aanand-mishra/biblioteca/internal/storage"
	"github.com/aanand-mishra/biblioteca/internal/types"
	"github.com/aanand-mishra/biblioteca/internal/utils/response"
)

func newInitDBCmd(loadConfig configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			store, err := openStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", cfg.Storage.Driver)
			return nil
		},
	}
}

func newReconcileCmd(loadConfig configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Re-derive book availability from outstanding loans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage(cmd.Context(), loadConfig())
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.ReconcileAvailability(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "repaired %d book(s)\n", n)
			return nil
		},
	}
}

func newUserCmd(loadConfig configLoader) *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var form types.RegisterForm
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an account; the password is read from the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := readPassword(cmd, "Password: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			form.Password = pass

			store, err := openStorage(cmd.Context(), loadConfig())
			if err != nil {
				return err
			}
			defer store.Close()

			id, err := auth.NewService(store).Register(cmd.Context(), form)

			var verrs validator.ValidationErrors
			switch {
			case errors.As(err, &verrs):
				return errors.New(response.ValidationMessage(verrs))
			case errors.Is(err, storage.ErrUserExists):
				return fmt.Errorf("user %q already exists", form.Username)
			case err != nil:
				return err
			}

			n, err := store.CountUsers(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added user %q with id %d (%d registered)\n", form.Username, id, n)
			return nil
		},
	}
	add.Flags().StringVar(&form.Username, "username", "", "login name")
	add.Flags().StringVar(&form.Surname, "surname", "", "surname")
	add.Flags().StringVar(&form.Email, "email", "", "email address (optional)")
	add.MarkFlagRequired("username")
	add.MarkFlagRequired("surname")

	user.AddCommand(add)
	return user
}

// readPassword masks input on a terminal and otherwise reads one line, so
// the password can also be piped in.
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	in := cmd.InOrStdin()

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
