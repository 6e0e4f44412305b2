package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

func newLoginCmd(v *viper.Viper) *cobra.Command {
	var passwordStdin bool
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Log in and save the session for the current profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, passwordStdin)
			if err != nil {
				return err
			}

			sess, err := openSession(cmd, v, true)
			if err != nil {
				return err
			}
			defer sess.close()

			err = sess.dash.Login(cmd.Context(), args[0], password)
			sess.flushNotices(cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			n := len(sess.dash.Registry().Current())
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%d instances)\n", args[0], n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from the first line of stdin")
	return cmd
}

func newRegisterCmd(v *viper.Viper) *cobra.Command {
	var passwordStdin bool
	cmd := &cobra.Command{
		Use:   "register <email>",
		Short: "Create an account (does not log in)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, passwordStdin)
			if err != nil {
				return err
			}

			sess, err := openSession(cmd, v, false)
			if err != nil {
				return err
			}
			defer sess.close()

			err = sess.dash.Register(cmd.Context(), args[0], password)
			sess.flushNotices(cmd.OutOrStdout(), cmd.ErrOrStderr())
			return err
		},
	}
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from the first line of stdin")
	return cmd
}

func newLogoutCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session for the current profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd, v, true)
			if err != nil {
				return err
			}
			defer sess.close()

			sess.dash.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

// readPassword reads from stdin when fromStdin is set, otherwise prompts on
// the terminal with echo disabled.
func readPassword(cmd *cobra.Command, fromStdin bool) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return "", errors.New("password from stdin is empty")
		}
		return password, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal available for password prompt (use --password-stdin)")
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	data, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("password is empty")
	}
	return string(data), nil
}
