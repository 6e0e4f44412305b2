package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ericfisherdev/heaterpanel/internal/application"
)

func newInstancesCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "instances",
		Aliases: []string{"instance", "inst"},
		Short:   "List and create instances",
	}
	cmd.AddCommand(newInstancesListCmd(v))
	cmd.AddCommand(newInstancesCreateCmd(v))
	return cmd
}

func newInstancesListCmd(v *viper.Viper) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List instances",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			sess, err := openSession(cmd, v, true)
			if err != nil {
				return err
			}
			defer sess.close()

			if err := sess.dash.Refresh(cmd.Context()); err != nil {
				// A reload failure is not queued as a notice.
				fmt.Fprintln(cmd.ErrOrStderr(), application.UserMessage(err))
				return err
			}
			return writeInstances(cmd.OutOrStdout(), format, sess.dash.Registry().Current())
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}

func newInstancesCreateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, v, true)
			if err != nil {
				return err
			}
			defer sess.close()

			err = sess.dash.CreateInstance(cmd.Context(), args[0])
			sess.flushNotices(cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return writeInstances(cmd.OutOrStdout(), formatTable, sess.dash.Registry().Current())
		},
	}
}
