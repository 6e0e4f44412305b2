package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newWarmingCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warming",
		Short: "Start or stop warming for an instance",
	}
	cmd.AddCommand(newWarmingToggleCmd(v, "start", "Start warming an instance", true))
	cmd.AddCommand(newWarmingToggleCmd(v, "stop", "Stop warming an instance", false))
	return cmd
}

func newWarmingToggleCmd(v *viper.Viper, verb, short string, enable bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <instance-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseInstanceID(args[0])
			if err != nil {
				return err
			}

			sess, err := openSession(cmd, v, true)
			if err != nil {
				return err
			}
			defer sess.close()

			err = sess.dash.ToggleWarming(cmd.Context(), id, enable)
			sess.flushNotices(cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if inst, ok := sess.dash.Registry().Find(id); ok {
				state := "inactive"
				if inst.WarmingEnabled {
					state = "active"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Warming %s for %s\n", state, inst.Name)
			}
			return nil
		},
	}
}
