package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ericfisherdev/heaterpanel/internal/pairingimage"
)

func newPairCmd(v *viper.Viper) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "pair <instance-id>",
		Short: "Fetch the QR code that pairs an instance with a phone",
		Long: "Fetch the pairing QR code for an instance. Image codes are written to a PNG\n" +
			"file; raw pairing payloads are drawn in the terminal (and also saved when\n" +
			"--out is given).",
		Args: cobra.ExactArgs(1),
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

			err = sess.dash.Connect(cmd.Context(), id)
			sess.flushNotices(cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			view := sess.dash.Snapshot()
			if !view.ShowPairing {
				return nil
			}
			defer sess.dash.ClosePairing()

			if outPath == "" {
				outPath = fmt.Sprintf("pairing-%d.png", id)
			}
			return writePairing(cmd.OutOrStdout(), view.Pairing.Code, outPath, cmd.Flags().Changed("out"))
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "PNG file to write (default pairing-<id>.png)")
	return cmd
}

// writePairing saves an image code to path, or draws a raw payload on w and
// saves it to path only when saveRaw is set.
func writePairing(w io.Writer, code, path string, saveRaw bool) error {
	img, raw, err := pairingimage.Decode(code)
	if err != nil {
		return err
	}

	if raw {
		fmt.Fprintln(w, "Scan QR Code:")
		qrterminal.GenerateHalfBlock(code, qrterminal.L, w)
		if !saveRaw {
			return nil
		}
		if img, err = pairingimage.Encode(code); err != nil {
			return err
		}
	}

	if err := os.WriteFile(path, img, 0o600); err != nil {
		return fmt.Errorf("write qr code: %w", err)
	}
	fmt.Fprintf(w, "QR code written to %s\n", path)
	return nil
}

func parseInstanceID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid instance id %q", s)
	}
	return id, nil
}
