// Command heaterctl drives the heater backend from a terminal: log in, list
// and create instances, pair them by QR code and toggle warming.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ericfisherdev/heaterpanel/internal/domain/model"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		// Backend failures were already printed as notices.
		if model.KindOf(err) == "" {
			fmt.Fprintln(stderr, "heaterctl:", err)
		}
		return 1
	}
	return 0
}
