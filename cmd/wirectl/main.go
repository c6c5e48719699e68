// Command wirectl inspects the wire layer: it lists the registered message
// types of a schema, decodes captured frame streams and serves the admin API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const usage = `usage: wirectl <command> [flags]

commands:
  types   list registered message types and their ids
  decode  walk a capture file of frames and report each one
  serve   run the admin HTTP server

Run 'wirectl <command> -h' for the flags of a command.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "wirectl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return fmt.Errorf("missing command")
	}
	switch args[0] {
	case "types":
		return runTypes(args[1:], out)
	case "decode":
		return runDecode(args[1:], out)
	case "serve":
		return runServe(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	}
	fmt.Fprint(out, usage)
	return fmt.Errorf("unknown command %q", args[0])
}
