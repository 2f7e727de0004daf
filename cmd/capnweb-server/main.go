// Command capnweb-server runs a standalone Cap'n Web RPC endpoint: a
// WebSocket/HTTP-batch listener exposing a sample "echo" main capability,
// plus optional static file serving. It does not start an admin listener.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/capnweb-go/capnweb/codec"
	"github.com/capnweb-go/capnweb/config"
	"github.com/capnweb-go/capnweb/internal/rpclog"
	"github.com/capnweb-go/capnweb/rpctarget"
	"github.com/capnweb-go/capnweb/server"
)

var (
	configPath string
	envPath    string
	verbose    bool
)

func main() {
	root := &cobra.Command{
		Use:   "capnweb-server",
		Short: "Run a Cap'n Web RPC server",
		RunE:  run,
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	root.Flags().StringVar(&envPath, "env-file", "", "path to a .env file of overrides")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if verbose {
		rpclog.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load(configPath, envPath)
	if err != nil {
		return err
	}

	var cdc codec.Codec
	switch cfg.Codec.Kind {
	case "structured":
		cdc = codec.NewStructuredClone()
	case "binary":
		cdc = codec.NewBinary()
	default:
		cdc = codec.NewTagged()
	}

	echo := server.New()
	server.Mount(echo, cfg.Listen.RPCPath, cdc, newEchoTarget)
	if cfg.Listen.StaticPath != "" {
		server.MountStatic(echo, "/static", cfg.Listen.StaticPath)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(ctx, echo, cfg.Listen.Addr) }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// newEchoTarget builds the sample main capability exposed by default: a
// single "echo" method, useful for smoke-testing a deployment before
// wiring in an application-specific rpctarget.Target.
func newEchoTarget() interface{} {
	t := rpctarget.NewBase()
	t.Method("echo", func(args []interface{}) (interface{}, error) {
		if len(args) == 0 {
			return nil, nil
		}
		return args[0], nil
	})
	return t
}
