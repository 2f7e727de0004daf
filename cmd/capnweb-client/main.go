// Command capnweb-client dials a Cap'n Web server over WebSocket, calls
// one method on its main capability, and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/capnweb-go/capnweb"
	"github.com/capnweb-go/capnweb/codec"
	"github.com/capnweb-go/capnweb/internal/rpclog"
	"github.com/capnweb-go/capnweb/transport/wstransport"
)

var (
	url      string
	method   string
	argsJSON string
	verbose  bool
)

func main() {
	root := &cobra.Command{
		Use:   "capnweb-client",
		Short: "Call a method on a remote Cap'n Web server",
		RunE:  run,
	}
	root.Flags().StringVar(&url, "url", "ws://localhost:8000/rpc", "WebSocket RPC endpoint")
	root.Flags().StringVarP(&method, "method", "m", "echo", "method to call on the peer's main capability")
	root.Flags().StringVarP(&argsJSON, "args", "a", "[]", "JSON array of call arguments")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, cmdArgs []string) error {
	if verbose {
		rpclog.SetLevel(logrus.DebugLevel)
	}

	var args []interface{}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return fmt.Errorf("parsing --args: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", url, err)
	}
	defer conn.Close()

	ctx := context.Background()
	sess := capnweb.NewSession(ctx, wstransport.New(conn), codec.NewTagged(), nil)
	defer sess.Close()

	result, err := sess.Main().Call(method, args...)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	value, err := result.Await()
	if err != nil {
		return fmt.Errorf("%s failed: %w", method, err)
	}

	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
