package main

import (
	"net"

	"github.com/spf13/cobra"

	"github.com/antirez/gguf-tools/serve"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve <file>",
		Short: "Start a read-only HTTP API over a GGUF file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			return serve.Serve(ln, args[0])
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8088", "address to listen on")
	return cmd
}
