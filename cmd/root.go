package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/luma/countdown/internal/meta"
)

const DefaultPort = 8080

var RootCmd = &cobra.Command{
	Use:   "countdown [port]",
	Short: "Stream a countdown alarm to anything that can open a TCP socket",
	Long: `Stream a countdown alarm to anything that can open a TCP socket

The duration is taken from the request path, as hours:minutes:seconds,
minutes:seconds or seconds.

Usage
	countdown 8080
	curl -N localhost:8080/1:15:0

`,
	Args:          cobra.MaximumNArgs(1),
	Version:       meta.GetInfo().String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := parsePort(args)
		if err != nil {
			return err
		}

		return serve(cmd.Context(), port)
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := RootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func parsePort(args []string) (int, error) {
	if len(args) == 0 {
		return DefaultPort, nil
	}

	port, err := strconv.Atoi(args[0])
	if err != nil || port < 0 || port > 65535 {
		return 0, fmt.Errorf("Invalid port %q, expected a number between 0 and 65535", args[0])
	}

	return port, nil
}
