// Command divctl resolves instruments and dividends from the command line
// and runs cache maintenance, using the same configuration as the server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/dividends/internal/config"
	"github.com/aristath/dividends/internal/di"
	"github.com/aristath/dividends/pkg/logger"
)

var Version = "dev"

// opener builds the dependency container for a command invocation.
type opener func(cmd *cobra.Command) (*di.Container, *di.JobInstances, error)

func main() {
	if err := newRootCmd(openFromEnv).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(open opener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "divctl",
		Short:         "divctl - instrument and dividend resolution from the command line",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log at debug level to stderr")
	rootCmd.PersistentFlags().Duration("timeout", 60*time.Second, "Overall command timeout")

	// Add subcommands
	rootCmd.AddCommand(isinCmd(open))
	rootCmd.AddCommand(symbolCmd(open))
	rootCmd.AddCommand(dividendCmd(open))
	rootCmd.AddCommand(dividendISINCmd(open))
	rootCmd.AddCommand(pruneCmd(open))
	rootCmd.AddCommand(suppliersCmd(open))

	return rootCmd
}

// openFromEnv loads configuration from the environment and wires the container.
// Logs go to stderr so stdout stays machine readable.
func openFromEnv(cmd *cobra.Command) (*di.Container, *di.JobInstances, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := "warn"
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{
		Level:  level,
		Pretty: true,
		File:   cfg.LogFile,
		Output: cmd.ErrOrStderr(),
	})

	return di.Wire(cfg, log)
}

// withContainer opens the container, runs fn under the command timeout and closes it.
func withContainer(cmd *cobra.Command, open opener, fn func(ctx context.Context, c *di.Container, jobs *di.JobInstances) error) error {
	container, jobs, err := open(cmd)
	if err != nil {
		return err
	}
	defer container.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return fn(ctx, container, jobs)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
