package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/dividends/internal/di"
	"github.com/aristath/dividends/internal/domain"
)

// dividendOutput is the printed form of a dividend lookup.
type dividendOutput struct {
	InstrumentID  string      `json:"instrumentId"`
	DividendYield json.Number `json:"dividendYield"`
	ExpiresAt     time.Time   `json:"expiresAt"`
	TTLSeconds    int64       `json:"ttlSeconds"`
}

func isinCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "isin [ISIN]",
		Short: "Resolve an instrument by ISIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, open, func(ctx context.Context, c *di.Container, _ *di.JobInstances) error {
				inst, err := c.ResolutionService.ResolveInstrumentByISIN(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), inst)
			})
		},
	}
}

func symbolCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "symbol [SYMBOL]",
		Short: "Resolve an instrument by ticker symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, open, func(ctx context.Context, c *di.Container, _ *di.JobInstances) error {
				inst, err := c.ResolutionService.ResolveInstrumentBySymbol(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), inst)
			})
		},
	}
}

func dividendCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "dividend [INSTRUMENT-ID]",
		Short: "Resolve the dividend yield of a previously resolved instrument",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, open, func(ctx context.Context, c *di.Container, _ *di.JobInstances) error {
				lookup, err := c.ResolutionService.ResolveDividendByInstrumentID(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), dividendOutput{
					InstrumentID:  lookup.InstrumentID,
					DividendYield: json.Number(lookup.Dividend.DividendYield.String()),
					ExpiresAt:     lookup.ExpiresAt,
					TTLSeconds:    int64(lookup.TTL(time.Now()).Seconds()),
				})
			})
		},
	}
}

func dividendISINCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "dividend-isin [ISIN]",
		Short: "Resolve an instrument by ISIN and then its dividend yield",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, open, func(ctx context.Context, c *di.Container, _ *di.JobInstances) error {
				result, err := c.ResolutionService.ResolveDividendByISIN(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func pruneCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete expired entries from the content and lookup caches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, open, func(ctx context.Context, _ *di.Container, jobs *di.JobInstances) error {
				purged, err := jobs.ContentCacheCleanup.RunContext(ctx)
				if err != nil {
					return err
				}
				if jobs.LookupCacheCleanup != nil {
					if err := jobs.LookupCacheCleanup.Run(); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired content cache units\n", purged)
				return nil
			})
		},
	}
}

func suppliersCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suppliers",
		Short: "Show the configured suppliers for each operation",
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			return withContainer(cmd, open, func(_ context.Context, c *di.Container, _ *di.JobInstances) error {
				all := c.SupplierRegistry.AllDescriptors()
				if asJSON {
					return printJSON(cmd.OutOrStdout(), all)
				}

				out := cmd.OutOrStdout()
				ops := make([]string, 0, len(all))
				for op := range all {
					ops = append(ops, string(op))
				}
				sort.Strings(ops)
				for _, op := range ops {
					fmt.Fprintf(out, "%s:\n", op)
					for _, d := range all[domain.Capability(op)] {
						state := "enabled"
						switch {
						case !d.Enabled:
							state = "disabled"
						case !d.Loaded:
							state = "unavailable"
						case !hasCapability(d.Capabilities, domain.Capability(op)):
							state = "unsupported"
						}
						fmt.Fprintf(out, "  %d. %-14s %s\n", d.Priority+1, d.Name, state)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolP("json", "j", false, "Output as JSON")

	return cmd
}

func hasCapability(caps []domain.Capability, want domain.Capability) bool {
	for _, c := range caps {
		if c == want {
			return true
		}
	}
	return false
}
