package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cardsort/internal/ipc"
)

func newPolicyCommands(ctx *commandContext) []*cobra.Command {
	modeCmd := &cobra.Command{
		Use:   "mode <price|color|mixed>",
		Short: "Switch the routing mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SetMode(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Routing mode set to %s\n", resp.Mode)
				return nil
			})
		},
	}

	thresholdCmd := &cobra.Command{
		Use:   "threshold <usd>",
		Short: "Set the price threshold in USD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid threshold %q: %w", args[0], err)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SetThreshold(value)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Price threshold set to $%.2f\n", resp.ThresholdUSD)
				return nil
			})
		},
	}

	sourcesCmd := &cobra.Command{
		Use:   "sources <primary> [fallback]",
		Short: "Set the price provider order",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fallback := ""
			if len(args) == 2 {
				fallback = args[1]
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SetSources(args[0], fallback)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Price sources set to %s\n", formatSources(resp.Primary, resp.Fallback))
				return nil
			})
		},
	}

	binCmd := &cobra.Command{
		Use:   "bin <enable|disable> <bin>",
		Short: "Enable or disable a destination bin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch args[0] {
			case "enable":
				enabled = true
			case "disable":
				enabled = false
			default:
				return fmt.Errorf("expected enable or disable, got %q", args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SetBin(args[1], enabled)
				if err != nil {
					return err
				}
				verb := "disabled"
				if resp.Enabled {
					verb = "enabled"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Bin %s %s\n", resp.Bin, verb)
				return nil
			})
		},
	}

	return []*cobra.Command{modeCmd, thresholdCmd, sourcesCmd, binCmd}
}

func newTestBinCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-bin <bin>",
		Short: "Cycle a bin's gate without a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestBin(args[0])
				if err != nil {
					return err
				}
				if resp.Triggered {
					fmt.Fprintf(cmd.OutOrStdout(), "Cycled gate for %s\n", args[0])
				}
				return nil
			})
		},
	}
}
