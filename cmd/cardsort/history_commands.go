package main

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"cardsort/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently sorted cards, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Cycles) == 0 {
					fmt.Fprintln(stdout, "No cards sorted yet")
					return nil
				}
				rows := make([][]string, 0, len(resp.Cycles))
				for _, cycle := range resp.Cycles {
					rows = append(rows, []string{
						formatSortedAt(cycle.SortedAt),
						displayName(cycle),
						cycle.SetCode,
						formatPrice(cycle.PriceUSD),
						cycle.Bin,
						cycle.Reason,
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Sorted At", "Card", "Set", "Price", "Bin", "Reason"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of records to show")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all sort history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.HistoryClear()
				if err != nil {
					return err
				}
				if resp.Cleared {
					fmt.Fprintln(cmd.OutOrStdout(), "Sort history cleared")
				}
				return nil
			})
		},
	}
	historyCmd.AddCommand(clearCmd)

	return historyCmd
}

func newCountsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Show per-bin totals for this session and all time",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Counts()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Session) == 0 && len(resp.Lifetime) == 0 {
					fmt.Fprintln(stdout, "No cards sorted yet")
					return nil
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Bin", "Session", "Lifetime"},
					mergedCountRows(resp.Session, resp.Lifetime),
					[]columnAlignment{alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}

func mergedCountRows(session, lifetime map[string]int) [][]string {
	seen := make(map[string]struct{}, len(session)+len(lifetime))
	bins := make([]string, 0, len(seen))
	for _, counts := range []map[string]int{session, lifetime} {
		for bin := range counts {
			if _, ok := seen[bin]; ok {
				continue
			}
			seen[bin] = struct{}{}
			bins = append(bins, bin)
		}
	}
	sort.Strings(bins)
	rows := make([][]string, 0, len(bins))
	for _, bin := range bins {
		rows = append(rows, []string{
			bin,
			strconv.Itoa(session[bin]),
			strconv.Itoa(lifetime[bin]),
		})
	}
	return rows
}

func displayName(cycle ipc.CycleResult) string {
	if cycle.Name == "" {
		return "(unrecognized)"
	}
	return cycle.Name
}

func formatPrice(price *float64) string {
	if price == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f", *price)
}

func formatSortedAt(value string) string {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return value
	}
	return parsed.Local().Format("2006-01-02 15:04:05")
}
