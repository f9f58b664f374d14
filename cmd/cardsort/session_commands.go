package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cardsort/internal/ipc"
)

func newSessionCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the sorting loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Start()
				if err != nil {
					return err
				}
				if !resp.Started {
					if strings.TrimSpace(resp.Message) != "" {
						return errors.New(resp.Message)
					}
					return errors.New("sorting did not start")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Sorting started")
				return nil
			})
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the sorting loop after the current card",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sorting stopped (%d cards this session)\n", resp.TotalSorted)
				return nil
			})
		},
	}

	onceCmd := &cobra.Command{
		Use:   "once",
		Short: "Sort a single card and report the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RunOnce()
				if err != nil {
					return err
				}
				cycle := resp.Cycle
				if cycle.Error != "" {
					return fmt.Errorf("cycle failed: %s", cycle.Error)
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatCycleLine(cycle))
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				renderStatus(cmd, status)
				return nil
			})
		},
	}

	return []*cobra.Command{startCmd, stopCmd, onceCmd, statusCmd}
}

func renderStatus(cmd *cobra.Command, status *ipc.StatusResponse) {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	for _, line := range renderSectionHeader("Session", colorize) {
		fmt.Fprintln(stdout, line)
	}
	running := statusInfo
	runningDetail := "idle"
	if status.Running {
		running = statusOK
		runningDetail = "sorting"
	}
	fmt.Fprintln(stdout, renderStatusLine("Loop", running, runningDetail, colorize))
	fmt.Fprintln(stdout, renderStatusLine("Mode", statusInfo, status.Mode, colorize))
	fmt.Fprintln(stdout, renderStatusLine("Price threshold", statusInfo, fmt.Sprintf("$%.2f", status.PriceThresholdUSD), colorize))
	fmt.Fprintln(stdout, renderStatusLine("Price sources", statusInfo, formatSources(status.PriceSourcePrimary, status.PriceSourceFallback), colorize))
	disabled := statusInfo
	disabledDetail := "none"
	if len(status.DisabledBins) > 0 {
		disabled = statusWarn
		disabledDetail = strings.Join(status.DisabledBins, ", ")
	}
	fmt.Fprintln(stdout, renderStatusLine("Disabled bins", disabled, disabledDetail, colorize))
	fmt.Fprintln(stdout, renderStatusLine("Sorted", statusInfo, strconv.Itoa(status.TotalSorted), colorize))
	if status.LastBin != "" {
		fmt.Fprintln(stdout, renderStatusLine("Last bin", statusInfo, status.LastBin, colorize))
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintln(stdout, renderStatusLine("PID", statusInfo, strconv.Itoa(status.PID), colorize))
	fmt.Fprintln(stdout, renderStatusLine("Socket", statusInfo, status.SocketPath, colorize))
	fmt.Fprintln(stdout, renderStatusLine("State file", statusInfo, status.StateFilePath, colorize))
	fmt.Fprintln(stdout, renderStatusLine("History DB", statusInfo, status.HistoryDBPath, colorize))
	fmt.Fprintln(stdout, renderStatusLine("CSV directory", statusInfo, status.CSVDir, colorize))

	if len(status.Dependencies) > 0 {
		fmt.Fprintln(stdout)
		for _, line := range renderSectionHeader("Dependencies", colorize) {
			fmt.Fprintln(stdout, line)
		}
		for _, line := range dependencyLines(status.Dependencies, colorize) {
			fmt.Fprintln(stdout, line)
		}
	}

	if len(status.Counts) > 0 {
		fmt.Fprintln(stdout)
		for _, line := range renderSectionHeader("Session Counts", colorize) {
			fmt.Fprintln(stdout, line)
		}
		fmt.Fprintln(stdout, renderTable(
			[]string{"Bin", "Count"},
			countRows(status.Counts),
			[]columnAlignment{alignLeft, alignRight},
		))
	}
}

func dependencyLines(deps []ipc.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps)+1)
	missing := make([]string, 0)
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}

func countRows(counts map[string]int) [][]string {
	bins := make([]string, 0, len(counts))
	for bin := range counts {
		bins = append(bins, bin)
	}
	sort.Strings(bins)
	rows := make([][]string, 0, len(bins))
	for _, bin := range bins {
		rows = append(rows, []string{bin, strconv.Itoa(counts[bin])})
	}
	return rows
}

func formatSources(primary, fallback string) string {
	if fallback == "" {
		return primary
	}
	return fmt.Sprintf("%s, then %s", primary, fallback)
}

func formatCycleLine(cycle ipc.CycleResult) string {
	name := cycle.Name
	if name == "" {
		name = "(unrecognized)"
	}
	var b strings.Builder
	b.WriteString(name)
	if cycle.SetCode != "" {
		b.WriteString(" [")
		b.WriteString(cycle.SetCode)
		if cycle.CollectorNumber != "" {
			b.WriteString(" ")
			b.WriteString(cycle.CollectorNumber)
		}
		b.WriteString("]")
	}
	fmt.Fprintf(&b, " conf=%.2f", cycle.Confidence)
	if cycle.PriceUSD != nil {
		fmt.Fprintf(&b, " $%.2f", *cycle.PriceUSD)
		if cycle.PriceSource != "" {
			fmt.Fprintf(&b, " (%s)", cycle.PriceSource)
		}
	} else {
		b.WriteString(" unpriced")
	}
	fmt.Fprintf(&b, " -> %s (%s)", cycle.Bin, cycle.Reason)
	return b.String()
}
