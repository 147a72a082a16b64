package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/oszuidwest/zwfm-screenrecorder/internal/config"
	"github.com/oszuidwest/zwfm-screenrecorder/internal/eventlog"
)

const defaultHistoryLimit = 20

// newHistoryCommand lists past recordings from the history log.
func newHistoryCommand(flags *cliFlags) *cobra.Command {
	var (
		limit  int
		offset int
		filter string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent recordings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := setupLogging(flags.logLevel); err != nil {
				return err
			}
			typeFilter, err := eventlog.ParseFilter(filter)
			if err != nil {
				return err
			}

			snap, err := loadConfig(flags.configPath)
			if err != nil {
				return err
			}
			if !snap.HasHistory() {
				return fmt.Errorf("recording history is disabled (history_log is %q)", config.HistoryDisabled)
			}
			path, err := historyPath(snap.HistoryLog)
			if err != nil {
				return err
			}

			events, more, err := eventlog.ReadLast(path, limit, offset, typeFilter)
			if err != nil {
				return fmt.Errorf("read history %s: %w", path, err)
			}
			return printHistory(cmd.OutOrStdout(), events, more)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", defaultHistoryLimit, fmt.Sprintf("number of events to show (max %d)", eventlog.MaxReadLimit))
	cmd.Flags().IntVar(&offset, "offset", 0, "number of newest events to skip")
	cmd.Flags().StringVar(&filter, "type", "all", "event type: all, recording or upload")
	return cmd
}

// printHistory writes events as a table, newest first.
func printHistory(w io.Writer, events []eventlog.Event, more bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tEVENT\tOUTPUT\tEXIT\tDETAIL")
	for i := range events {
		e := &events[i]
		exit, detail := "-", e.Message
		if d := e.Details; d != nil {
			if d.ExitCode != nil {
				exit = fmt.Sprint(*d.ExitCode)
			}
			switch {
			case d.Error != "":
				detail = d.Error
			case d.S3Key != "":
				detail = d.S3Key
			case d.Canvas != "":
				detail = d.Canvas
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Timestamp.Local().Format(time.DateTime), e.Type, e.Output, exit, detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if more {
		_, err := fmt.Fprintln(w, "(more events available, use --offset)")
		return err
	}
	return nil
}
