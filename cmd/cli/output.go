package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/activity-collector/internal/collector"
	"github.com/activity-collector/internal/models"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

const (
	stateReady    = "ready"
	stateFailed   = "failed"
	stateDisabled = "disabled"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// sourceStatus is one row of the validate and sources tables
type sourceStatus struct {
	Type     models.SourceType
	Enabled  bool
	Schedule models.ScheduleFrequency
	Cron     string
	State    string
}

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown format %q (table, json, yaml)", format)
}

// renderReports prints the cycle reports. JSON and YAML include every
// collected item; the table shows one line per source.
func renderReports(w io.Writer, format string, reports []*collector.Report) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(reports)
	}

	if len(reports) == 0 {
		fmt.Fprintln(w, warningStyle.Render("No sources collected"))
		return nil
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Collected %d source(s)", len(reports))))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tOUTCOME\tITEMS\tINSERTED\tDURATION\tRUN")
	for _, r := range reports {
		items, inserted := "-", "-"
		if r.Result != nil && r.Result.Success {
			items = humanize.Comma(int64(r.Result.ItemsCollected))
		}
		if r.Response != nil {
			inserted = humanize.Comma(int64(r.Response.ItemsInserted))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.SourceType,
			outcomeStyle(r.Outcome).Render(r.Outcome),
			items,
			inserted,
			r.Duration.Round(time.Millisecond),
			dimStyle.Render(r.RunID),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, r := range reports {
		if r.Error != "" {
			fmt.Fprintf(w, "\n%s %s\n", errorStyle.Render(string(r.SourceType)+":"), r.Error)
		}
	}
	return nil
}

func outcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case collector.OutcomePushed:
		return successStyle
	case collector.OutcomeEmpty, collector.OutcomeDryRun:
		return warningStyle
	default:
		return errorStyle
	}
}

func renderValidation(w io.Writer, configErr error, rows []sourceStatus) {
	if configErr != nil {
		fmt.Fprintln(w, errorStyle.Render("Configuration: "+configErr.Error()))
	} else {
		fmt.Fprintln(w, successStyle.Render("Configuration OK"))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tSCHEDULE\tSTATUS")
	for _, r := range rows {
		style := dimStyle
		switch r.State {
		case stateReady:
			style = successStyle
		case stateFailed:
			style = errorStyle
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Type, r.Schedule, style.Render(r.State))
	}
	_ = tw.Flush()
}

func renderSources(w io.Writer, rows []sourceStatus) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tENABLED\tSCHEDULE\tCRON")
	for _, r := range rows {
		cron := r.Cron
		if cron == "" {
			cron = dimStyle.Render("-")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Type, strconv.FormatBool(r.Enabled), r.Schedule, cron)
	}
	_ = tw.Flush()
}

func renderHealth(w io.Writer, url string, healthy bool) {
	if healthy {
		fmt.Fprintln(w, successStyle.Render("Ingestion API is healthy: ")+url)
		return
	}
	fmt.Fprintln(w, errorStyle.Render("Ingestion API is not reachable: ")+url)
}
