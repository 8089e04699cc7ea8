package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"tunecrawl/internal/api"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func printSection(out io.Writer, title string, colorize bool) {
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
}

func printStatus(cmd *cobra.Command, baseURL string, online bool, status *api.StatusResponse, health *api.HealthResponse) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	printSection(out, "Daemon", colorize)
	if online {
		fmt.Fprintln(out, renderStatusLine("API", statusOK, "Running at "+baseURL, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("API", statusWarn, "Not running (catalog read from storage)", colorize))
	}
	if health != nil {
		for _, line := range healthLines(health, colorize) {
			fmt.Fprintln(out, line)
		}
	}
	fmt.Fprintln(out)

	printSection(out, "Catalog", colorize)
	rows := [][]string{
		{"Tracks", strconv.Itoa(status.TotalTracks)},
		{"Aggregations", strconv.Itoa(status.AggregationCount)},
		{"Last aggregation", derefOr(status.LastAggregation, "never")},
		{"Created", status.CreatedAt},
		{"Sources", joinOr(status.Sources, "-")},
		{"Genres", joinOr(status.Genres, "-")},
	}
	fmt.Fprint(out, renderTable(fieldValueColumns, rows))
	fmt.Fprintln(out)
}

func printHealth(cmd *cobra.Command, health *api.HealthResponse, colorize bool) {
	out := cmd.OutOrStdout()
	printSection(out, "Health", colorize)
	for _, line := range healthLines(health, colorize) {
		fmt.Fprintln(out, line)
	}
}

func healthLines(health *api.HealthResponse, colorize bool) []string {
	lines := make([]string, 0, 6+len(health.Feeds))
	overall := statusOK
	if health.Status != "ok" {
		overall = statusWarn
	}
	lines = append(lines, renderStatusLine("Overall", overall, health.Status, colorize))

	if health.StoreError != "" {
		lines = append(lines, renderStatusLine("Store", statusError, health.Store+": "+health.StoreError, colorize))
	} else {
		lines = append(lines, renderStatusLine("Store", statusOK, health.Store, colorize))
	}
	lines = append(lines, renderStatusLine("Sources", statusInfo, joinOr(health.Sources, "-")+" (fallback "+health.Fallback+")", colorize))

	sched := health.Scheduler
	schedKind := statusOK
	schedDetail := fmt.Sprintf("idle, %d runs, every %ds", sched.Runs, sched.IntervalSeconds)
	if sched.Running {
		schedDetail = fmt.Sprintf("running, %d runs, every %ds", sched.Runs, sched.IntervalSeconds)
	}
	if sched.LastError != "" {
		schedKind = statusWarn
		schedDetail += "; last error: " + sched.LastError
	}
	lines = append(lines, renderStatusLine("Scheduler", schedKind, schedDetail, colorize))

	names := make([]string, 0, len(health.Feeds))
	for name := range health.Feeds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		kind := statusOK
		if health.Feeds[name] != "closed" {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine("Feed "+name, kind, "breaker "+health.Feeds[name], colorize))
	}
	return lines
}

func derefOr(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}

func joinOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}
