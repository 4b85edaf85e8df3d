// Package output renders run progress and results on the console.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/juancast26/storesim/internal/simulation/catalog"
	"github.com/juancast26/storesim/internal/simulation/executor"
	"github.com/juancast26/storesim/internal/simulation/metrics"
	"github.com/juancast26/storesim/internal/simulation/report"
)

// Cursor control
const (
	cursorUp  = "\033[%dA"
	clearLine = "\033[2K"
)

const (
	ruleWidth = 56
	boxWidth  = 55
	barWidth  = 40

	boxHorizontal  = "━"
	boxVertical    = "│"
	boxTopLeft     = "┌"
	boxTopRight    = "┐"
	boxBottomLeft  = "└"
	boxBottomRight = "┘"

	progressFilled = "█"
	progressEmpty  = "░"
)

// LiveStats contains the figures shown while a run is in progress.
type LiveStats struct {
	Progress  float64 // 0.0 to 1.0
	Completed int64
	Total     int64
	Elapsed   time.Duration

	ActiveWorkers int
	Workers       int

	Successes  int64
	Failures   int64
	ErrorRate  float64
	Throughput float64

	LatencyP95 time.Duration
	LatencyAvg time.Duration

	Phase string
}

// ConsoleConfig contains configuration for Console.
type ConsoleConfig struct {
	Name     string
	Workload string
	// Unit names what a task produces in throughput lines ("orders").
	Unit        string
	Writer      io.Writer
	Quiet       bool
	ForceColors bool
	ForceTTY    bool
	NoColor     bool
}

// Console manages console output for one run.
type Console struct {
	name     string
	workload string
	unit     string
	writer   io.Writer
	isTTY    bool
	quiet    bool
	palette  *Palette

	mu          sync.Mutex
	linesOutput int
}

// NewConsole creates a console renderer.
func NewConsole(config ConsoleConfig) *Console {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.Unit == "" {
		config.Unit = "tasks"
	}

	isTTY := config.ForceTTY || isTerminal(config.Writer)

	var palette *Palette
	switch {
	case config.NoColor:
		palette = NoColorPalette()
	case config.ForceColors:
		palette = DefaultPalette()
		palette.forceColor()
	case isTTY && supportsColors():
		palette = DefaultPalette()
	default:
		palette = NoColorPalette()
	}

	return &Console{
		name:     config.Name,
		workload: config.Workload,
		unit:     config.Unit,
		writer:   config.Writer,
		isTTY:    isTTY,
		quiet:    config.Quiet,
		palette:  palette,
	}
}

// IsTTY returns whether the output is a terminal.
func (c *Console) IsTTY() bool {
	return c.isTTY
}

// PrintHeader prints the run header.
func (c *Console) PrintHeader(tasks, concurrency int) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rule := c.palette.Border.Sprint(strings.Repeat(boxHorizontal, ruleWidth))
	c.writeln(rule)
	c.writeln(fmt.Sprintf("%s - Running [%s]",
		c.palette.Title.Sprint(c.name),
		executor.TypeSharedIterations))
	c.writeln(fmt.Sprintf("Workload: %s | Tasks: %s | Concurrency: %d",
		c.palette.Accent.Sprint(c.workload), formatNumber(int64(tasks)), concurrency))
	c.writeln(rule)
	c.writeln("")
}

// Progress shows stats in place on a terminal, or as one line otherwise.
func (c *Console) Progress(stats *LiveStats) {
	if c.isTTY {
		c.Update(stats)
	} else {
		c.PrintNonInteractiveUpdate(stats)
	}
}

// Update redraws the live display.
func (c *Console) Update(stats *LiveStats) {
	if c.quiet || !c.isTTY {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLive()
	lines := c.renderLiveStats(stats)
	c.linesOutput = len(lines)
	for _, line := range lines {
		c.writeln(line)
	}
}

// clearLive erases the previous live display. Caller holds c.mu.
func (c *Console) clearLive() {
	if c.linesOutput == 0 {
		return
	}
	c.write(fmt.Sprintf(cursorUp, c.linesOutput))
	for i := 0; i < c.linesOutput; i++ {
		c.write(clearLine + "\n")
	}
	c.write(fmt.Sprintf(cursorUp, c.linesOutput))
	c.linesOutput = 0
}

func (c *Console) renderLiveStats(stats *LiveStats) []string {
	p := c.palette
	var lines []string

	lines = append(lines, fmt.Sprintf("Progress: %s %s | %s/%s | %s",
		p.Good.Sprint(renderProgressBar(stats.Progress, barWidth)),
		p.Title.Sprintf("%.0f%%", stats.Progress*100),
		formatNumber(stats.Completed), formatNumber(stats.Total),
		p.Dim.Sprint(formatDuration(stats.Elapsed))))
	lines = append(lines, fmt.Sprintf("Phase:    %s", p.Accent.Sprint(stats.Phase)))
	lines = append(lines, "")

	lines = append(lines, p.Dim.Sprint(boxTopLeft+strings.Repeat(boxHorizontal, boxWidth-2)+boxTopRight))

	workers := fmt.Sprintf("Workers:  %s / %d", p.Value.Sprint(stats.ActiveWorkers), stats.Workers)
	ok := fmt.Sprintf("Success:  %s", p.Good.Sprint(formatNumber(stats.Successes)))
	lines = append(lines, c.formatBoxRow(workers, ok))

	rate := fmt.Sprintf("Rate:     %s", p.Good.Sprintf("%.1f/s", stats.Throughput))
	errColor := p.rateColor(stats.ErrorRate)
	errs := fmt.Sprintf("Errors:   %s (%s)",
		errColor.Sprint(formatNumber(stats.Failures)),
		errColor.Sprintf("%.1f%%", stats.ErrorRate*100))
	lines = append(lines, c.formatBoxRow(rate, errs))

	p95 := fmt.Sprintf("P95:      %s", p.Value.Sprint(formatDurationShort(stats.LatencyP95)))
	avg := fmt.Sprintf("Avg:      %s", p.Value.Sprint(formatDurationShort(stats.LatencyAvg)))
	lines = append(lines, c.formatBoxRow(p95, avg))

	lines = append(lines, p.Dim.Sprint(boxBottomLeft+strings.Repeat(boxHorizontal, boxWidth-2)+boxBottomRight))

	return lines
}

// formatBoxRow lays out two columns inside the stats box.
func (c *Console) formatBoxRow(left, right string) string {
	colWidth := (boxWidth - 4) / 2
	border := c.palette.Dim.Sprint(boxVertical)

	return fmt.Sprintf("%s %s%s%s %s%s %s",
		border,
		left, padding(left, colWidth),
		border,
		right, padding(right, colWidth),
		border)
}

func padding(s string, width int) string {
	n := width - len([]rune(stripANSI(s)))
	if n < 0 {
		n = 0
	}
	return strings.Repeat(" ", n)
}

func renderProgressBar(progress float64, width int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	filled := int(progress * float64(width))
	return "[" + strings.Repeat(progressFilled, filled) + strings.Repeat(progressEmpty, width-filled) + "]"
}

// PrintNonInteractiveUpdate prints a one-line status for pipes and CI logs.
func (c *Console) PrintNonInteractiveUpdate(stats *LiveStats) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeln(fmt.Sprintf("[%s] Progress: %.0f%% (%d/%d) | Workers: %d/%d | OK: %d | Errors: %d (%.1f%%) | Rate: %.1f/s | P95: %s",
		formatDuration(stats.Elapsed),
		stats.Progress*100,
		stats.Completed, stats.Total,
		stats.ActiveWorkers, stats.Workers,
		stats.Successes,
		stats.Failures, stats.ErrorRate*100,
		stats.Throughput,
		formatDurationShort(stats.LatencyP95)))
}

// PrintSummary prints the final result panel.
func (c *Console) PrintSummary(r *report.Report) {
	if r == nil {
		return
	}
	p := c.palette

	if c.quiet {
		if r.Passed {
			c.writeln(p.Good.Sprint("PASSED"))
		} else {
			c.writeln(p.Bad.Sprint("FAILED"))
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isTTY {
		c.clearLive()
	}

	status := p.Good.Sprint("Completed ✓")
	if !r.Passed {
		status = p.Bad.Sprint("Failed ✗")
	}

	rule := p.Border.Sprint(strings.Repeat(boxHorizontal, ruleWidth))
	c.writeln("")
	c.writeln(rule)
	c.writeln(fmt.Sprintf("%s - %s", p.Title.Sprint(r.Name), status))
	c.writeln(rule)
	c.writeln("")

	s := r.Summary
	errColor := p.rateColor(s.ErrorRate)
	c.writeln(fmt.Sprintf("Processed:     %s", p.Value.Sprint(formatNumber(int64(s.Successes)))))
	c.writeln(fmt.Sprintf("Errors:        %s (%s)",
		errColor.Sprint(formatNumber(int64(s.Failures))),
		errColor.Sprintf("%.1f%%", s.ErrorRate*100)))
	c.writeln(fmt.Sprintf("Total time:    %s", p.Value.Sprintf("%d ms", s.ElapsedMs)))
	c.writeln(fmt.Sprintf("Throughput:    %s", p.Value.Sprintf("%.1f %s/s", s.Throughput, c.unit)))
	c.writeln(fmt.Sprintf("Workers:       %d (concurrency %d)", s.Workers, s.Concurrency))
	c.writeln("")

	if r.Latency.Count > 0 {
		c.writeln(p.Label.Sprint("Latency Distribution:"))
		c.writeln(fmt.Sprintf("  Min:       %s", formatMillis(r.Latency.Min)))
		c.writeln(fmt.Sprintf("  P50:       %s", formatMillis(r.Latency.P50)))
		c.writeln(fmt.Sprintf("  P90:       %s", formatMillis(r.Latency.P90)))
		c.writeln(fmt.Sprintf("  P95:       %s", formatMillis(r.Latency.P95)))
		c.writeln(fmt.Sprintf("  P99:       %s", formatMillis(r.Latency.P99)))
		c.writeln(fmt.Sprintf("  Max:       %s", formatMillis(r.Latency.Max)))
		c.writeln("")
	}

	if len(s.FailureReasons) > 0 {
		c.writeln(p.Label.Sprint("Failure Reasons:"))
		for _, fr := range s.FailureReasons {
			c.writeln(fmt.Sprintf("  %s  %s", p.Bad.Sprintf("%6d", fr.Count), fr.Reason))
		}
		c.writeln("")
	}

	if len(r.Thresholds) > 0 {
		c.writeln(p.Label.Sprint("Thresholds:"))
		for _, t := range r.Thresholds {
			icon := p.SuccessIcon()
			if !t.Passed {
				icon = p.ErrorIcon()
			}
			line := fmt.Sprintf("  %s %s %s", icon, t.Metric, t.Expression)
			if t.Value != "" {
				line += fmt.Sprintf(" (actual: %s)", t.Value)
			}
			c.writeln(line)
		}
		c.writeln("")
	}
}

// PrintCatalog prints the product catalog as a table.
func (c *Console) PrintCatalog(products []catalog.Product) {
	p := c.palette

	c.mu.Lock()
	defer c.mu.Unlock()

	nameWidth := len("Product")
	for _, prod := range products {
		if n := len([]rune(prod.Name)); n > nameWidth {
			nameWidth = n
		}
	}

	c.writeln(p.Label.Sprintf("%-36s  %-*s  %15s", "ID", nameWidth, "Product", "Price ("+catalog.Currency+")"))
	for _, prod := range products {
		name := prod.Name + strings.Repeat(" ", nameWidth-len([]rune(prod.Name)))
		c.writeln(fmt.Sprintf("%s  %s  %s",
			p.Dim.Sprintf("%-36s", prod.ID),
			name,
			p.Value.Sprintf("%15s", formatNumber(prod.Price))))
	}
}

// StatsFromSnapshot combines executor and metrics state into LiveStats.
// snap may be nil when no metrics engine is attached.
func StatsFromSnapshot(stats *executor.Stats, snap *metrics.Snapshot) *LiveStats {
	live := &LiveStats{Phase: string(metrics.PhaseInit)}
	if stats != nil {
		live.Completed = stats.Completed
		live.Total = stats.TotalTasks
		live.Elapsed = stats.Elapsed
		live.ActiveWorkers = stats.ActiveWorkers
		live.Workers = stats.Workers
		live.Failures = stats.Failed
		live.Successes = stats.Completed - stats.Failed
		if stats.TotalTasks > 0 {
			live.Progress = float64(stats.Completed) / float64(stats.TotalTasks)
		}
		if stats.Completed > 0 {
			live.ErrorRate = float64(stats.Failed) / float64(stats.Completed)
		}
		if secs := stats.Elapsed.Seconds(); secs > 0 {
			live.Throughput = float64(live.Successes) / secs
		}
	}
	if snap != nil {
		live.Throughput = snap.Throughput
		live.LatencyP95 = snap.Latency.P95
		live.LatencyAvg = snap.Latency.Mean
		live.Phase = string(snap.CurrentPhase)
	}
	return live
}

func (c *Console) write(s string) {
	fmt.Fprint(c.writer, s)
}

func (c *Console) writeln(s string) {
	fmt.Fprintln(c.writer, s)
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %02ds", m, s)
}

// formatDurationShort formats a latency.
func formatDurationShort(d time.Duration) string {
	if d < time.Microsecond {
		return "0ms"
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func formatMillis(ms float64) string {
	return formatDurationShort(time.Duration(ms * float64(time.Millisecond)))
}

// formatNumber formats a number with thousands separators.
func formatNumber(n int64) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	var b strings.Builder
	offset := len(str) % 3
	if offset > 0 {
		b.WriteString(str[:offset])
	}
	for i := offset; i < len(str); i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(str[i : i+3])
	}
	return b.String()
}

// stripANSI removes ANSI escape codes from a string.
func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false

	for i := 0; i < len(s); i++ {
		if s[i] == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if (s[i] >= 'a' && s[i] <= 'z') || (s[i] >= 'A' && s[i] <= 'Z') {
				inEscape = false
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
