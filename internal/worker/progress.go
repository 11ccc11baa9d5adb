package worker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/MeKo-Tech/wangtiles/internal/pipeline"
	"github.com/dustin/go-humanize"
)

const barWidth = 30

// Progress tracks a batch and redraws a single terminal line as grids finish.
type Progress struct {
	startTime time.Time
	output    io.Writer
	total     int
	completed int
	failed    int
	skipped   int
	cells     int64
	bytes     int64
	mu        sync.RWMutex
	enabled   bool
}

// NewProgress creates a tracker for total grids writing to stderr.
func NewProgress(total int, enabled bool) *Progress {
	return &Progress{
		total:     total,
		startTime: time.Now(),
		output:    os.Stderr,
		enabled:   enabled,
	}
}

// Update records the pool's counters and redraws when enabled.
func (p *Progress) Update(completed, total, failed int) {
	p.mu.Lock()
	p.completed, p.total, p.failed = completed, total, failed
	p.mu.Unlock()

	if p.enabled {
		p.Print()
	}
}

// Callback returns a ProgressFunc suitable for Config.OnProgress.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

// Record adds the output of one successful job to the totals.
func (p *Progress) Record(out pipeline.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if out.Skipped {
		p.skipped++
		return
	}
	p.bytes += out.Bytes
	if out.Grid != nil {
		p.cells += int64(out.Grid.Width() * out.Grid.Height())
	}
}

// Print redraws the progress line.
func (p *Progress) Print() {
	p.mu.RLock()
	completed, total, failed := p.completed, p.total, p.failed
	elapsed := time.Since(p.startTime)
	p.mu.RUnlock()

	rate := perSecond(completed, elapsed)

	var sb strings.Builder
	fmt.Fprintf(&sb, "\r[%s] %d/%d grids", progressBar(completed, total), completed, total)
	if failed > 0 {
		fmt.Fprintf(&sb, " (%d failed)", failed)
	}
	fmt.Fprintf(&sb, " - %.1f grids/sec", rate)
	switch {
	case completed == total:
		fmt.Fprintf(&sb, " - Done in %s", formatDuration(elapsed))
	case rate > 0:
		eta := time.Duration(float64(total-completed)/rate) * time.Second
		fmt.Fprintf(&sb, " - ETA: %s", formatDuration(eta))
	}
	// Clear leftovers from a longer previous line.
	sb.WriteString(strings.Repeat(" ", 10))

	fmt.Fprint(p.output, sb.String())
}

// Done prints the final line followed by a newline.
func (p *Progress) Done() {
	if p.enabled {
		p.Print()
		fmt.Fprintln(p.output)
	}
}

// Summary describes the finished batch.
func (p *Progress) Summary() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	elapsed := time.Since(p.startTime)
	s := fmt.Sprintf("Generated %d/%d grids (%d failed", p.completed-p.failed-p.skipped, p.total, p.failed)
	if p.skipped > 0 {
		s += fmt.Sprintf(", %d skipped", p.skipped)
	}
	return s + fmt.Sprintf(") with %s tiles, %s written in %s (%.1f grids/sec)",
		humanize.Comma(p.cells), humanize.Bytes(uint64(p.bytes)), formatDuration(elapsed), perSecond(p.completed, elapsed))
}

func progressBar(completed, total int) string {
	filled := 0
	if total > 0 {
		filled = min(completed*barWidth/total, barWidth)
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

func perSecond(n int, d time.Duration) float64 {
	if n == 0 || d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
