package ui

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/collection"
)

// ProgressBar renders a fixed-width bar.
type ProgressBar struct {
	width int
}

// NewProgressBar creates a bar width characters wide.
func NewProgressBar(width int) *ProgressBar {
	if width <= 0 {
		width = 30
	}
	return &ProgressBar{width: width}
}

// Render returns the bar for percent in [0,100].
func (pb *ProgressBar) Render(percent float64) string {
	percent = math.Max(0, math.Min(100, percent))
	filled := int(percent / 100 * float64(pb.width))
	return ProgressFullStyle.Render(strings.Repeat("#", filled)) +
		ProgressEmptyStyle.Render(strings.Repeat("-", pb.width-filled))
}

// AssetProgress reports per-asset completion. On a terminal it redraws
// one line; otherwise it prints one line per asset. Update is safe for
// concurrent use and matches the aggregator's progress callback.
type AssetProgress struct {
	mu      sync.Mutex
	w       io.Writer
	redraw  bool
	bar     *ProgressBar
	start   time.Time
	partial int
	done    int
	total   int
}

// NewAssetProgress creates a progress reporter writing to the UI output.
// redraw selects the single-line terminal mode.
func NewAssetProgress(redraw bool) *AssetProgress {
	return &AssetProgress{
		w:      output(),
		redraw: redraw,
		bar:    NewProgressBar(30),
		start:  time.Now(),
	}
}

// Update records that asset finished.
func (p *AssetProgress) Update(done, total int, asset collection.AssetRef, partial bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done, p.total = done, total
	if partial {
		p.partial++
	}
	percent := 100.0
	if total > 0 {
		percent = float64(done) / float64(total) * 100
	}
	mark := SuccessStyle.Render(Icon("✓", "+"))
	if partial {
		mark = WarningStyle.Render("!")
	}
	if p.redraw {
		fmt.Fprintf(p.w, "\r  [%s] %3.0f%% %d/%d %s %-30.30s", p.bar.Render(percent), percent, done, total, mark, asset.Name)
		return
	}
	fmt.Fprintf(p.w, "  [%d/%d] %s %s\n", done, total, mark, asset.Name)
}

// Finish ends the progress line and prints the elapsed time.
func (p *AssetProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.redraw && p.total > 0 {
		fmt.Fprintln(p.w)
	}
	fmt.Fprintf(p.w, "  %s %d assets in %s",
		StatLabelStyle.Render("Fetched"), p.done, formatDuration(time.Since(p.start)))
	if p.partial > 0 {
		fmt.Fprintf(p.w, ", %s", WarningStyle.Render(fmt.Sprintf("%d incomplete", p.partial)))
	}
	fmt.Fprintln(p.w)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
