package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DownloadProgress provides a clean, minimal progress display for the
// download phase
type DownloadProgress struct {
	mu              sync.Mutex
	total           int
	downloaded      int
	skipped         int
	failed          int
	bytesDownloaded int64
	current         string
	startTime       time.Time
	isDebug         bool
}

// NewDownloadProgress creates a display for total files. In debug mode
// every file gets its own line instead of the rewriting progress line.
func NewDownloadProgress(total int, debug bool) *DownloadProgress {
	return &DownloadProgress{
		total:     total,
		startTime: time.Now(),
		isDebug:   debug,
	}
}

// Complete marks a download as stored
func (p *DownloadProgress) Complete(name string, size int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.downloaded++
	p.bytesDownloaded += size
	p.current = name

	if p.isDebug {
		fmt.Fprintf(Output, "%s %s • %s\n", Green("✓"), name, formatBytes(size))
		return
	}
	p.printProgress()
}

// Skip marks a file that was already on disk
func (p *DownloadProgress) Skip(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.skipped++
	p.current = name

	if p.isDebug {
		fmt.Fprintf(Output, "%s %s • %s\n", Dim("-"), name, Dim("exists"))
		return
	}
	p.printProgress()
}

// Fail marks a download as failed
func (p *DownloadProgress) Fail(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failed++
	p.current = name

	if p.isDebug {
		fmt.Fprintf(Output, "%s Failed: %s - %v\n", Red("✗"), name, err)
		return
	}
	p.printProgress()
}

// Counts returns downloaded, skipped and failed totals
func (p *DownloadProgress) Counts() (downloaded, skipped, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.downloaded, p.skipped, p.failed
}

func (p *DownloadProgress) done() int {
	return p.downloaded + p.skipped + p.failed
}

func (p *DownloadProgress) printProgress() {
	fraction := 1.0
	if p.total > 0 {
		fraction = float64(p.done()) / float64(p.total)
	}
	filled := int(fraction * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)

	line := fmt.Sprintf("%s [%s] %d/%d • %s",
		Cyan("downloading"),
		bar,
		p.done(),
		p.total,
		formatBytes(p.bytesDownloaded),
	)
	if p.current != "" {
		line += fmt.Sprintf(" • %s", p.current)
	}
	if p.failed > 0 {
		line += fmt.Sprintf(" • %s", Red(fmt.Sprintf("%d errors", p.failed)))
	}

	fmt.Fprintf(Output, "\r%s\r%s", strings.Repeat(" ", Width(120)-1), line)
}

// Finish prints the summary of the download phase
func (p *DownloadProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.startTime)
	if !p.isDebug {
		fmt.Fprintln(Output)
	}
	fmt.Fprintf(Output, "\n%s Downloaded %d snaps\n", Green("✓"), p.downloaded)
	fmt.Fprintf(Output, "  %s %s in %s\n", Dim("•"), formatBytes(p.bytesDownloaded), formatDuration(elapsed))
	if p.skipped > 0 {
		fmt.Fprintf(Output, "  %s %d already on disk\n", Dim("•"), p.skipped)
	}
	if p.failed > 0 {
		fmt.Fprintf(Output, "  %s %d downloads failed\n", Dim("•"), p.failed)
	}
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// formatBytes formats bytes in a human-readable way
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
