package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// Bar renders fraction (clamped to [0,1]) as a fixed width bar
func Bar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * float64(width))
	return strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
}

// SearchProgress shows how far the radius of one location search has
// contracted. The search ends at a radius of 1.
type SearchProgress struct {
	mu          sync.Mutex
	location    string
	startRadius int
	radius      int
	found       int
	steps       int
	startTime   time.Time
	enabled     bool
}

// NewSearchProgress creates a tracker for a search starting at startRadius.
// A disabled tracker only counts.
func NewSearchProgress(location string, startRadius int, enabled bool) *SearchProgress {
	return &SearchProgress{
		location:    location,
		startRadius: startRadius,
		radius:      startRadius,
		startTime:   time.Now(),
		enabled:     enabled,
	}
}

// Fraction is the share of the radius range already searched
func (sp *SearchProgress) Fraction() float64 {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.fraction()
}

func (sp *SearchProgress) fraction() float64 {
	if sp.startRadius <= 1 {
		return 1
	}
	return float64(sp.startRadius-sp.radius) / float64(sp.startRadius-1)
}

// Step records a completed radius step; next is the radius the search
// moves on to and found the number of snaps it has so far.
func (sp *SearchProgress) Step(next, found int) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	sp.radius = next
	sp.found = found
	sp.steps++
	if sp.enabled {
		sp.print()
	}
}

// RateLimited notes a backoff at the current radius
func (sp *SearchProgress) RateLimited(wait time.Duration) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if sp.enabled {
		fmt.Fprintf(Output, "\n%s Rate limited at %dm. Waiting %s...\n",
			Yellow("⚠"), sp.radius, formatDuration(wait))
	}
}

// Done prints the summary line for this location
func (sp *SearchProgress) Done(err error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if !sp.enabled {
		return
	}
	if err != nil {
		fmt.Fprintf(Output, "\n%s %s: %v (%d snaps found)\n", Red("✗"), sp.location, err, sp.found)
		return
	}
	fmt.Fprintf(Output, "\n%s %s: %d snaps in %d queries (%s)\n",
		Green("✓"), sp.location, sp.found, sp.steps, formatDuration(time.Since(sp.startTime)))
}

// Found returns the latest snap count
func (sp *SearchProgress) Found() int {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.found
}

func (sp *SearchProgress) print() {
	fmt.Fprintf(Output, "\r%s [%s] radius %6dm • %d snaps",
		Cyan(sp.location),
		Bar(sp.fraction(), barWidth),
		sp.radius,
		sp.found)
}
