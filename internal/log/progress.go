package log

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const barWidth = 20

// Progress reports completion of a batch of runs. It is safe for
// concurrent use by worker goroutines.
type Progress struct {
	mu        sync.Mutex
	out       io.Writer
	name      string
	total     int
	current   int
	breached  int
	startTime time.Time
	showBar   bool
	now       func() time.Time
}

// NewProgress creates a reporter for total runs. A nil out disables the bar;
// completion is always logged.
func NewProgress(out io.Writer, name string, total int) *Progress {
	return &Progress{
		out:       out,
		name:      name,
		total:     total,
		startTime: time.Now(),
		showBar:   out != nil,
		now:       time.Now,
	}
}

// RunDone records one finished run
func (p *Progress) RunDone(breached bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current++
	if breached {
		p.breached++
	}
	if p.showBar {
		fmt.Fprint(p.out, p.line())
	}
}

// Current returns completed and breached run counts
func (p *Progress) Current() (done, breached int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.breached
}

// Finish closes the bar and logs the batch duration
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	duration := p.now().Sub(p.startTime)
	if p.showBar {
		fmt.Fprintf(p.out, "\r\033[K%s completed (%d runs, %v)\n", p.name, p.current, duration.Round(time.Millisecond))
	}

	log.Info().
		Str("batch", p.name).
		Int("runs", p.current).
		Int("breached", p.breached).
		Dur("duration", duration).
		Msg("Monte Carlo batch completed")
}

// Fail closes the bar with a failure reason
func (p *Progress) Fail(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.showBar {
		fmt.Fprintf(p.out, "\r\033[K%s failed: %s\n", p.name, reason)
	}
	log.Error().
		Str("batch", p.name).
		Int("completed_runs", p.current).
		Int("total_runs", p.total).
		Str("reason", reason).
		Msg("Monte Carlo batch failed")
}

func (p *Progress) line() string {
	var output strings.Builder

	output.WriteString("\r\033[K")
	output.WriteString(p.name)

	if p.total <= 0 {
		fmt.Fprintf(&output, " (%d)", p.current)
		return output.String()
	}

	filled := barWidth * p.current / p.total
	output.WriteString(" [")
	output.WriteString(strings.Repeat("█", filled))
	output.WriteString(strings.Repeat("░", barWidth-filled))
	fmt.Fprintf(&output, "] %d/%d (%.1f%%)", p.current, p.total, float64(p.current)/float64(p.total)*100)

	if elapsed := p.now().Sub(p.startTime); p.current > 0 && elapsed > 0 {
		rate := float64(p.current) / elapsed.Seconds()
		eta := time.Duration(float64(p.total-p.current) / rate * float64(time.Second))
		fmt.Fprintf(&output, " ETA: %v", eta.Round(time.Second))
	}
	return output.String()
}
