package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/nao1215/boardcrawl/internal/session"
)

// progressPrinter prints one line per successful request:
//
//	%4d: %d - (%s)%s
//
// with the sequence number, status, step and URL.
type progressPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

// ObserveRequest implements session.Observer. Failed requests are left to
// the abort report.
func (p *progressPrinter) ObserveRequest(ev session.RequestEvent) {
	if ev.Err != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%4d: %d - (%s)%s\n", ev.Seq, ev.Status, progressLabel(ev), ev.URL)
}

func progressLabel(ev session.RequestEvent) string {
	if ev.Page > 0 && (ev.Step == session.StepRank || ev.Step == session.StepNext) {
		return fmt.Sprintf("%s %d", ev.Step, ev.Page)
	}
	return string(ev.Step)
}
