package session

import (
	"sync/atomic"
	"time"
)

// Step names one kind of request in a session.
type Step string

// Session steps.
const (
	StepInitial   Step = "initial page request"
	StepGate      Step = "submit to agegate"
	StepFirstPage Step = "load first leaderboard page"
	StepRank      Step = "leaderboard page"
	StepNext      Step = "next leaderboard page"
)

// Counter hands out process-wide request sequence numbers.
// The zero value is ready to use.
type Counter struct {
	n atomic.Int64
}

// Next returns the next sequence number, starting at 1.
func (c *Counter) Next() int64 {
	return c.n.Add(1)
}

// Load returns the number of sequence numbers issued.
func (c *Counter) Load() int64 {
	return c.n.Load()
}

// RequestEvent describes one completed or failed request.
type RequestEvent struct {
	Seq     int64
	Status  int
	Step    Step
	Page    int
	Method  string
	URL     string
	Elapsed time.Duration
	Err     error
}

// Observer receives a RequestEvent after every request.
// Observers are called from worker goroutines and must be safe for
// concurrent use.
type Observer interface {
	ObserveRequest(ev RequestEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev RequestEvent)

// ObserveRequest implements Observer.
func (f ObserverFunc) ObserveRequest(ev RequestEvent) {
	f(ev)
}

// Observers fans an event out to several observers in order.
type Observers []Observer

// ObserveRequest implements Observer.
func (o Observers) ObserveRequest(ev RequestEvent) {
	for _, obs := range o {
		if obs != nil {
			obs.ObserveRequest(ev)
		}
	}
}
