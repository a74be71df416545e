// Package sched provides the cooperative task scheduler and the periodic
// tick source that host the debounce engine.
package sched

import (
	"context"
	"log"
	"time"
)

// Counter is incremented once per timer tick.
type Counter interface {
	Inc() bool
}

// RunTimer increments c every period until ctx is done. It stands in for the
// hardware timer interrupt: it only ever increments.
func RunTimer(ctx context.Context, period time.Duration, c Counter) {
	t := time.NewTicker(period)
	defer t.Stop()
	runTicks(ctx, t.C, c)
}

func runTicks(ctx context.Context, tick <-chan time.Time, c Counter) {
	warned := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			if !c.Inc() && !warned {
				log.Printf("sched: tick counter saturated, update is not keeping up")
				warned = true
			}
		}
	}
}

// Task is a cooperative task: Init runs once, Update on every pass.
// Update must return promptly.
type Task struct {
	Name   string
	Init   func()
	Update func()
}

// Scheduler runs its tasks round robin, in registration order.
type Scheduler struct {
	tasks  []Task
	passes uint64
	inited bool
}

// New creates a scheduler for the given tasks.
func New(tasks ...Task) *Scheduler {
	return &Scheduler{tasks: tasks}
}

// Init calls every task's Init once, in order.
func (s *Scheduler) Init() {
	for _, t := range s.tasks {
		log.Printf("sched: init %s", t.Name)
		if t.Init != nil {
			t.Init()
		}
	}
	s.inited = true
}

// Pass runs every task's Update once, in order. The first pass runs Init
// if it has not been called.
func (s *Scheduler) Pass() {
	if !s.inited {
		s.Init()
	}
	for _, t := range s.tasks {
		if t.Update != nil {
			t.Update()
		}
	}
	s.passes++
}

// Passes returns the number of completed passes.
func (s *Scheduler) Passes() uint64 {
	return s.passes
}
