package transcode

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

// Unit is a fire-and-forget piece of background work
type Unit func(ctx context.Context)

// Scheduler accepts background units. Implementations give no ordering
// guarantee between units.
type Scheduler interface {
	Schedule(name string, unit Unit)
}

// Dispatcher runs each unit on its own goroutine, with at most
// maxConcurrent running at once. Units are never cancelled.
type Dispatcher struct {
	slots  chan struct{}
	wg     sync.WaitGroup
	logger *logrus.Logger
}

// NewDispatcher creates a dispatcher. maxConcurrent below 1 means 1.
func NewDispatcher(maxConcurrent int, logger *logrus.Logger) *Dispatcher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Dispatcher{
		slots:  make(chan struct{}, maxConcurrent),
		logger: logger,
	}
}

// Schedule starts unit in the background and returns immediately
func (d *Dispatcher) Schedule(name string, unit Unit) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		d.slots <- struct{}{}
		defer func() { <-d.slots }()

		defer func() {
			if r := recover(); r != nil {
				d.logger.WithFields(logrus.Fields{
					"unit":  name,
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("Background unit panicked")
			}
		}()

		unit(context.Background())
	}()
}

// Wait blocks until every scheduled unit has finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
