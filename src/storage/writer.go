package storage

import (
	"fmt"
	"sync"

	"wwasd-relay/src/cache"
	"wwasd-relay/src/helpers"
	"wwasd-relay/src/interfaces"
	"wwasd-relay/src/logger"
)

// -----------------------------------------------------------------------------
// DumpWriter
// -----------------------------------------------------------------------------

// DumpWriter persists the caches in the background. Ingestion kicks it after
// every accepted write and never waits for the disk: a slow or failing dump
// must not block or fail an ingestion response.
//
// One consumer goroutine drains two capacity-1 signal channels, so dumps
// serialize and a burst of kicks coalesces into a single dump of the current
// full store. Dumping the whole store each time (instead of per-record
// deltas) is what makes out-of-order durable writes impossible.
type DumpWriter struct {
	Store  interfaces.IDurableStore
	State  *cache.StateCache
	Port   *cache.PortCache
	Logger *logger.Logger

	stateKick chan struct{}
	portKick  chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
}

// -----------------------------------------------------------------------------

// NewDumpWriter creates a writer. A nil store puts the relay in memory-only
// mode: kicks are accepted and dropped.
func NewDumpWriter(store interfaces.IDurableStore, state *cache.StateCache, port *cache.PortCache, log *logger.Logger) *DumpWriter {
	return &DumpWriter{
		Store:     store,
		State:     state,
		Port:      port,
		Logger:    log,
		stateKick: make(chan struct{}, 1),
		portKick:  make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

// Start launches the consumer goroutine.
func (w *DumpWriter) Start() {
	w.wg.Add(1)
	go w.run()
}

// -----------------------------------------------------------------------------

func (w *DumpWriter) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stateKick:
			w.dumpState()
		case <-w.portKick:
			w.dumpPort()
		case <-w.done:
			return
		}
	}
}

// -----------------------------------------------------------------------------

// KickState schedules a state dump. Never blocks; a pending kick absorbs
// later ones.
func (w *DumpWriter) KickState() {
	select {
	case w.stateKick <- struct{}{}:
	default:
	}
}

// -----------------------------------------------------------------------------

// KickPort schedules a port snapshot dump.
func (w *DumpWriter) KickPort() {
	select {
	case w.portKick <- struct{}{}:
	default:
	}
}

// -----------------------------------------------------------------------------

func (w *DumpWriter) dumpState() {
	if w.Store == nil {
		return
	}
	recs := w.State.Snapshot()
	if err := w.Store.SaveStateDump(recs); err != nil {
		// Logged, never propagated: ingestion already succeeded in memory.
		w.Logger.Error("%v", helpers.NewPersistence(fmt.Sprintf("state dump failed (%d records)", len(recs)), err))
		return
	}
	w.Logger.Debug("State dump persisted (%d records)", len(recs))
}

// -----------------------------------------------------------------------------

func (w *DumpWriter) dumpPort() {
	if w.Store == nil {
		return
	}
	snap, ok := w.Port.Latest()
	if !ok {
		return
	}
	if err := w.Store.SavePortSnapshot(&snap); err != nil {
		w.Logger.Error("%v", helpers.NewPersistence("port snapshot dump failed", err))
		return
	}
	w.Logger.Debug("Port snapshot persisted (%d positions)", len(snap.Positions))
}

// -----------------------------------------------------------------------------

// Stop shuts the consumer down and writes one final dump of both caches so a
// clean shutdown loses nothing.
func (w *DumpWriter) Stop() {
	close(w.done)
	w.wg.Wait()
	w.dumpState()
	w.dumpPort()
}
