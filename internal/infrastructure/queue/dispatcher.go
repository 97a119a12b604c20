package queue

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/decorhub/storefront/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	writeTimeout   = 3 * time.Second
)

// Dispatcher applies session snapshot writes on a fixed set of workers using
// consistent hashing on the session id, guaranteeing per-session ordering.
type Dispatcher struct {
	workers []chan ports.SnapshotWrite
	store   ports.SnapshotStore
	log     zerolog.Logger
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

var _ ports.SnapshotQueue = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, store ports.SnapshotStore, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.SnapshotWrite, numWorkers),
		store:   store,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.SnapshotWrite, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. They run until Close.
func (d *Dispatcher) Start() {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(i, ch)
	}
}

// Enqueue sends a write to the worker responsible for its session.
// The call is non-blocking up to channelBuffer capacity. Writes after Close
// are dropped.
func (d *Dispatcher) Enqueue(w ports.SnapshotWrite) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn().Bool("signed_in", w.SignedIn).Msg("snapshot write dropped after close")
		return
	}
	d.workers[d.shardIndex(w.SessionID)] <- w
}

// Close stops accepting writes and waits until the queued ones are applied.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// shardIndex maps a session id deterministically to a worker index.
func (d *Dispatcher) shardIndex(sessionID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(id int, ch <-chan ports.SnapshotWrite) {
	defer d.wg.Done()
	for w := range ch {
		if err := d.apply(w); err != nil {
			d.log.Error().Err(err).
				Bool("signed_in", w.SignedIn).
				Int("worker_id", id).
				Msg("snapshot write failed")
		}
	}
}

func (d *Dispatcher) apply(w ports.SnapshotWrite) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if w.SignedIn {
		return d.store.Save(ctx, w.SessionID, w.Identity, w.TTL)
	}
	return d.store.Delete(ctx, w.SessionID)
}
