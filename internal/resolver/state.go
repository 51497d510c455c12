package resolver

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/models"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/storage"
)

// StateRecorder receives state-machine instrumentation events.
type StateRecorder interface {
	RenderFailure()
	ImageUnavailable()
}

type nopStateRecorder struct{}

func (nopStateRecorder) RenderFailure()    {}
func (nopStateRecorder) ImageUnavailable() {}

// Tracker drives the per-record image state machine
// Loading -> Resolved -> Retrying -> ... -> Unavailable. Transitions are
// driven by explicit events: a record becoming visible (Current) and a
// render failure reported by the display layer (RenderFailed).
//
// Within one record only one resolution pass is in flight at a time; a
// render-failure retry waits for the prior pass to finish. Records are
// otherwise independent.
type Tracker struct {
	resolver       *Resolver
	store          *storage.ImageStore
	recorder       StateRecorder
	maxRetries     int
	unavailableURL string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTracker creates a Tracker. recorder may be nil.
func NewTracker(res *Resolver, store *storage.ImageStore, maxRetries int, unavailableURL string, recorder StateRecorder) *Tracker {
	if recorder == nil {
		recorder = nopStateRecorder{}
	}
	return &Tracker{
		resolver:       res,
		store:          store,
		recorder:       recorder,
		maxRetries:     maxRetries,
		unavailableURL: unavailableURL,
		locks:          make(map[string]*sync.Mutex),
	}
}

// Current returns the record's image state, running the first resolution
// pass if the record has not been seen yet.
func (t *Tracker) Current(ctx context.Context, record *models.CatalogRecord) models.ImageState {
	lock := t.lockFor(record.ID)
	lock.Lock()
	defer lock.Unlock()

	if state, ok := t.store.Get(record.ID); ok {
		return *state
	}

	state := &models.ImageState{
		RecordID:   record.ID,
		Phase:      models.ImageLoading,
		CurrentURL: t.resolver.Placeholder(),
	}
	t.store.Set(record.ID, state)

	state.CurrentURL = t.resolver.Resolve(ctx, record)
	state.Phase = models.ImageResolved
	t.store.Set(record.ID, state)

	return *state
}

// RenderFailed handles a render-failure signal from the display layer: the
// attempt counter is incremented and resolution restarts from the top of
// the candidate list. Once the counter reaches the ceiling the record is
// frozen at the terminal unavailable placeholder and no further network
// probes happen for it.
func (t *Tracker) RenderFailed(ctx context.Context, record *models.CatalogRecord) models.ImageState {
	lock := t.lockFor(record.ID)
	lock.Lock()
	defer lock.Unlock()

	state, ok := t.store.Get(record.ID)
	if !ok {
		state = &models.ImageState{
			RecordID:   record.ID,
			Phase:      models.ImageLoading,
			CurrentURL: t.resolver.Placeholder(),
		}
	}

	if state.Phase == models.ImageUnavailable {
		return *state
	}

	t.recorder.RenderFailure()
	state.Attempts++

	if state.Attempts >= t.maxRetries {
		state.Phase = models.ImageUnavailable
		state.CurrentURL = t.unavailableURL
		t.store.Set(record.ID, state)
		t.recorder.ImageUnavailable()
		slog.Info("Image retry ceiling reached", "title", record.Title, "attempts", state.Attempts)
		return *state
	}

	state.Phase = models.ImageRetrying
	t.store.Set(record.ID, state)

	state.CurrentURL = t.resolver.Resolve(ctx, record)
	state.Phase = models.ImageResolved
	t.store.Set(record.ID, state)

	return *state
}

// Evict discards a record's image state when it leaves the visible set.
func (t *Tracker) Evict(recordID string) {
	t.store.Delete(recordID)

	t.mu.Lock()
	delete(t.locks, recordID)
	t.mu.Unlock()
}

func (t *Tracker) lockFor(recordID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock, ok := t.locks[recordID]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[recordID] = lock
	}
	return lock
}
