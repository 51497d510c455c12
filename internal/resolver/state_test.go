package resolver

import (
	"context"
	"net/http"
	"testing"

	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/models"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/storage"
)

func newTestTracker(t *testing.T, res *Resolver) *Tracker {
	t.Helper()
	return NewTracker(res, storage.New(), 3, "/static/img/no-image.png", nil)
}

func TestTrackerFirstResolution(t *testing.T) {
	direct, hits := newProbeServer(t, http.StatusOK)
	res := New(testConfig("https://ipfs.example/ipfs/"), nil, nil)
	tracker := newTestTracker(t, res)

	record := &models.CatalogRecord{
		ID:             "rec-1",
		Title:          "First Resolution",
		DirectImageURL: direct.URL + "/art.png",
	}

	state := tracker.Current(context.Background(), record)
	if state.Phase != models.ImageResolved {
		t.Errorf("Expected Resolved phase, got %s", state.Phase)
	}
	if state.CurrentURL != record.DirectImageURL {
		t.Errorf("Expected direct URL, got %s", state.CurrentURL)
	}
	if state.Attempts != 0 {
		t.Errorf("Expected zero attempts, got %d", state.Attempts)
	}

	// A second request must reuse the stored state, not probe again.
	before := *hits
	tracker.Current(context.Background(), record)
	if *hits != before {
		t.Errorf("Expected no additional probes, got %d extra", *hits-before)
	}
}

func TestTrackerRetryCeiling(t *testing.T) {
	direct, hits := newProbeServer(t, http.StatusOK)
	res := New(testConfig("https://ipfs.example/ipfs/"), nil, nil)
	tracker := newTestTracker(t, res)

	record := &models.CatalogRecord{
		ID:             "rec-2",
		Title:          "Flaky Render",
		DirectImageURL: direct.URL + "/art.png",
	}

	tracker.Current(context.Background(), record)

	// First two render failures re-resolve from the top of the chain.
	for signal := 1; signal <= 2; signal++ {
		state := tracker.RenderFailed(context.Background(), record)
		if state.Phase != models.ImageResolved {
			t.Fatalf("Signal %d: expected Resolved, got %s", signal, state.Phase)
		}
		if state.Attempts != signal {
			t.Fatalf("Signal %d: expected %d attempts, got %d", signal, signal, state.Attempts)
		}
	}

	// The third signal hits the ceiling: terminal placeholder, no probe.
	probesBefore := *hits
	state := tracker.RenderFailed(context.Background(), record)
	if state.Phase != models.ImageUnavailable {
		t.Fatalf("Expected Unavailable after ceiling, got %s", state.Phase)
	}
	if state.CurrentURL != "/static/img/no-image.png" {
		t.Errorf("Expected terminal placeholder, got %s", state.CurrentURL)
	}
	if *hits != probesBefore {
		t.Errorf("Expected no probe on the ceiling signal, got %d extra", *hits-probesBefore)
	}

	// Further signals are ignored and never probe.
	state = tracker.RenderFailed(context.Background(), record)
	if state.Phase != models.ImageUnavailable {
		t.Errorf("Expected Unavailable to be terminal, got %s", state.Phase)
	}
	if state.Attempts != 3 {
		t.Errorf("Expected attempt counter frozen at 3, got %d", state.Attempts)
	}
	if *hits != probesBefore {
		t.Errorf("Expected no probes after ceiling, got %d extra", *hits-probesBefore)
	}
}

func TestTrackerEvictResetsState(t *testing.T) {
	direct, _ := newProbeServer(t, http.StatusOK)
	res := New(testConfig("https://ipfs.example/ipfs/"), nil, nil)
	tracker := newTestTracker(t, res)

	record := &models.CatalogRecord{
		ID:             "rec-3",
		Title:          "Evicted",
		DirectImageURL: direct.URL + "/art.png",
	}

	tracker.Current(context.Background(), record)
	tracker.RenderFailed(context.Background(), record)
	tracker.Evict(record.ID)

	// Re-entering the visible set starts from scratch.
	state := tracker.Current(context.Background(), record)
	if state.Attempts != 0 {
		t.Errorf("Expected fresh state after eviction, got %d attempts", state.Attempts)
	}
	if state.Phase != models.ImageResolved {
		t.Errorf("Expected Resolved after re-resolution, got %s", state.Phase)
	}
}
