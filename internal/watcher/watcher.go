// Package watcher periodically re-fetches a Status Document for an
// already-valid license and feeds it back into its facade, exercising
// the Valid+RetrievedStatusData transition the state machine already
// supports for this purpose (grounded on the maintenance package's
// cron-driven scheduler).
package watcher

import (
	"context"
	"errors"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/readium/r2-lcp-go/internal/lcpdoc"
	"github.com/readium/r2-lcp-go/internal/validation"
)

// Target is the facade and status link a watcher entry refreshes on
// each tick.
type Target struct {
	Facade     *validation.Facade
	StatusLink lcpdoc.Link
}

// StatusWatcher periodically re-fetches each registered license's
// Status Document and feeds it back into the corresponding facade.
type StatusWatcher struct {
	network lcpdoc.NetworkFetcher
	cron    *cron.Cron
	logger  zerolog.Logger

	mu      sync.Mutex
	running bool
	targets map[string]Target
}

// New builds a StatusWatcher. network performs the actual SD fetch.
func New(network lcpdoc.NetworkFetcher, logger zerolog.Logger) *StatusWatcher {
	return &StatusWatcher{
		network: network,
		cron:    cron.New(),
		logger:  logger.With().Str("component", "status_watcher").Logger(),
		targets: make(map[string]Target),
	}
}

// Watch registers a license id for periodic status refresh.
func (w *StatusWatcher) Watch(licenseID string, target Target) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.targets[licenseID] = target
}

// Unwatch stops refreshing licenseID's status.
func (w *StatusWatcher) Unwatch(licenseID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.targets, licenseID)
}

// Start schedules the refresh sweep at the given cron spec (e.g.
// "0 */6 * * *" for every six hours).
func (w *StatusWatcher) Start(spec string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errors.New("status watcher already running")
	}

	if _, err := w.cron.AddFunc(spec, w.sweep); err != nil {
		return err
	}
	w.cron.Start()
	w.running = true
	w.logger.Info().Str("spec", spec).Msg("status watcher started")
	return nil
}

// Stop halts the schedule without waiting; the returned context is done
// once any in-flight sweep has finished.
func (w *StatusWatcher) Stop() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	w.running = false
	return w.cron.Stop()
}

func (w *StatusWatcher) sweep() {
	w.mu.Lock()
	targets := make(map[string]Target, len(w.targets))
	for id, t := range w.targets {
		targets[id] = t
	}
	w.mu.Unlock()

	for id, target := range targets {
		status, body, err := w.network.Fetch(context.Background(), target.StatusLink.Href)
		if err != nil || status != 200 {
			w.logger.Warn().Str("license_id", id).Err(err).Int("status", status).Msg("status refresh fetch failed")
			continue
		}
		target.Facade.Validate(validation.Seed{Kind: validation.SeedStatus, Bytes: body}, nil)
	}
}
