package validation

import "sync"

// Policy determines whether an Observer is deregistered after its first
// notification.
type Policy int

const (
	// Once deregisters the observer after one notification.
	Once Policy = iota
	// Always keeps the observer enrolled across notifications.
	Always
)

// Observer is notified with the terminal outcome of a validation, or
// with (nil, nil) when a passphrase prompt is cancelled and the machine
// returns to Start. Exactly one of documents/err is non-nil at a
// terminal notification.
type Observer func(documents *ValidatedDocuments, err error)

type subscription struct {
	observer Observer
	policy   Policy
}

// observerRegistry is private to a single machine instance (spec §9:
// the source's module-scoped observer list is a bug this core must not
// repeat).
type observerRegistry struct {
	mu   sync.Mutex
	subs []subscription
}

func newObserverRegistry() *observerRegistry {
	return &observerRegistry{}
}

// subscribe enrolls an observer. If the machine is already terminal,
// callers are expected to invoke it synchronously themselves instead
// of enrolling it blindly — see Machine.subscribe.
func (r *observerRegistry) subscribe(obs Observer, policy Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, subscription{observer: obs, policy: policy})
}

// notify invokes every observer in subscription order with the current
// (documents, err) pair, then atomically drops every Once subscriber.
func (r *observerRegistry) notify(documents *ValidatedDocuments, err error) {
	r.mu.Lock()
	subs := make([]subscription, len(r.subs))
	copy(subs, r.subs)
	remaining := r.subs[:0]
	for _, s := range r.subs {
		if s.policy == Always {
			remaining = append(remaining, s)
		}
	}
	r.subs = remaining
	r.mu.Unlock()

	for _, s := range subs {
		s.observer(documents, err)
	}
}
