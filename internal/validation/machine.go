package validation

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// terminalKind records whether a Machine has ever reached a terminal
// notification, for the benefit of late subscribers (spec §4.3).
type terminalKind int

const (
	terminalNone terminalKind = iota
	terminalValid
	terminalFailure
)

// Machine runs a single license validation as a cooperative,
// single-threaded event loop: one event is read, the transition table
// is consulted, and at most one handler goroutine is in flight at a
// time producing the next event. This mirrors spec §5's "one logical
// event loop, never two transitions in flight simultaneously" without
// blocking the loop itself on long-running handlers (interactive
// passphrase prompts can take anywhere from seconds to hours).
type Machine struct {
	deps      *dependencies
	logger    zerolog.Logger
	observers *observerRegistry

	events chan Event
	ctx    context.Context
	cancel context.CancelFunc

	state State

	termMu    sync.Mutex
	terminal  terminalKind
	lastDocs  *ValidatedDocuments
	lastErr   error
}

func newMachine(deps *dependencies, logger zerolog.Logger) *Machine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Machine{
		deps:      deps,
		logger:    logger,
		observers: newObserverRegistry(),
		events:    make(chan Event, 32),
		ctx:       ctx,
		cancel:    cancel,
		state:     State{kind: stateStart},
	}
}

// run drives the event loop until the machine is closed. Call it from
// its own goroutine.
func (m *Machine) run() {
	for {
		select {
		case <-m.ctx.Done():
			return
		case ev := <-m.events:
			m.process(ev)
		}
	}
}

func (m *Machine) dispatch(ev Event) {
	select {
	case m.events <- ev:
	case <-m.ctx.Done():
	}
}

func (m *Machine) process(ev Event) {
	next, changed := transition(m.state, ev)
	if !changed {
		return
	}
	m.state = next

	switch next.kind {
	case stateValid:
		m.setTerminal(terminalValid, next.documents, nil)
		m.observers.notify(next.documents, nil)
		return
	case stateFailure:
		m.setTerminal(terminalFailure, nil, next.failureErr)
		m.observers.notify(nil, next.failureErr)
		return
	case stateStart:
		if ev.kind == evCancelled {
			m.setTerminal(terminalNone, nil, nil)
			m.observers.notify(nil, nil)
		}
		return
	}

	handler := handlerFor(next.kind)
	if handler == nil {
		return
	}
	go func(s State) {
		followup := handler(m.ctx, m.deps, s)
		m.dispatch(followup)
	}(next)
}

func (m *Machine) setTerminal(kind terminalKind, docs *ValidatedDocuments, err error) {
	m.termMu.Lock()
	m.terminal = kind
	m.lastDocs = docs
	m.lastErr = err
	m.termMu.Unlock()
}

// subscribe enrolls obs for future notifications, replaying the last
// terminal outcome synchronously if the machine has already settled
// (spec §4.3: late subscribers to a settled machine must not wait).
func (m *Machine) subscribe(obs Observer, policy Policy) {
	m.termMu.Lock()
	term, docs, err := m.terminal, m.lastDocs, m.lastErr
	m.termMu.Unlock()

	if term == terminalNone {
		m.observers.subscribe(obs, policy)
		return
	}
	obs(docs, err)
	if policy == Always {
		m.observers.subscribe(obs, policy)
	}
}

func (m *Machine) close() {
	m.cancel()
}
