// Package session owns the per-sender conversation records. Records are
// created implicitly on first contact, mutated only by the conversation flow,
// and destroyed when a conversation reaches a terminal outcome.
package session

import "sync"

// State identifies a finite-state-machine step of the conversation.
type State string

const (
	// StateAwaitingName expects the user's name as free text.
	StateAwaitingName State = "awaiting_name"
	// StateAwaitingLimitDecision expects the has-limit / no-limit button press.
	StateAwaitingLimitDecision State = "awaiting_limit_decision"
	// StateAwaitingLimit expects the card limit as digits.
	StateAwaitingLimit State = "awaiting_limit"
	// StateAwaitingInstallments expects an installment count in [1, 18].
	StateAwaitingInstallments State = "awaiting_installments"
	// StatePostCalculation expects the continue / retry / talk-to-agent press.
	StatePostCalculation State = "post_calculation"
	// StateAwaitingNewValue expects a desired withdrawal amount after a retry.
	StateAwaitingNewValue State = "awaiting_new_value"
)

// Record holds everything collected from one sender during a conversation.
type Record struct {
	State        State
	Name         string
	Limit        int
	Installments int
}

type entry struct {
	mu  sync.Mutex
	rec *Record
}

// Store keeps conversation records keyed by sender identity. Mutations for
// the same sender are serialized by a per-sender lock; different senders
// proceed concurrently.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Update runs fn with the sender's current record under that sender's lock.
// fn receives nil when the sender has no active conversation and returns the
// record to keep; returning nil destroys the conversation.
func (s *Store) Update(sender string, fn func(rec *Record) *Record) {
	e := s.entryFor(sender)

	e.mu.Lock()
	e.rec = fn(e.rec)
	ended := e.rec == nil
	e.mu.Unlock()

	if ended {
		s.evict(sender, e)
	}
}

// Snapshot returns a copy of the sender's record, if any.
func (s *Store) Snapshot(sender string) (Record, bool) {
	s.mu.Lock()
	e, ok := s.entries[sender]
	s.mu.Unlock()
	if !ok {
		return Record{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec == nil {
		return Record{}, false
	}
	return *e.rec, true
}

// Len reports the number of active conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) entryFor(sender string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sender]
	if !ok {
		e = &entry{}
		s.entries[sender] = e
	}
	return e
}

// evict removes the map slot, re-checking under both locks so a concurrent
// Update that revived the conversation is not thrown away.
func (s *Store) evict(sender string, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.entries[sender]; !ok || current != e {
		return
	}
	e.mu.Lock()
	if e.rec == nil {
		delete(s.entries, sender)
	}
	e.mu.Unlock()
}
