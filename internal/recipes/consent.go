package recipes

import "sync"

// ConsentState remembers which domain families already had their cookie
// overlay handled during a run. A family is added at most once and never
// removed.
type ConsentState struct {
	mu        sync.Mutex
	attempted map[string]struct{}
}

// NewConsentState returns an empty state for a new run.
func NewConsentState() *ConsentState {
	return &ConsentState{attempted: make(map[string]struct{})}
}

// Pending reports whether the overlay for domain still needs an attempt.
func (s *ConsentState) Pending(domain string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, done := s.attempted[domain]
	return !done
}

// MarkAttempted records that the overlay for domain was handled, whether or
// not it actually appeared.
func (s *ConsentState) MarkAttempted(domain string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempted[domain] = struct{}{}
}
