package auth

import (
	"sync"
	"time"

	"github.com/cienspay/cienspay-web/internal/errors"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// SubmitState is where a rendered form is in its submit lifecycle
type SubmitState int

const (
	StateIdle SubmitState = iota
	StateSubmitting
	StateFailed
	StateNavigatedAway
)

func (s SubmitState) String() string {
	switch s {
	case StateSubmitting:
		return "submitting"
	case StateFailed:
		return "idle-with-errors"
	case StateNavigatedAway:
		return "navigated-away"
	}
	return "idle"
}

const (
	defaultGuardSize = 10_000
	defaultGuardTTL  = 30 * time.Minute
)

// SubmitGuard is the server-side "disabled submit button": each rendered form carries an id,
// and a second submit of the same id is refused while the first is running or once it has
// succeeded. Unknown or empty ids are treated as idle so an expired form can still be posted.
type SubmitGuard struct {
	mu     sync.Mutex
	states *expirable.LRU[string, SubmitState]
}

func NewSubmitGuard(size int, ttl time.Duration) *SubmitGuard {
	if size <= 0 {
		size = defaultGuardSize
	}
	if ttl <= 0 {
		ttl = defaultGuardTTL
	}
	return &SubmitGuard{states: expirable.NewLRU[string, SubmitState](size, nil, ttl)}
}

// NewFormID returns a fresh form id to embed in a rendered form
func (g *SubmitGuard) NewFormID() string {
	id := uuid.NewString()
	g.states.Add(id, StateIdle)
	return id
}

// Begin moves id to submitting
func (g *SubmitGuard) Begin(id string) error {
	if id == "" {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	state, _ := g.states.Get(id)
	switch state {
	case StateSubmitting:
		return errors.Wrapf(errors.ErrSubmitInProgress, "[SubmitGuard Begin] form %s", id)
	case StateNavigatedAway:
		return errors.Wrapf(errors.ErrFormCompleted, "[SubmitGuard Begin] form %s", id)
	}
	g.states.Add(id, StateSubmitting)
	return nil
}

// Fail returns id to an editable state after a failed submit
func (g *SubmitGuard) Fail(id string) {
	if id == "" {
		return
	}
	g.states.Add(id, StateFailed)
}

// Complete marks id as done; the page has navigated away
func (g *SubmitGuard) Complete(id string) {
	if id == "" {
		return
	}
	g.states.Add(id, StateNavigatedAway)
}

// State reports the current state of id
func (g *SubmitGuard) State(id string) SubmitState {
	state, _ := g.states.Get(id)
	return state
}
