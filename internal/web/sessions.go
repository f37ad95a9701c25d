package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/labconnect/internal/interaction"
)

const sessionCookie = "labconnect_session"

type session struct {
	state    *interaction.State
	lastSeen time.Time
}

// Sessions keeps one interaction state per browser.
type Sessions struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]*session
}

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]*session),
	}
}

// State returns the state bound to the request cookie, creating a new
// session and setting the cookie when there is none.
func (s *Sessions) State(w http.ResponseWriter, r *http.Request) *interaction.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.prune(now)

	if c, err := r.Cookie(sessionCookie); err == nil {
		if item, ok := s.items[c.Value]; ok {
			item.lastSeen = now
			return item.state
		}
	}

	id := uuid.NewString()
	item := &session{state: interaction.New(), lastSeen: now}
	s.items[id] = item

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return item.state
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Sessions) prune(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, item := range s.items {
		// A running search keeps its session alive.
		if item.state.View().Phase == interaction.PhaseLoading {
			continue
		}
		if now.Sub(item.lastSeen) > s.ttl {
			delete(s.items, id)
		}
	}
}
