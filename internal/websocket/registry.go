package websocket

import (
	"sync"

	"github.com/google/uuid"
)

// Registry owns the session-id <-> user-id binding. A session binds to
// exactly one user for its lifetime; a user may hold any number of
// concurrent sessions. Both directions are updated together under one
// lock so neither map can drift from the other.
type Registry struct {
	mu             sync.RWMutex
	userBySession  map[uuid.UUID]uuid.UUID
	sessionsByUser map[uuid.UUID]map[uuid.UUID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		userBySession:  make(map[uuid.UUID]uuid.UUID),
		sessionsByUser: make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// Register binds a session to a user. Registering the same session
// again is a no-op; a session already bound keeps its original user.
func (r *Registry) Register(sessionID, userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, bound := r.userBySession[sessionID]; bound {
		return
	}
	r.userBySession[sessionID] = userID
	if r.sessionsByUser[userID] == nil {
		r.sessionsByUser[userID] = make(map[uuid.UUID]struct{})
	}
	r.sessionsByUser[userID][sessionID] = struct{}{}
}

// Unregister removes the binding in both directions. Unknown sessions
// are a no-op: a double disconnect is benign, not an error.
func (r *Registry) Unregister(sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, bound := r.userBySession[sessionID]
	if !bound {
		return
	}
	delete(r.userBySession, sessionID)
	if sessions := r.sessionsByUser[userID]; sessions != nil {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(r.sessionsByUser, userID)
		}
	}
}

// SessionsFor returns the live session ids for a user. An empty result
// simply means the user is offline.
func (r *Registry) SessionsFor(userID uuid.UUID) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]uuid.UUID, 0, len(r.sessionsByUser[userID]))
	for id := range r.sessionsByUser[userID] {
		sessions = append(sessions, id)
	}
	return sessions
}

// UserFor returns the user a session is bound to.
func (r *Registry) UserFor(sessionID uuid.UUID) (uuid.UUID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.userBySession[sessionID]
	return userID, ok
}
