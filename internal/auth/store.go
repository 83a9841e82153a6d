// Package auth holds the authentication resource: the signed-in session,
// the administrable user list and the operations that change them.
package auth

import (
	"sync"

	"github.com/roach88/erpsync/internal/model"
	"github.com/roach88/erpsync/internal/search"
	"github.com/roach88/erpsync/internal/state"
)

// UserFields is the searchable text of a user.
var UserFields search.Fields[model.User] = func(u model.User) []string {
	return []string{u.FullName, u.Username, u.Email}
}

// Rules returns the rules of the user collection.
// The user list starts with zero pages until the first page fetch.
func Rules() state.Rules[model.User] {
	return state.Rules[model.User]{
		Resource: model.ResourceAuth,
		Operations: map[model.OperationName]state.Class{
			model.OpRegister:      state.ClassStatusOnly,
			model.OpSignIn:        state.ClassStatusOnly,
			model.OpSignOut:       state.ClassStatusOnly,
			model.OpListUsersPage: state.ClassReplacePage,
			model.OpDeleteUser:    state.ClassRemove,
		},
		InitialPagination: model.Pagination{CurrentPage: 1},
	}
}

// Store is the state of the authentication resource: the user list with
// its operation statuses, plus the signed-in user.
//
// Thread-safety model:
//   - Apply(): called by the engine's single-writer loop
//   - everything else: safe from any goroutine
type Store struct {
	users *state.Store[model.User]

	mu   sync.RWMutex
	user *model.User
}

// NewStore creates a signed-out store.
func NewStore(opts ...state.Option) *Store {
	return &Store{users: state.New(Rules(), opts...)}
}

// Resource returns the authentication resource.
func (s *Store) Resource() model.Resource {
	return model.ResourceAuth
}

// Apply reduces one event. A successful sign-in sets the session user and a
// successful sign-out clears it; nothing else touches the session.
func (s *Store) Apply(ev model.Event) {
	if ev.Resource != model.ResourceAuth {
		return
	}
	s.users.Apply(ev)

	if ev.Phase != model.PhaseSucceeded {
		return
	}
	switch ev.Op {
	case model.OpSignIn:
		if in, ok := ev.Value.(SignedIn); ok {
			u := in.User
			s.mu.Lock()
			s.user = &u
			s.mu.Unlock()
		}
	case model.OpSignOut:
		s.mu.Lock()
		s.user = nil
		s.mu.Unlock()
	}
}

// User returns the signed-in user.
func (s *Store) User() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

// IsAdmin reports whether the signed-in user is an administrator.
func (s *Store) IsAdmin() bool {
	u, ok := s.User()
	return ok && u.Admin
}

// Users returns the user list state.
func (s *Store) Users() state.State[model.User] {
	return s.users.State()
}

// SearchUsers returns the loaded users matching query by name, username or
// email. An empty query returns every loaded user.
func (s *Store) SearchUsers(query string) []model.User {
	return search.Filter(s.users.State().Items, query, UserFields)
}

// Snapshot returns a deep copy of the user list state.
func (s *Store) Snapshot() (state.State[model.User], error) {
	return s.users.Snapshot()
}

// Status returns the status of an authentication operation.
func (s *Store) Status(op model.OperationName) model.OperationStatus {
	return s.users.State().StatusOf(op)
}

// LastError returns the last failure of an authentication operation.
func (s *Store) LastError(op model.OperationName) *model.Failure {
	return s.users.State().ErrorOf(op)
}
