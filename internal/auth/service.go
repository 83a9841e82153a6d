package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/roach88/erpsync/internal/model"
	"github.com/roach88/erpsync/internal/ops"
	"github.com/roach88/erpsync/internal/resources"
	"github.com/roach88/erpsync/internal/state"
	"github.com/roach88/erpsync/internal/transport"
	"github.com/roach88/erpsync/internal/validate"
)

// TokenStore persists the session token.
type TokenStore interface {
	SaveToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// SignedIn is the value of a successful sign-in. The token is kept
// unexported so it never reaches store state.
type SignedIn struct {
	User  model.User
	token string
}

// ErrNotSignedIn is returned by RequireAdmin without a session.
var ErrNotSignedIn = errors.New("not signed in")

// ErrForbidden is returned by RequireAdmin for a non-admin session.
var ErrForbidden = errors.New("administrator access required")

// Service runs the authentication operations.
type Service struct {
	store     *Store
	tokens    TokenStore
	validator *validate.Validator
	limit     int

	register   *ops.Operation[model.Payload, bool]
	signIn     *ops.Operation[model.Payload, SignedIn]
	signOut    *ops.Operation[struct{}, bool]
	listUsers  *ops.Operation[resources.PageQuery, model.Page[model.User]]
	deleteUser *ops.Operation[string, string]
}

// Option configures a Service.
type Option func(*Service)

// WithValidator checks register and sign-in payloads before sending them.
func WithValidator(v *validate.Validator) Option {
	return func(s *Service) {
		s.validator = v
	}
}

// WithPageLimit sets the limit used when a users page request passes zero.
func WithPageLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

// NewService creates the authentication store and its operations. The
// caller registers Store() with the engine.
func NewService(rt *ops.Runtime, tokens TokenStore, opts ...Option) *Service {
	s := &Service{
		store:  NewStore(state.WithLogger(rt.Logger())),
		tokens: tokens,
		limit:  resources.DefaultLimit,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.register = ops.New(rt, ops.Spec[model.Payload, bool]{
		Resource: model.ResourceAuth,
		Name:     model.OpRegister,
		Check:    s.checker(validate.SchemaRegister),
		Request: func(p model.Payload) transport.Request {
			return transport.Request{Method: http.MethodPost, Path: "/users/register", Body: p}
		},
		Decode: decodeSuccess,
		Notify: ops.Notify{Success: true, Failure: true, FailureText: "Error in registration"},
	})

	s.signIn = ops.New(rt, ops.Spec[model.Payload, SignedIn]{
		Resource: model.ResourceAuth,
		Name:     model.OpSignIn,
		Check:    s.checker(validate.SchemaSignIn),
		Request: func(p model.Payload) transport.Request {
			return transport.Request{Method: http.MethodPost, Path: "/users/login", Body: p}
		},
		Decode: decodeSignIn,
		Commit: func(ctx context.Context, in SignedIn) error {
			return s.tokens.SaveToken(ctx, in.token)
		},
		Notify: ops.Notify{Success: true, Failure: true, FailureText: "Error in Signing In", FixedFailureText: true},
	})

	s.signOut = ops.New(rt, ops.Spec[struct{}, bool]{
		Resource: model.ResourceAuth,
		Name:     model.OpSignOut,
		Request: func(struct{}) transport.Request {
			return transport.Request{Method: http.MethodPost, Path: "/users/logout"}
		},
		Decode: func(_ struct{}, resp transport.Response) (bool, error) {
			return decodeSuccess(nil, resp)
		},
		Commit: func(ctx context.Context, _ bool) error {
			return s.tokens.ClearToken(ctx)
		},
		Notify: ops.Notify{Success: true, Failure: true, FailureText: "Error in Signing Out", FixedFailureText: true},
	})

	s.listUsers = ops.New(rt, ops.Spec[resources.PageQuery, model.Page[model.User]]{
		Resource: model.ResourceAuth,
		Name:     model.OpListUsersPage,
		Check: func(q resources.PageQuery) error {
			return ops.RequirePage(q.Page, q.Limit)
		},
		Request: func(q resources.PageQuery) transport.Request {
			return transport.Request{
				Method: http.MethodGet,
				Path:   "/users/user-detail",
				Query: url.Values{
					"page":  {strconv.Itoa(q.Page)},
					"limit": {strconv.Itoa(q.Limit)},
				},
			}
		},
		Decode: func(_ resources.PageQuery, resp transport.Response) (model.Page[model.User], error) {
			return resources.DecodePage[model.User](resp.Body, "users", "totalUsers")
		},
		Notify: ops.Notify{Failure: true, FailureText: "Error fetching users"},
	})

	s.deleteUser = ops.New(rt, ops.Spec[string, string]{
		Resource: model.ResourceAuth,
		Name:     model.OpDeleteUser,
		Check:    ops.RequireID,
		Request: func(id string) transport.Request {
			return transport.Request{Method: http.MethodDelete, Path: "/users/" + url.PathEscape(id)}
		},
		Decode: func(id string, _ transport.Response) (string, error) {
			return id, nil
		},
		Notify: ops.Notify{
			Success:     true,
			SuccessText: "User deleted successfully",
			Failure:     true,
			FailureText: "Error deleting user",
		},
	})

	return s
}

func (s *Service) checker(schema string) func(model.Payload) error {
	return func(p model.Payload) error {
		if s.validator == nil {
			return nil
		}
		return s.validator.Check(schema, p)
	}
}

// Store returns the authentication store.
func (s *Service) Store() *Store {
	return s.store
}

// Register creates an account. It does not sign in. The bool is the
// server's "success" flag; a 2xx reply carrying success=false still
// completes without error.
func (s *Service) Register(ctx context.Context, p model.Payload) (bool, error) {
	return s.register.Invoke(ctx, p)
}

// SignIn authenticates, persists the session token and returns the user.
func (s *Service) SignIn(ctx context.Context, credentials model.Payload) (model.User, error) {
	in, err := s.signIn.Invoke(ctx, credentials)
	if err != nil {
		return model.User{}, err
	}
	return in.User, nil
}

// SignOut ends the session and removes the persisted token. Resource
// caches are left untouched.
func (s *Service) SignOut(ctx context.Context) error {
	_, err := s.signOut.Invoke(ctx, struct{}{})
	return err
}

// ListUsersPage fetches one page of users. Zero page or limit select the
// defaults.
func (s *Service) ListUsersPage(ctx context.Context, page, limit int) (model.Page[model.User], error) {
	if page == 0 {
		page = resources.DefaultPage
	}
	if limit == 0 {
		limit = s.limit
	}
	return s.listUsers.Invoke(ctx, resources.PageQuery{Page: page, Limit: limit})
}

// DeleteUser deletes the user with key id.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	_, err := s.deleteUser.Invoke(ctx, id)
	return err
}

// RequireAdmin gates administrator views on the signed-in user.
func (s *Service) RequireAdmin() error {
	u, ok := s.store.User()
	if !ok {
		return ErrNotSignedIn
	}
	if !u.Admin {
		return ErrForbidden
	}
	return nil
}

type successBody struct {
	Success *bool `json:"success"`
}

// decodeSuccess reads the "success" flag; a body without one counts as
// success since the status code already did.
func decodeSuccess(_ model.Payload, resp transport.Response) (bool, error) {
	if len(resp.Body) == 0 {
		return true, nil
	}
	var b successBody
	if err := json.Unmarshal(resp.Body, &b); err != nil {
		return false, err
	}
	if b.Success == nil {
		return true, nil
	}
	return *b.Success, nil
}

type signInBody struct {
	Data struct {
		AccessToken string     `json:"accessToken"`
		User        model.User `json:"user"`
	} `json:"data"`
}

func decodeSignIn(_ model.Payload, resp transport.Response) (SignedIn, error) {
	var b signInBody
	if err := json.Unmarshal(resp.Body, &b); err != nil {
		return SignedIn{}, err
	}
	if b.Data.AccessToken == "" {
		return SignedIn{}, errors.New(`response has no "data.accessToken" field`)
	}
	return SignedIn{User: b.Data.User, token: b.Data.AccessToken}, nil
}
