package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/erpsync/internal/engine"
	"github.com/roach88/erpsync/internal/model"
	"github.com/roach88/erpsync/internal/ops"
	"github.com/roach88/erpsync/internal/testutil"
	"github.com/roach88/erpsync/internal/validate"
)

type fixture struct {
	svc      *Service
	backend  *testutil.ScriptedTransport
	tokens   *testutil.MemoryTokens
	notified *ops.Recorder
}

func newFixture(t *testing.T, replies ...testutil.Reply) *fixture {
	t.Helper()
	eng := engine.New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = eng.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	backend := testutil.NewScriptedTransport(replies...)
	rec := &ops.Recorder{}
	rt := ops.NewRuntime(backend, eng,
		ops.WithNotifier(rec),
		ops.WithIDGenerator(testutil.NewSequentialIDs("auth")),
	)
	tokens := &testutil.MemoryTokens{}
	v, err := validate.New()
	require.NoError(t, err)

	svc := NewService(rt, tokens, WithValidator(v))
	eng.Register(svc.Store())
	return &fixture{svc: svc, backend: backend, tokens: tokens, notified: rec}
}

func signInReply(admin bool) testutil.Reply {
	return testutil.Reply{
		Method: http.MethodPost,
		Path:   "/users/login",
		Body: map[string]any{
			"success": true,
			"message": "Welcome back",
			"data": map[string]any{
				"accessToken": "tok-123",
				"user":        map[string]any{"_id": "u1", "fullName": "Ada", "admin": admin},
			},
		},
	}
}

var credentials = model.Payload{"email": "ada@example.com", "password": "secret1"}

func TestSignIn_PersistsTokenAndSetsUser(t *testing.T) {
	f := newFixture(t, signInReply(true))

	u, err := f.svc.SignIn(context.Background(), credentials)
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	token, _ := f.tokens.Token(context.Background())
	assert.Equal(t, "tok-123", token)

	got, ok := f.svc.Store().User()
	require.True(t, ok)
	assert.True(t, got.Admin)
	assert.Equal(t, model.StatusSucceeded, f.svc.Store().Status(model.OpSignIn))
	assert.NoError(t, f.svc.RequireAdmin())

	require.Len(t, f.notified.All(), 1)
	assert.Equal(t, "Welcome back", f.notified.All()[0].Message)
}

func TestSignIn_FailureUsesFixedText(t *testing.T) {
	f := newFixture(t, testutil.Reply{
		Method:  http.MethodPost,
		Path:    "/users/login",
		Status:  401,
		Body:    map[string]any{"message": "Invalid password"},
		Message: "Invalid password",
	})

	_, err := f.svc.SignIn(context.Background(), credentials)
	require.Error(t, err)

	_, ok := f.svc.Store().User()
	assert.False(t, ok)
	assert.Equal(t, "Invalid password", f.svc.Store().LastError(model.OpSignIn).Message)
	assert.Equal(t, "Error in Signing In", f.notified.All()[0].Message)
	assert.Zero(t, f.tokens.Writes())
}

func TestSignIn_MissingTokenIsMalformed(t *testing.T) {
	f := newFixture(t, testutil.Reply{
		Method: http.MethodPost,
		Path:   "/users/login",
		Body:   map[string]any{"data": map[string]any{"user": map[string]any{"_id": "u1"}}},
	})

	_, err := f.svc.SignIn(context.Background(), credentials)

	var fl *model.Failure
	require.ErrorAs(t, err, &fl)
	assert.Equal(t, model.CodeMalformedResponse, fl.Code)
	_, ok := f.svc.Store().User()
	assert.False(t, ok)
}

func TestSignIn_UserWithoutID(t *testing.T) {
	f := newFixture(t, testutil.Reply{
		Method: http.MethodPost,
		Path:   "/users/login",
		Body: map[string]any{
			"success": true,
			"data": map[string]any{
				"accessToken": "tok-456",
				"user":        map[string]any{"username": "ana", "admin": false},
			},
		},
	})

	u, err := f.svc.SignIn(context.Background(), credentials)
	require.NoError(t, err)
	assert.Empty(t, u.ID)
	assert.Equal(t, "ana", u.Username)

	got, ok := f.svc.Store().User()
	require.True(t, ok)
	assert.Equal(t, "ana", got.Username)
	assert.False(t, f.svc.Store().IsAdmin())
	assert.ErrorIs(t, f.svc.RequireAdmin(), ErrForbidden)
	assert.Equal(t, model.StatusSucceeded, f.svc.Store().Status(model.OpSignIn))

	token, _ := f.tokens.Token(context.Background())
	assert.Equal(t, "tok-456", token)
}

func TestSignIn_TokenStoreFailureFailsInvocation(t *testing.T) {
	f := newFixture(t, signInReply(false))
	f.tokens.FailWith = errors.New("disk full")

	_, err := f.svc.SignIn(context.Background(), credentials)

	var fl *model.Failure
	require.ErrorAs(t, err, &fl)
	assert.Equal(t, model.CodeSessionStore, fl.Code)
	assert.Equal(t, model.StatusFailed, f.svc.Store().Status(model.OpSignIn))
	_, ok := f.svc.Store().User()
	assert.False(t, ok)
}

func TestSignIn_InvalidCredentialsNeverSent(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SignIn(context.Background(), model.Payload{"email": "ada@example.com"})

	require.Error(t, err)
	assert.Empty(t, f.backend.Requests())
	assert.Equal(t, model.CodeInvalidInput, f.svc.Store().LastError(model.OpSignIn).Code)
}

func TestSignOut_ClearsSessionButKeepsUserList(t *testing.T) {
	f := newFixture(t,
		signInReply(true),
		testutil.Reply{
			Method: http.MethodGet,
			Path:   "/users/user-detail",
			Body: map[string]any{
				"users":       []any{map[string]any{"_id": "u1"}, map[string]any{"_id": "u2"}},
				"currentPage": 1,
				"totalPages":  1,
			},
		},
		testutil.Reply{Method: http.MethodPost, Path: "/users/logout", Body: map[string]any{"success": true, "message": "Bye"}},
	)
	ctx := context.Background()

	_, err := f.svc.SignIn(ctx, credentials)
	require.NoError(t, err)
	_, err = f.svc.ListUsersPage(ctx, 0, 0)
	require.NoError(t, err)
	require.NoError(t, f.svc.SignOut(ctx))

	_, ok := f.svc.Store().User()
	assert.False(t, ok)
	token, _ := f.tokens.Token(ctx)
	assert.Empty(t, token)
	assert.Len(t, f.svc.Store().Users().Items, 2)
	assert.ErrorIs(t, f.svc.RequireAdmin(), ErrNotSignedIn)

	reqs := f.backend.Requests()
	assert.Equal(t, "1", reqs[1].Query.Get("page"))
	assert.Equal(t, "10", reqs[1].Query.Get("limit"))
}

func TestSignOut_FailureKeepsSession(t *testing.T) {
	f := newFixture(t,
		signInReply(false),
		testutil.Reply{Method: http.MethodPost, Path: "/users/logout", Status: 500},
	)
	ctx := context.Background()

	_, err := f.svc.SignIn(ctx, credentials)
	require.NoError(t, err)
	require.Error(t, f.svc.SignOut(ctx))

	_, ok := f.svc.Store().User()
	assert.True(t, ok)
	token, _ := f.tokens.Token(ctx)
	assert.Equal(t, "tok-123", token)
	assert.Equal(t, "Error in Signing Out", f.notified.All()[1].Message)
}

func TestRequireAdmin_NonAdmin(t *testing.T) {
	f := newFixture(t, signInReply(false))
	assert.ErrorIs(t, f.svc.RequireAdmin(), ErrNotSignedIn)

	_, err := f.svc.SignIn(context.Background(), credentials)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.RequireAdmin(), ErrForbidden)
}

func TestRegister(t *testing.T) {
	f := newFixture(t,
		testutil.Reply{Method: http.MethodPost, Path: "/users/register", Body: map[string]any{"success": true, "message": "Registered"}},
		testutil.Reply{Method: http.MethodPost, Path: "/users/register", Status: 409},
	)
	ctx := context.Background()
	payload := model.Payload{
		"fullName": "Ada Lovelace",
		"username": "ada",
		"email":    "ada@example.com",
		"password": "secret1",
	}

	accepted, err := f.svc.Register(ctx, payload)
	require.NoError(t, err)
	assert.True(t, accepted)
	_, signedIn := f.svc.Store().User()
	assert.False(t, signedIn, "registering does not sign in")

	_, err = f.svc.Register(ctx, payload)
	require.Error(t, err)
	notes := f.notified.All()
	require.Len(t, notes, 2)
	assert.Equal(t, "Registered", notes[0].Message)
	assert.Equal(t, "Error in registration", notes[1].Message)
}

func TestRegister_UnconfirmedSuccessFlag(t *testing.T) {
	f := newFixture(t, testutil.Reply{
		Method: http.MethodPost,
		Path:   "/users/register",
		Body:   map[string]any{"success": false, "message": "Pending approval"},
	})

	accepted, err := f.svc.Register(context.Background(), model.Payload{
		"fullName": "Ana Lima",
		"username": "ana",
		"email":    "ana@example.com",
		"password": "secret1",
	})
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Equal(t, model.StatusSucceeded, f.svc.Store().Status(model.OpRegister))
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t,
		testutil.Reply{
			Method: http.MethodGet,
			Path:   "/users/user-detail",
			Body:   map[string]any{"users": []any{map[string]any{"_id": "u1"}, map[string]any{"_id": "u2"}}, "currentPage": 1, "totalPages": 1},
		},
		testutil.Reply{Method: http.MethodDelete, Path: "/users/u2", Body: map[string]any{"success": true}},
		testutil.Reply{Method: http.MethodDelete, Path: "/users/u9", Status: 404},
	)
	ctx := context.Background()

	_, err := f.svc.ListUsersPage(ctx, 1, 10)
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteUser(ctx, "u2"))
	require.Error(t, f.svc.DeleteUser(ctx, "u9"))

	users := f.svc.Store().Users()
	require.Len(t, users.Items, 1)
	assert.Equal(t, "u1", users.Items[0].ID)
	assert.Equal(t, model.StatusFailed, users.StatusOf(model.OpDeleteUser))

	notes := f.notified.All()
	require.Len(t, notes, 2)
	assert.Equal(t, "User deleted successfully", notes[0].Message)
	assert.Equal(t, "Error deleting user", notes[1].Message)
}

func TestStore_InitialState(t *testing.T) {
	s := NewStore()
	assert.Equal(t, model.Pagination{CurrentPage: 1}, s.Users().Pagination)
	assert.False(t, s.IsAdmin())
	assert.Equal(t, model.StatusIdle, s.Status(model.OpSignIn))
}

func TestStore_IgnoresForeignEvents(t *testing.T) {
	s := NewStore()
	s.Apply(model.Succeeded("x", model.ResourceMaterial, model.OpSignIn, SignedIn{User: model.User{ID: "u1"}}))

	_, ok := s.User()
	assert.False(t, ok)
}

func TestStore_SearchUsers(t *testing.T) {
	f := newFixture(t, testutil.Reply{
		Method: http.MethodGet,
		Path:   "/users/user-detail",
		Body: map[string]any{
			"users": []any{
				map[string]any{"_id": "u1", "fullName": "Ada Lovelace", "username": "ada", "email": "ada@example.com"},
				map[string]any{"_id": "u2", "fullName": "Alan Turing", "username": "alan", "email": "alan@example.com"},
				map[string]any{"_id": "u3", "fullName": "Grace Hopper", "username": "grace", "email": "grace@navy.mil"},
			},
			"currentPage": 1,
			"totalPages":  1,
		},
	})
	_, err := f.svc.ListUsersPage(context.Background(), 1, 10)
	require.NoError(t, err)

	ids := func(users []model.User) []string {
		out := make([]string, len(users))
		for i, u := range users {
			out[i] = u.ID
		}
		return out
	}

	store := f.svc.Store()
	assert.Equal(t, []string{"u1", "u2", "u3"}, ids(store.SearchUsers("")))
	assert.Equal(t, []string{"u3"}, ids(store.SearchUsers("HOPPER")), "matches full name case-insensitively")
	assert.Equal(t, []string{"u2"}, ids(store.SearchUsers("alan")), "matches username")
	assert.Equal(t, []string{"u3"}, ids(store.SearchUsers("navy.mil")), "matches email")
	assert.Empty(t, store.SearchUsers("nobody"))
}
