package handler_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/flash"
	"github.com/sakif/blog/internal/handler"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/repository/sqlite"
	"github.com/sakif/blog/internal/service"
	"github.com/sakif/blog/web"
)

// testUserHeader names the user a test request acts as. The test router
// resolves it instead of going through JWT cookies, which the server tests
// cover end to end.
const testUserHeader = "X-Test-User"

type testEnv struct {
	db       *sqlite.DB
	router   chi.Router
	authSvc  *service.AuthService
	postSvc  *service.PostService
	subSvc   *service.SubscriptionService
	passHash string
}

type fakeGitHub struct {
	user *auth.GitHubUser
	err  error
}

func (f *fakeGitHub) AuthURL(state string) string {
	return "https://github.example/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeGitHub) Exchange(_ context.Context, code string) (*auth.GitHubUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func newTestEnv(t *testing.T, github handler.GitHubAuthenticator) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceWithCost(bcrypt.MinCost)

	env := &testEnv{
		db:      db,
		authSvc: service.NewAuthService(db.Users(), tokens, passwords, logger),
		postSvc: service.NewPostService(db.Posts(), db.Comments(), db.Users(), db.Profiles(), logger),
		subSvc:  service.NewSubscriptionService(db.Users(), db.Profiles(), logger),
	}
	env.passHash, err = passwords.Hash("correct-horse-battery")
	require.NoError(t, err)

	view, err := handler.NewRenderer(web.FS, &flash.Store{}, logger)
	require.NoError(t, err)

	authH := handler.NewAuthHandler(env.authSvc, github, view, false, logger)
	postH := handler.NewPostHandler(env.postSvc, view, logger)
	subH := handler.NewSubscriptionHandler(env.subSvc, env.postSvc, view, logger)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := r.Header.Get(testUserHeader); id != "" {
				u, err := db.Users().GetByID(r.Context(), id)
				require.NoError(t, err)
				r = r.WithContext(handler.WithCurrentUser(r.Context(), u))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.NotFound(view.NotFound)
	for _, m := range []string{http.MethodGet, http.MethodPost} {
		r.Method(m, "/", http.HandlerFunc(postH.HandleList))
		r.Method(m, "/register/", http.HandlerFunc(authH.HandleRegister))
		r.Method(m, "/login/", http.HandlerFunc(authH.HandleLogin))
		r.Method(m, "/logout/", http.HandlerFunc(authH.HandleLogout))
		r.Method(m, "/auth/github/login", http.HandlerFunc(authH.HandleGitHubLogin))
		r.Method(m, "/auth/github/callback", http.HandlerFunc(authH.HandleGitHubCallback))
		r.Method(m, "/post/new/", http.HandlerFunc(postH.HandleCreate))
		r.Method(m, "/post/{id}/", http.HandlerFunc(postH.HandleDetail))
		r.Method(m, "/post/{id}/edit/", http.HandlerFunc(postH.HandleEdit))
		r.Method(m, "/post/{id}/delete/", http.HandlerFunc(postH.HandleDelete))
		r.Method(m, "/subscribe/{username}/", http.HandlerFunc(subH.HandleToggle))
		r.Method(m, "/subscriptions/", http.HandlerFunc(subH.HandleFeed))
		r.Method(m, "/user/{username}/", http.HandlerFunc(subH.HandleUserPosts))
		r.Method(m, "/profile/", http.HandlerFunc(subH.HandleProfile))
	}
	env.router = r
	return env
}

func (e *testEnv) createUser(t *testing.T, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, PasswordHash: e.passHash}
	require.NoError(t, e.db.Users().Create(context.Background(), u))
	return u
}

func (e *testEnv) createPost(t *testing.T, author *model.User, title string, public bool) *model.Post {
	t.Helper()
	p := &model.Post{AuthorID: author.ID, Title: title, Content: "content of " + title, Public: public}
	require.NoError(t, e.db.Posts().Create(context.Background(), p))
	return p
}

func (e *testEnv) get(t *testing.T, as *model.User, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	return e.do(as, req)
}

func (e *testEnv) post(t *testing.T, as *model.User, path string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(as, req)
}

func (e *testEnv) do(as *model.User, req *http.Request) *httptest.ResponseRecorder {
	if as != nil {
		req.Header.Set(testUserHeader, as.ID)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// flashes decodes the flash cookie set by a response.
func flashes(t *testing.T, rec *httptest.ResponseRecorder) []flash.Message {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name != flash.CookieName || c.Value == "" {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(c.Value)
		require.NoError(t, err)
		var msgs []flash.Message
		require.NoError(t, json.Unmarshal(raw, &msgs))
		return msgs
	}
	return nil
}

func cookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
