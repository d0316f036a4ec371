package handler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/flash"
	"github.com/sakif/blog/internal/handler"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/web"
)

type stubLoader struct {
	user *model.User
	err  error
}

func (s stubLoader) GetUserByID(_ context.Context, _ string) (*model.User, error) {
	return s.user, s.err
}

// serveProtected runs a signed-in request for /profile/ through the same
// chain the server puts in front of login-only pages.
func serveProtected(t *testing.T, users handler.UserLoader) (*httptest.ResponseRecorder, bool) {
	t.Helper()

	tokens, err := auth.NewTokenService("context-test-secret-0123456789", time.Hour)
	require.NoError(t, err)
	token, err := tokens.Generate("user-1")
	require.NoError(t, err)

	view, err := handler.NewRenderer(web.FS, &flash.Store{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ran := false
	h := auth.OptionalAuth(tokens)(
		handler.LoadCurrentUser(users, view)(
			handler.RequireUser(false)(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { ran = true }),
			),
		),
	)

	req := httptest.NewRequest(http.MethodGet, "/profile/", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, ran
}

func TestLoadCurrentUser(t *testing.T) {
	t.Run("known user reaches the page", func(t *testing.T) {
		rec, ran := serveProtected(t, stubLoader{user: &model.User{ID: "user-1", Username: "alice"}})

		assert.True(t, ran)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("deleted account is sent to login", func(t *testing.T) {
		rec, ran := serveProtected(t, stubLoader{err: apperror.ErrNotFound})

		assert.False(t, ran)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login/?next=%2Fprofile%2F", rec.Header().Get("Location"))
		c := cookie(rec, auth.SessionCookie)
		require.NotNil(t, c)
		assert.Equal(t, -1, c.MaxAge)
	})

	t.Run("storage failure keeps the session", func(t *testing.T) {
		rec, ran := serveProtected(t, stubLoader{err: errors.New("sqlite: database is locked")})

		assert.False(t, ran)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Empty(t, rec.Header().Get("Location"))
		assert.Nil(t, cookie(rec, auth.SessionCookie), "session must not be cleared")
		assert.NotContains(t, rec.Body.String(), "database is locked")
	})
}
