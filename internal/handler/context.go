package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/model"
)

type currentUserKey struct{}

// WithCurrentUser returns a copy of ctx carrying the signed-in user.
func WithCurrentUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, currentUserKey{}, u)
}

// CurrentUser returns the signed-in user, or nil for anonymous requests.
func CurrentUser(ctx context.Context) *model.User {
	u, _ := ctx.Value(currentUserKey{}).(*model.User)
	return u
}

// UserLoader looks up the account behind a session.
type UserLoader interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// LoadCurrentUser turns the user ID placed in the context by auth.OptionalAuth
// into a *model.User for handlers and templates.
//
// A valid token for an account that no longer exists is treated as anonymous.
// Any other lookup failure renders the error page and keeps the session.
func LoadCurrentUser(users UserLoader, view *Renderer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			if errors.Is(err, apperror.ErrNotFound) {
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				view.ServerError(w, r, fmt.Errorf("loading session user %s: %w", userID, err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCurrentUser(r.Context(), user)))
		})
	}
}

// RequireUser sends anonymous visitors to the login page. It runs after
// auth.RequireAuth and catches sessions whose account is gone.
func RequireUser(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if CurrentUser(r.Context()) == nil {
				auth.ClearSessionCookie(w, secure)
				seeOther(w, r, auth.LoginURL(r.URL.RequestURI()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
