package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/form"
	"github.com/sakif/blog/internal/service"
)

// GitHubAuthenticator is the OAuth half of auth.GitHubProvider. Tests swap in
// a fake so the callback can be exercised without GitHub.
type GitHubAuthenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler serves registration, login, logout and the optional GitHub flow.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister       → sign-up form; success signs the new user in
//   - HandleLogin          → login form; success returns to ?next=
//   - HandleLogout         → clear the session cookie
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → exchange the code, upsert the user, issue the session
type AuthHandler struct {
	auth   *service.AuthService
	github GitHubAuthenticator // nil when GitHub login is not configured
	view   *Renderer
	secure bool
	logger *slog.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	github GitHubAuthenticator,
	view *Renderer,
	secure bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:   authService,
		github: github,
		view:   view,
		secure: secure,
		logger: logger,
	}
}

// HandleRegister shows and processes the sign-up form.
//
// HTTP: GET|POST /register/
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.view.Page(w, r, http.StatusOK, pageRegister, map[string]any{
			"form": form.Registration{},
		})
		return
	}

	parseForm(r)
	f := form.RegistrationFromValues(r.PostForm)

	result, err := h.auth.Register(r.Context(), f)
	if err != nil {
		if fields := apperror.FieldErrors(err); fields != nil {
			h.view.Page(w, r, http.StatusOK, pageRegister, map[string]any{
				"form":   form.Registration{Username: f.Username},
				"errors": fields,
			})
			return
		}
		h.view.Error(w, r, err)
		return
	}

	h.startSession(w, result)
	h.view.Success(w, r, fmt.Sprintf("Account created for %s!", result.User.Username))
	seeOther(w, r, "/")
}

// HandleLogin shows and processes the login form.
//
// HTTP: GET|POST /login/?next=/some/path/
//
// The next path survives the form round trip in a hidden input and is only
// followed when it is local (auth.SafeNext).
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.view.Page(w, r, http.StatusOK, pageLogin, map[string]any{
			"form":          form.Login{Next: r.URL.Query().Get("next")},
			"githubEnabled": h.github != nil,
		})
		return
	}

	parseForm(r)
	f := form.LoginFromValues(r.PostForm)

	result, err := h.auth.Login(r.Context(), f)
	if err != nil {
		if fields := apperror.FieldErrors(err); fields != nil {
			h.view.Page(w, r, http.StatusOK, pageLogin, map[string]any{
				"form":          form.Login{Username: f.Username, Next: f.Next},
				"errors":        fields,
				"githubEnabled": h.github != nil,
			})
			return
		}
		h.view.Error(w, r, err)
		return
	}

	h.startSession(w, result)
	h.view.Success(w, r, fmt.Sprintf("Welcome back, %s!", result.User.Username))
	seeOther(w, r, auth.SafeNext(f.Next, "/"))
}

// HandleLogout clears the session cookie.
//
// HTTP: GET|POST /logout/
//
// Since sessions are stateless JWTs, logging out only deletes the cookie. The
// token stays technically valid until it expires, but the browser no longer
// sends it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secure)
	seeOther(w, r, "/")
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state is stored in a short-lived HttpOnly cookie and sent to
// GitHub. The callback only proceeds when both values match.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		h.view.NotFound(w, r)
		return
	}

	state := auth.NewState()
	http.SetCookie(w, &http.Cookie{
		Name:     auth.StateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Upsert the user (and its profile) and issue the session cookie
//  4. Redirect home with a welcome message
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		h.view.NotFound(w, r)
		return
	}

	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie(auth.StateCookie)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: missing or mismatched state")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   auth.StateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		h.view.Fail(w, r, "GitHub sign-in was cancelled.")
		seeOther(w, r, auth.LoginPath)
		return
	}

	// --- Step 2: Exchange code for GitHub user profile ---
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		h.view.Fail(w, r, "GitHub sign-in failed. Please try again.")
		seeOther(w, r, auth.LoginPath)
		return
	}

	// --- Step 3: Upsert user and issue the session ---
	result, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			h.view.Fail(w, r, service.MsgUsernameTaken)
			seeOther(w, r, auth.LoginPath)
			return
		}
		h.view.ServerError(w, r, err)
		return
	}

	h.startSession(w, result)
	h.view.Success(w, r, fmt.Sprintf("Welcome back, %s!", result.User.Username))
	seeOther(w, r, "/")
}

func (h *AuthHandler) startSession(w http.ResponseWriter, result *service.AuthResult) {
	auth.SetSessionCookie(w, result.Token, h.auth.SessionTTL(), h.secure)
}
