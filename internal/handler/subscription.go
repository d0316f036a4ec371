package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/service"
)

// SubscriptionHandler serves the subscribe toggle, the subscription feed, the
// per-author post list and the profile page.
type SubscriptionHandler struct {
	subs   *service.SubscriptionService
	posts  *service.PostService
	view   *Renderer
	logger *slog.Logger
}

func NewSubscriptionHandler(
	subs *service.SubscriptionService,
	posts *service.PostService,
	view *Renderer,
	logger *slog.Logger,
) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs, posts: posts, view: view, logger: logger}
}

// HandleToggle subscribes the viewer to {username}, or unsubscribes if they
// already are, and always lands back on that user's page.
//
// HTTP: GET|POST /subscribe/{username}/
func (h *SubscriptionHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	viewer := CurrentUser(r.Context())
	back := userURL(username)

	subscribed, err := h.subs.Toggle(r.Context(), viewer.ID, username)
	switch {
	case err == nil && subscribed:
		h.view.Success(w, r, fmt.Sprintf("You have subscribed to %s.", username))
	case err == nil:
		h.view.Success(w, r, fmt.Sprintf("You have unsubscribed from %s.", username))
	case errors.Is(err, apperror.ErrMissingProfile):
		h.view.Fail(w, r, MsgMissingProfile)
	case errors.Is(err, apperror.ErrForbidden):
		h.view.Fail(w, r, forbiddenMessage(err))
	default:
		h.view.Error(w, r, err)
		return
	}
	seeOther(w, r, back)
}

// HandleFeed lists every post by the authors the viewer subscribes to.
//
// HTTP: GET /subscriptions/
func (h *SubscriptionHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	viewer := CurrentUser(r.Context())

	posts, err := h.posts.Feed(r.Context(), viewer.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrMissingProfile) {
			h.view.Fail(w, r, MsgMissingProfile)
			seeOther(w, r, "/")
			return
		}
		h.view.Error(w, r, err)
		return
	}
	h.view.Page(w, r, http.StatusOK, pageSubscriptions, map[string]any{"posts": posts})
}

// HandleUserPosts lists all of one author's posts, private ones included.
//
// HTTP: GET /user/{username}/
func (h *SubscriptionHandler) HandleUserPosts(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	viewer := CurrentUser(r.Context())

	author, posts, err := h.posts.ListByUsername(r.Context(), username)
	if err != nil {
		h.view.Error(w, r, err)
		return
	}

	subscribed, err := h.subs.IsSubscribed(r.Context(), viewer.ID, author.ID)
	if err != nil {
		// The button label is cosmetic; the list still renders.
		h.logger.Warn("failed to read subscription state",
			slog.String("viewerID", viewer.ID),
			slog.String("author", username),
			slog.String("error", err.Error()),
		)
	}

	h.view.Page(w, r, http.StatusOK, pageUserPosts, map[string]any{
		"author":     author,
		"posts":      posts,
		"subscribed": subscribed,
	})
}

// HandleProfile renders the signed-in user's own profile page.
//
// HTTP: GET /profile/
func (h *SubscriptionHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	viewer := CurrentUser(r.Context())

	subscriptions, err := h.subs.ListSubscriptions(r.Context(), viewer.ID)
	if err != nil && !errors.Is(err, apperror.ErrMissingProfile) {
		h.view.Error(w, r, err)
		return
	}
	h.view.Page(w, r, http.StatusOK, pageProfile, map[string]any{"subscriptions": subscriptions})
}
