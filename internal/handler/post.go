package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/form"
	"github.com/sakif/blog/internal/service"
)

// PostHandler serves the post pages: the public list, the detail page with
// its comment form, and the author-only create/edit/delete forms.
type PostHandler struct {
	posts  *service.PostService
	view   *Renderer
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, view *Renderer, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, view: view, logger: logger}
}

// HandleList renders every public post, newest first.
//
// HTTP: GET /
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListPublic(r.Context())
	if err != nil {
		h.view.Error(w, r, err)
		return
	}
	h.view.Page(w, r, http.StatusOK, pageIndex, map[string]any{"posts": posts})
}

// HandleDetail shows a post with its comments and accepts new comments.
//
// HTTP: GET|POST /post/{id}/
func (h *PostHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if r.Method == http.MethodPost {
		parseForm(r)
		f := form.CommentFromValues(r.PostForm)
		viewer := CurrentUser(r.Context())

		_, err := h.posts.AddComment(r.Context(), viewer.ID, id, f)
		if err == nil {
			h.view.Success(w, r, "Comment added successfully!")
			seeOther(w, r, postURL(id))
			return
		}
		fields := apperror.FieldErrors(err)
		if fields == nil {
			h.view.Error(w, r, err)
			return
		}
		h.renderDetail(w, r, id, f, fields)
		return
	}

	h.renderDetail(w, r, id, form.Comment{}, nil)
}

func (h *PostHandler) renderDetail(w http.ResponseWriter, r *http.Request, id string, f form.Comment, fields map[string][]string) {
	post, err := h.posts.Get(r.Context(), id)
	if err != nil {
		h.view.Error(w, r, err)
		return
	}
	comments, err := h.posts.ListComments(r.Context(), id)
	if err != nil {
		h.view.Error(w, r, err)
		return
	}
	if fields == nil {
		fields = map[string][]string{}
	}
	h.view.Page(w, r, http.StatusOK, pagePostDetail, map[string]any{
		"post":     post,
		"comments": comments,
		"form":     f,
		"errors":   fields,
	})
}

// HandleCreate shows and processes the new-post form.
//
// HTTP: GET|POST /post/new/
//
// The empty form starts with "public" ticked. A submitted form without the
// field is a private post: that is how browsers send an unticked checkbox.
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.view.Page(w, r, http.StatusOK, pagePostForm, map[string]any{
			"form": form.Post{Public: true},
		})
		return
	}

	parseForm(r)
	f := form.PostFromValues(r.PostForm)
	viewer := CurrentUser(r.Context())

	if _, err := h.posts.Create(r.Context(), viewer.ID, f); err != nil {
		if fields := apperror.FieldErrors(err); fields != nil {
			h.view.Page(w, r, http.StatusOK, pagePostForm, map[string]any{
				"form":   f,
				"errors": fields,
			})
			return
		}
		h.view.Error(w, r, err)
		return
	}

	h.view.Success(w, r, "Post created successfully!")
	seeOther(w, r, "/")
}

// HandleEdit shows and processes the edit form. Author only.
//
// HTTP: GET|POST /post/{id}/edit/
//
// A non-author is sent back to the post with an error message and nothing
// changes, whatever they submitted.
func (h *PostHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	viewer := CurrentUser(r.Context())

	if r.Method != http.MethodPost {
		post, err := h.posts.GetForEdit(r.Context(), viewer.ID, id)
		if err != nil {
			h.ownershipError(w, r, id, err)
			return
		}
		h.view.Page(w, r, http.StatusOK, pagePostForm, map[string]any{
			"post": post,
			"form": form.Post{Title: post.Title, Content: post.Content, Public: post.Public},
		})
		return
	}

	parseForm(r)
	f := form.PostFromValues(r.PostForm)

	post, err := h.posts.Update(r.Context(), viewer.ID, id, f)
	if err != nil {
		if fields := apperror.FieldErrors(err); fields != nil && post != nil {
			h.view.Page(w, r, http.StatusOK, pagePostForm, map[string]any{
				"post":   post,
				"form":   f,
				"errors": fields,
			})
			return
		}
		h.ownershipError(w, r, id, err)
		return
	}

	h.view.Success(w, r, "Post updated successfully!")
	seeOther(w, r, postURL(post.ID))
}

// HandleDelete asks for confirmation on GET and deletes on POST. Author only.
//
// HTTP: GET|POST /post/{id}/delete/
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	viewer := CurrentUser(r.Context())

	if r.Method != http.MethodPost {
		post, err := h.posts.GetForDelete(r.Context(), viewer.ID, id)
		if err != nil {
			h.ownershipError(w, r, id, err)
			return
		}
		h.view.Page(w, r, http.StatusOK, pagePostDelete, map[string]any{"post": post})
		return
	}

	if err := h.posts.Delete(r.Context(), viewer.ID, id); err != nil {
		h.ownershipError(w, r, id, err)
		return
	}

	h.view.Success(w, r, "Post deleted successfully!")
	seeOther(w, r, "/")
}

// ownershipError turns a forbidden edit/delete into a flash message plus a
// redirect to the post, and everything else into the usual error page.
func (h *PostHandler) ownershipError(w http.ResponseWriter, r *http.Request, id string, err error) {
	if msg := forbiddenMessage(err); msg != "" {
		h.view.Fail(w, r, msg)
		seeOther(w, r, postURL(id))
		return
	}
	h.view.Error(w, r, err)
}
