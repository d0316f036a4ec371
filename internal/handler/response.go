package handler

// RESPONSE HELPERS:
// Every handler ends in one of four ways:
//   - render a page                 → rd.Page(w, r, status, page, data)
//   - redirect after a successful POST (Post/Redirect/Get)
//                                   → seeOther(w, r, url)
//   - a 404 page                    → rd.NotFound(w, r)
//   - a logged 500 page             → rd.ServerError(w, r, err)
//
// ERROR MAPPING:
// The service layer returns apperror values. Which response they turn into
// depends on the page, so each handler checks the cases it expects first
// (a validation error re-renders its own form, a forbidden edit redirects to
// the post) and hands whatever is left to rd.Error:
//
//	apperror.ErrNotFound  → 404 page
//	anything else         → 500 page, error logged

import (
	"errors"
	"net/http"

	"github.com/sakif/blog/internal/apperror"
)

// MsgMissingProfile is flashed when either side of a subscription has no profile.
const MsgMissingProfile = "Profile does not exist for the user."

// seeOther redirects with 303 so the browser follows up with a GET.
func seeOther(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Error renders the catch-all response for err.
func (rd *Renderer) Error(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apperror.ErrNotFound) {
		rd.NotFound(w, r)
		return
	}
	rd.ServerError(w, r, err)
}

// forbiddenMessage returns the user-facing text of a permission error, or ""
// if err is not one.
func forbiddenMessage(err error) string {
	var appErr *apperror.AppError
	if errors.Is(err, apperror.ErrForbidden) && errors.As(err, &appErr) {
		return appErr.Message
	}
	return ""
}

// parseForm reads a urlencoded body. A malformed body is treated like an
// empty form so the page re-renders with "required" errors instead of a 500.
func parseForm(r *http.Request) {
	_ = r.ParseForm()
}
