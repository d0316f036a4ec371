package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// carry copies cookies set on rec onto a fresh request, the way a browser
// follows a redirect.
func carry(t *testing.T, rec *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			req.AddCookie(c)
		}
	}
	return req
}

func TestSuccessThenPop(t *testing.T) {
	store := &Store{}

	rec := httptest.NewRecorder()
	store.Success(rec, httptest.NewRequest(http.MethodPost, "/post/new/", nil), "Post created successfully!")

	next := carry(t, rec)
	popRec := httptest.NewRecorder()
	msgs := store.Pop(popRec, next)

	require.Len(t, msgs, 1)
	assert.Equal(t, LevelSuccess, msgs[0].Level)
	assert.Equal(t, "Post created successfully!", msgs[0].Text)

	cleared := popRec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, CookieName, cleared[0].Name)
	assert.Less(t, cleared[0].MaxAge, 0, "Pop must expire the cookie")
}

func TestAddKeepsEarlierMessages(t *testing.T) {
	store := &Store{}

	first := httptest.NewRecorder()
	store.Error(first, httptest.NewRequest(http.MethodGet, "/", nil), "one")

	second := httptest.NewRecorder()
	store.Success(second, carry(t, first), "two")

	msgs := store.Pop(httptest.NewRecorder(), carry(t, second))
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Text)
	assert.Equal(t, LevelError, msgs[0].Level)
	assert.Equal(t, "two", msgs[1].Text)
}

func TestPop_NoCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	msgs := (&Store{}).Pop(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Nil(t, msgs)
	assert.Empty(t, rec.Result().Cookies(), "nothing to clear")
}

func TestPop_TamperedCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "%%%not-base64"})

	assert.Nil(t, (&Store{}).Pop(httptest.NewRecorder(), req))
}

func TestSecureFlag(t *testing.T) {
	rec := httptest.NewRecorder()
	(&Store{Secure: true}).Success(rec, httptest.NewRequest(http.MethodGet, "/", nil), "hi")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].Secure)
	assert.True(t, cookies[0].HttpOnly)
}
