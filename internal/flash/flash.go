// Package flash carries one-shot status messages across a redirect.
//
// HOW IT WORKS:
// A handler that is about to redirect calls Success or Error. The message is
// stored in a short-lived cookie. The next page render calls Pop, which reads
// the messages and expires the cookie in the same response, so each message is
// shown exactly once.
//
//	POST /post/new/  → Success(w, "Post created successfully!") → 303 /
//	GET  /           → Pop(w, r) → rendered once, cookie cleared
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"
)

// CookieName is the name of the cookie holding pending messages.
const CookieName = "flash"

// Level tags a message so templates can style it.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Message struct {
	Level Level  `json:"l"`
	Text  string `json:"t"`
}

// Store writes and reads flash cookies. Secure should match the session cookie.
type Store struct {
	Secure bool
}

func (s *Store) Success(w http.ResponseWriter, r *http.Request, text string) {
	s.add(w, r, Message{Level: LevelSuccess, Text: text})
}

func (s *Store) Error(w http.ResponseWriter, r *http.Request, text string) {
	s.add(w, r, Message{Level: LevelError, Text: text})
}

// add appends to messages that have not been shown yet, so a redirect chain
// does not lose an earlier message.
func (s *Store) add(w http.ResponseWriter, r *http.Request, m Message) {
	msgs := append(decode(r), m)

	raw, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   int((5 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns pending messages and clears the cookie. It returns nil when there
// is nothing to show or the cookie was tampered with.
func (s *Store) Pop(w http.ResponseWriter, r *http.Request) []Message {
	msgs := decode(r)
	if _, err := r.Cookie(CookieName); err == nil {
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   s.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return msgs
}

func decode(r *http.Request) []Message {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var msgs []Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil
	}
	return msgs
}
