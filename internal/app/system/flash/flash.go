// Package flash keeps one-shot user messages ("Alice joined Chess Club")
// in a signed, encrypted session cookie.
package flash

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"
)

// Message kinds.
const (
	Success = "success"
	Error   = "error"
)

// Kinds lists the kinds Pop drains, in output order.
var Kinds = []string{Success, Error}

// Message is one flash entry.
type Message struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Manager reads and writes the flash session.
type Manager struct {
	store *sessions.CookieStore
	name  string
	log   *zap.Logger
}

// Options configures New.
type Options struct {
	SessionKey string // secret; an empty key gets a random per-process key
	Name       string // cookie name
	Domain     string
	Secure     bool
}

// New builds a Manager. The cookie hash and encryption keys are derived
// from SessionKey with HKDF-SHA256 so a single configured secret yields two
// independent keys.
func New(opts Options, log *zap.Logger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Name == "" {
		opts.Name = "clubhouse-session"
	}

	secret := []byte(opts.SessionKey)
	switch {
	case len(secret) == 0:
		secret = securecookie.GenerateRandomKey(32)
		if secret == nil {
			return nil, errors.New("flash: could not generate random session key")
		}
		log.Warn("session key not set; using a random key, flash messages will not survive restarts")
	case len(secret) < 32:
		log.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(secret)))
	}

	hashKey, err := derive(secret, "clubhouse session hash", 64)
	if err != nil {
		return nil, err
	}
	blockKey, err := derive(secret, "clubhouse session block", 32)
	if err != nil {
		return nil, err
	}

	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Domain:   opts.Domain,
		Path:     "/",
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{store: store, name: opts.Name, log: log}, nil
}

func derive(secret []byte, info string, n int) ([]byte, error) {
	key := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("flash: derive %s: %w", info, err)
	}
	return key, nil
}

// session returns the request's session. A cookie that no longer decodes
// (rotated key, tampering) yields a fresh session.
func (m *Manager) session(r *http.Request) *sessions.Session {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			m.log.Debug("session cookie invalid, using fresh session", zap.Error(err))
		} else {
			m.log.Warn("session store error, using fresh session", zap.Error(err))
		}
	}
	return sess
}

// Add queues text under kind and writes the cookie. A nil Manager drops
// the message.
func (m *Manager) Add(w http.ResponseWriter, r *http.Request, kind, text string) {
	if m == nil {
		return
	}
	sess := m.session(r)
	sess.AddFlash(text, kind)
	if err := sess.Save(r, w); err != nil {
		m.log.Warn("failed to save flash message", zap.Error(err))
	}
}

// Pop returns and clears all queued messages.
func (m *Manager) Pop(w http.ResponseWriter, r *http.Request) []Message {
	out := []Message{}
	if m == nil {
		return out
	}
	sess := m.session(r)
	for _, kind := range Kinds {
		for _, v := range sess.Flashes(kind) {
			if s, ok := v.(string); ok {
				out = append(out, Message{Kind: kind, Text: s})
			}
		}
	}
	if err := sess.Save(r, w); err != nil {
		m.log.Warn("failed to clear flash messages", zap.Error(err))
	}
	return out
}
