// Package auth issues and verifies the signed session cookies used by the
// admin console. The owner identity comes from the environment and is never
// stored in the user list; everyone else's effective role is resolved
// against the current configuration document on every request.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/naseaoi/IceTV/internal/models"
)

// Cookie names: authCookie is the signed httpOnly session; metaCookie is a
// display-only copy the browser may read.
const (
	authCookie = "auth"
	metaCookie = "auth_meta"
)

// ErrNoSession is returned when the request carries no usable session.
var ErrNoSession = errors.New("no active session")

// ErrBadSignature is returned for tampered or expired cookies.
var ErrBadSignature = errors.New("invalid session signature")

// Identity is the verified actor of a request.
type Identity struct {
	Username  string
	Role      string
	SessionID string
}

type cookiePayload struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	ExpiresAt int64  `json:"expires_at"`
	Signature string `json:"signature"`
}

type metaPayload struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Manager signs and verifies session cookies. The owner password doubles
// as the signing secret, matching the deployment's single-secret setup.
type Manager struct {
	ownerUsername string
	secret        []byte
	ttl           time.Duration
}

// NewManager creates a Manager. ttl bounds session lifetime; 7 days when
// zero.
func NewManager(ownerUsername, ownerPassword string, ttl time.Duration) *Manager {
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Manager{ownerUsername: ownerUsername, secret: []byte(ownerPassword), ttl: ttl}
}

// OwnerUsername returns the environment-defined owner identity.
func (m *Manager) OwnerUsername() string {
	return m.ownerUsername
}

// Issue creates the session cookies for username with the given role.
func (m *Manager) Issue(username, role string, secure bool) []*http.Cookie {
	p := cookiePayload{
		Username:  username,
		Role:      role,
		SessionID: uuid.NewString(),
		ExpiresAt: time.Now().Add(m.ttl).UnixMilli(),
	}
	p.Signature = m.sign(p)
	raw, _ := json.Marshal(p)
	meta, _ := json.Marshal(metaPayload{Username: username, Role: role})

	expires := time.UnixMilli(p.ExpiresAt)
	return []*http.Cookie{
		{
			Name: authCookie, Value: url.QueryEscape(string(raw)),
			Path: "/", Expires: expires,
			HttpOnly: true, SameSite: http.SameSiteLaxMode, Secure: secure,
		},
		{
			Name: metaCookie, Value: url.QueryEscape(string(meta)),
			Path: "/", Expires: expires,
			HttpOnly: false, SameSite: http.SameSiteLaxMode, Secure: secure,
		},
	}
}

// Clear returns expired cookies that remove the session. Idempotent.
func (m *Manager) Clear(secure bool) []*http.Cookie {
	expired := time.Unix(0, 0)
	return []*http.Cookie{
		{Name: authCookie, Value: "", Path: "/", Expires: expired, HttpOnly: true, SameSite: http.SameSiteLaxMode, Secure: secure},
		{Name: metaCookie, Value: "", Path: "/", Expires: expired, HttpOnly: false, SameSite: http.SameSiteLaxMode, Secure: secure},
	}
}

// Verify extracts and checks the session cookie from the request.
func (m *Manager) Verify(r *http.Request) (*Identity, error) {
	c, err := r.Cookie(authCookie)
	if err != nil {
		return nil, ErrNoSession
	}
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil, ErrNoSession
	}
	var p cookiePayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, ErrNoSession
	}
	if p.Username == "" || time.Now().UnixMilli() > p.ExpiresAt {
		return nil, ErrNoSession
	}
	if !hmac.Equal([]byte(p.Signature), []byte(m.sign(p))) {
		return nil, ErrBadSignature
	}
	return &Identity{Username: p.Username, Role: p.Role, SessionID: p.SessionID}, nil
}

// EffectiveRole resolves the actor's current role against the document:
// the cookie's role claim is only a hint, the document is the authority.
// Banned users and unknown usernames have no role.
func (m *Manager) EffectiveRole(id *Identity, cfg *models.AdminConfig) (string, error) {
	if id.Username == m.ownerUsername {
		return models.RoleOwner, nil
	}
	for _, u := range cfg.UserConfig.Users {
		if u.Username != id.Username {
			continue
		}
		if u.Banned {
			return "", fmt.Errorf("%w: user is banned", ErrNoSession)
		}
		return u.Role, nil
	}
	return "", ErrNoSession
}

func (m *Manager) sign(p cookiePayload) string {
	mac := hmac.New(sha256.New, m.secret)
	fmt.Fprintf(mac, "%s|%s|%s|%d", p.Username, p.Role, p.SessionID, p.ExpiresAt)
	return hex.EncodeToString(mac.Sum(nil))
}

// IsSecureRequest reports whether the request arrived over TLS, directly
// or behind a proxy.
func IsSecureRequest(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
