package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/naseaoi/IceTV/internal/models"
)

func requestWith(cookies []*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/admin/config", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func TestIssueAndVerify(t *testing.T) {
	m := NewManager("root", "hunter2", time.Hour)

	cookies := m.Issue("alice", models.RoleAdmin, false)
	if len(cookies) != 2 {
		t.Fatalf("expected session and meta cookies, got %d", len(cookies))
	}

	id, err := m.Verify(requestWith(cookies))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.Username != "alice" || id.Role != models.RoleAdmin {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if id.SessionID == "" {
		t.Fatal("expected a session id")
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	m := NewManager("root", "hunter2", time.Hour)

	t.Run("no cookie", func(t *testing.T) {
		if _, err := m.Verify(requestWith(nil)); !errors.Is(err, ErrNoSession) {
			t.Fatalf("expected ErrNoSession, got %v", err)
		}
	})

	t.Run("forged username", func(t *testing.T) {
		cookies := m.Issue("alice", models.RoleUser, false)
		forged := strings.Replace(cookies[0].Value, "alice", "admin", 1)
		cookies[0].Value = forged
		if _, err := m.Verify(requestWith(cookies)); !errors.Is(err, ErrBadSignature) {
			t.Fatalf("expected ErrBadSignature, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewManager("root", "different", time.Hour)
		cookies := other.Issue("alice", models.RoleUser, false)
		if _, err := m.Verify(requestWith(cookies)); !errors.Is(err, ErrBadSignature) {
			t.Fatalf("expected ErrBadSignature, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		short := NewManager("root", "hunter2", -time.Minute)
		cookies := short.Issue("alice", models.RoleUser, false)
		if _, err := short.Verify(requestWith(cookies)); !errors.Is(err, ErrNoSession) {
			t.Fatalf("expected ErrNoSession, got %v", err)
		}
	})
}

func TestClearExpiresCookies(t *testing.T) {
	m := NewManager("root", "hunter2", time.Hour)
	for _, c := range m.Clear(false) {
		if c.Expires.After(time.Now()) {
			t.Fatalf("cookie %s not expired", c.Name)
		}
		if c.Value != "" {
			t.Fatalf("cookie %s still carries a value", c.Name)
		}
	}
}

func TestEffectiveRole(t *testing.T) {
	m := NewManager("root", "hunter2", time.Hour)
	cfg := models.DefaultAdminConfig()
	cfg.UserConfig.Users = []models.ManagedUser{
		{Username: "alice", Role: models.RoleAdmin},
		{Username: "bob", Role: models.RoleUser, Banned: true},
	}

	t.Run("owner comes from the environment", func(t *testing.T) {
		role, err := m.EffectiveRole(&Identity{Username: "root"}, cfg)
		if err != nil || role != models.RoleOwner {
			t.Fatalf("got role=%q err=%v", role, err)
		}
	})

	t.Run("document overrides the cookie claim", func(t *testing.T) {
		// Cookie still says user, document says admin.
		role, err := m.EffectiveRole(&Identity{Username: "alice", Role: models.RoleUser}, cfg)
		if err != nil || role != models.RoleAdmin {
			t.Fatalf("got role=%q err=%v", role, err)
		}
	})

	t.Run("banned user has no role", func(t *testing.T) {
		if _, err := m.EffectiveRole(&Identity{Username: "bob"}, cfg); !errors.Is(err, ErrNoSession) {
			t.Fatalf("expected ErrNoSession, got %v", err)
		}
	})

	t.Run("unknown user has no role", func(t *testing.T) {
		if _, err := m.EffectiveRole(&Identity{Username: "ghost"}, cfg); !errors.Is(err, ErrNoSession) {
			t.Fatalf("expected ErrNoSession, got %v", err)
		}
	})
}
