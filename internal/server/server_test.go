package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/naseaoi/IceTV/internal/admin"
	"github.com/naseaoi/IceTV/internal/auth"
	"github.com/naseaoi/IceTV/internal/client"
	"github.com/naseaoi/IceTV/internal/config"
	"github.com/naseaoi/IceTV/internal/models"
	"github.com/naseaoi/IceTV/internal/store"
	"github.com/naseaoi/IceTV/internal/validate"
)

// credStore backs the memory store with an in-process credential map so
// the session endpoints can be exercised end to end.
type credStore struct {
	*store.Memory
	mu    sync.Mutex
	creds map[string]string
}

func newCredStore() *credStore {
	return &credStore{Memory: store.NewMemory(), creds: map[string]string{}}
}

func (c *credStore) CreateUser(_ context.Context, username, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.creds[username]; ok {
		return store.ErrUserExists
	}
	c.creds[username] = password
	return nil
}

func (c *credStore) VerifyUser(_ context.Context, username, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored, ok := c.creds[username]
	if !ok {
		return store.ErrNotFound
	}
	if stored != password {
		return store.ErrBadCredentials
	}
	return nil
}

func (c *credStore) ChangePassword(_ context.Context, username, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.creds[username]; !ok {
		return store.ErrNotFound
	}
	c.creds[username] = password
	return nil
}

func (c *credStore) DeleteUser(_ context.Context, username string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.creds, username)
	return nil
}

func (c *credStore) UserExists(_ context.Context, username string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.creds[username]
	return ok, nil
}

type testEnv struct {
	srv   *httptest.Server
	store *credStore
	adm   *admin.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := newCredStore()
	doc := models.DefaultAdminConfig()
	doc.SiteConfig.OpenRegister = true
	doc.SourceConfig = []models.Source{
		{Key: "sub", Name: "Subscribed", API: "http://127.0.0.1:1/api", From: models.SourceFromConfig},
		{Key: "mine", Name: "Mine", API: "http://127.0.0.1:1/mine", From: models.SourceFromCustom},
	}
	if err := st.SaveConfig(context.Background(), doc); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	adm := admin.NewService(st, nil, "root")
	am := auth.NewManager("root", "hunter2", time.Hour)
	cfg := &config.Config{
		ServerPort:      "0",
		OwnerUsername:   "root",
		OwnerPassword:   "hunter2",
		UserAgent:       "IceTV-test/1.0",
		ProbeTimeout:    time.Second,
		ValidateCeiling: 5 * time.Second,
	}
	orch := validate.NewOrchestrator(cfg.UserAgent, cfg.ProbeTimeout, cfg.ValidateCeiling)

	srv := httptest.NewServer(New(st, adm, am, orch, cfg))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: st, adm: adm}
}

// session returns an HTTP client holding the session cookies of username.
func (e *testEnv) session(t *testing.T, username, password string) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	hc := &http.Client{Jar: jar}
	resp, err := hc.Post(e.srv.URL+"/api/login", "application/json",
		strings.NewReader(fmt.Sprintf(`{"username":%q,"password":%q}`, username, password)))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login as %s: status %d", username, resp.StatusCode)
	}
	return hc
}

func (e *testEnv) console(t *testing.T, hc *http.Client) *client.Console {
	t.Helper()
	api := client.NewAPI(e.srv.URL)
	api.HTTP = hc
	c := client.NewConsole(api)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	return c
}

func postJSON(t *testing.T, hc *http.Client, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := hc.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func TestAuthGating(t *testing.T) {
	env := newTestEnv(t)

	t.Run("no session", func(t *testing.T) {
		resp, err := http.Get(env.srv.URL + "/api/admin/config")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("plain user", func(t *testing.T) {
		owner := env.session(t, "root", "hunter2")
		resp := postJSON(t, owner, env.srv.URL+"/api/admin/user", admin.UserActionRequest{
			Action: "add", TargetUsername: "carol", TargetPassword: "pw",
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("add user: status %d", resp.StatusCode)
		}

		carol := env.session(t, "carol", "pw")
		r2, err := carol.Get(env.srv.URL + "/api/admin/config")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		defer r2.Body.Close()
		if r2.StatusCode != http.StatusForbidden {
			t.Fatalf("expected 403 for a plain user, got %d", r2.StatusCode)
		}
	})

	t.Run("owner", func(t *testing.T) {
		owner := env.session(t, "root", "hunter2")
		c := env.console(t, owner)
		if c.Role() != models.RoleOwner {
			t.Fatalf("expected owner role, got %q", c.Role())
		}
		if c.Config() == nil {
			t.Fatal("expected a config document")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		hc := &http.Client{}
		resp := postJSON(t, hc, env.srv.URL+"/api/login", map[string]string{
			"username": "root", "password": "wrong",
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	})
}

func TestAddCollisionThenRefetch(t *testing.T) {
	env := newTestEnv(t)
	c := env.console(t, env.session(t, "root", "hunter2"))
	ctx := context.Background()

	add := admin.SourceActionRequest{Action: "add", Key: "newsrc", Name: "New", API: "http://example.com/new"}
	if err := c.SourceAction(ctx, admin.VideoSources, add); err != nil {
		t.Fatalf("add: %v", err)
	}

	err := c.SourceAction(ctx, admin.VideoSources, add)
	if err == nil {
		t.Fatal("expected the duplicate add to fail")
	}
	if !strings.Contains(err.Error(), "exists") {
		t.Fatalf("unexpected error message: %v", err)
	}

	// The error path refetches nothing, so force one; the document must
	// hold exactly one entry under the key.
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	count := 0
	for _, src := range c.Config().SourceConfig {
		if src.Key == "newsrc" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one entry for the key, found %d", count)
	}
}

func TestConfigOriginDisableVsDelete(t *testing.T) {
	env := newTestEnv(t)
	c := env.console(t, env.session(t, "root", "hunter2"))
	ctx := context.Background()

	if err := c.SourceAction(ctx, admin.VideoSources, admin.SourceActionRequest{Action: "disable", Key: "sub"}); err != nil {
		t.Fatalf("disable: %v", err)
	}
	for _, src := range c.Config().SourceConfig {
		if src.Key == "sub" && !src.Disabled {
			t.Fatal("config-origin source not disabled")
		}
	}

	err := c.SourceAction(ctx, admin.VideoSources, admin.SourceActionRequest{Action: "delete", Key: "sub"})
	if err == nil {
		t.Fatal("expected deleting a config-origin source to fail")
	}
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	found := false
	for _, src := range c.Config().SourceConfig {
		if src.Key == "sub" {
			found = true
		}
	}
	if !found {
		t.Fatal("config-origin source disappeared")
	}
}

func TestResetIsOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	owner := env.session(t, "root", "hunter2")

	resp := postJSON(t, owner, env.srv.URL+"/api/admin/user", admin.UserActionRequest{
		Action: "add", TargetUsername: "dave", TargetPassword: "pw",
	})
	resp.Body.Close()
	resp = postJSON(t, owner, env.srv.URL+"/api/admin/user", admin.UserActionRequest{
		Action: "setAdmin", TargetUsername: "dave",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("setAdmin: status %d", resp.StatusCode)
	}

	dave := env.session(t, "dave", "pw")
	r, err := dave.Get(env.srv.URL + "/api/admin/reset")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	r.Body.Close()
	if r.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for an admin, got %d", r.StatusCode)
	}

	r, err = owner.Get(env.srv.URL + "/api/admin/reset")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	r.Body.Close()
	if r.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for the owner, got %d", r.StatusCode)
	}

	// Accounts survive a reset.
	c := env.console(t, owner)
	found := false
	for _, u := range c.Config().UserConfig.Users {
		if u.Username == "dave" && u.Role == models.RoleAdmin {
			found = true
		}
	}
	if !found {
		t.Fatal("managed user lost by reset")
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	hc := &http.Client{}
	resp := postJSON(t, hc, env.srv.URL+"/api/register", map[string]string{
		"username": "erin", "password": "pw",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register: status %d", resp.StatusCode)
	}
	env.session(t, "erin", "pw")

	t.Run("owner name is reserved", func(t *testing.T) {
		resp := postJSON(t, hc, env.srv.URL+"/api/register", map[string]string{
			"username": "root", "password": "pw",
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("expected 409, got %d", resp.StatusCode)
		}
	})

	t.Run("closed registration", func(t *testing.T) {
		owner := env.session(t, "root", "hunter2")
		resp := postJSON(t, owner, env.srv.URL+"/api/admin/site", models.SiteConfig{
			SiteName: "IceTV", SearchDownstreamMaxPage: 5, OpenRegister: false,
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("site: status %d", resp.StatusCode)
		}

		resp = postJSON(t, hc, env.srv.URL+"/api/register", map[string]string{
			"username": "frank", "password": "pw",
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", resp.StatusCode)
		}
	})
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	owner := env.session(t, "root", "hunter2")

	resp := postJSON(t, owner, env.srv.URL+"/api/admin/user", admin.UserActionRequest{
		Action: "add", TargetUsername: "gina", TargetPassword: "old",
	})
	resp.Body.Close()

	gina := env.session(t, "gina", "old")
	resp = postJSON(t, gina, env.srv.URL+"/api/change-password", map[string]string{"newPassword": "new"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("change-password: status %d", resp.StatusCode)
	}
	env.session(t, "gina", "new")

	t.Run("owner password is environment-managed", func(t *testing.T) {
		resp := postJSON(t, owner, env.srv.URL+"/api/change-password", map[string]string{"newPassword": "x"})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestValidateStream(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ac") != "videolist" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"list":[{"vod_id":1},{"vod_id":2}]}`)
	}))
	defer provider.Close()

	env := newTestEnv(t)
	owner := env.session(t, "root", "hunter2")
	c := env.console(t, owner)
	ctx := context.Background()

	// Point the custom source at the fake provider; the subscribed one
	// stays unreachable and must come back invalid.
	if err := c.SourceAction(ctx, admin.VideoSources, admin.SourceActionRequest{
		Action: "edit", Key: "mine", Name: "Mine", API: provider.URL,
	}); err != nil {
		t.Fatalf("edit: %v", err)
	}

	consumer := &validate.Consumer{
		BaseURL: env.srv.URL,
		Client:  owner,
		Ceiling: 10 * time.Second,
	}
	if err := consumer.Run(ctx, c.Config().SourceConfig, "test"); err != nil {
		t.Fatalf("run: %v", err)
	}

	results := consumer.Results()
	if got := results["mine"].Status; got != models.StatusValid {
		t.Fatalf("expected the reachable source to be valid, got %q", got)
	}
	if got := results["sub"].Status; got != models.StatusInvalid {
		t.Fatalf("expected the unreachable source to be invalid, got %q", got)
	}

	t.Run("requires a session", func(t *testing.T) {
		resp, err := http.Get(env.srv.URL + "/api/admin/source/validate?q=test")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("requires a keyword", func(t *testing.T) {
		resp, err := owner.Get(env.srv.URL + "/api/admin/source/validate")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})
}
