package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/naseaoi/IceTV/internal/admin"
	"github.com/naseaoi/IceTV/internal/models"
)

// Console drives the admin API: it posts action payloads, refetches the
// authoritative document after every successful mutation, and reports
// outcomes on the notification queue. The local document copy is only
// ever replaced by a refetch, never edited in place.
type Console struct {
	api     *API
	loading *LoadingTracker
	notify  *Notifier

	mu     sync.RWMutex
	role   string
	config *models.AdminConfig
}

// NewConsole creates a Console on top of api.
func NewConsole(api *API) *Console {
	return &Console{
		api:     api,
		loading: NewLoadingTracker(),
		notify:  NewNotifier(32),
	}
}

// Loading exposes the in-flight registry for the presentation layer.
func (c *Console) Loading() *LoadingTracker {
	return c.loading
}

// Notifications returns the outcome queue.
func (c *Console) Notifications() <-chan Notification {
	return c.notify.C()
}

type configResponse struct {
	Role   string              `json:"role"`
	Config *models.AdminConfig `json:"config"`
}

// Refresh fetches the authoritative document and replaces the local copy.
func (c *Console) Refresh(ctx context.Context) error {
	var resp configResponse
	if err := c.api.Get(ctx, "/api/admin/config", "failed to load config", &resp); err != nil {
		return err
	}
	c.mu.Lock()
	c.role = resp.Role
	c.config = resp.Config
	c.mu.Unlock()
	return nil
}

// Role returns the caller's role as of the last refresh.
func (c *Console) Role() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role
}

// Config returns a copy of the document as of the last refresh, or nil
// before the first one.
func (c *Console) Config() *models.AdminConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.config == nil {
		return nil
	}
	return c.config.Clone()
}

// SourceAction applies one action to a source list and refetches.
func (c *Console) SourceAction(ctx context.Context, kind admin.ListKind, req admin.SourceActionRequest) error {
	return c.run(ctx, sourceLoadingKey(kind, req), "/api/admin/"+string(kind),
		fmt.Sprintf("%s source failed", req.Action), req)
}

// CategoryAction applies one action to the custom category list.
func (c *Console) CategoryAction(ctx context.Context, req admin.CategoryActionRequest) error {
	return c.run(ctx, categoryLoadingKey(req), "/api/admin/category",
		fmt.Sprintf("%s category failed", req.Action), req)
}

// UserAction applies one user mutation.
func (c *Console) UserAction(ctx context.Context, req admin.UserActionRequest) error {
	return c.run(ctx, userLoadingKey(req), "/api/admin/user",
		fmt.Sprintf("%s user failed", req.Action), req)
}

// SetSiteConfig replaces the site settings block.
func (c *Console) SetSiteConfig(ctx context.Context, site models.SiteConfig) error {
	return c.run(ctx, "saveSiteConfig", "/api/admin/site", "saving site settings failed", site)
}

// SetConfigFile replaces the raw subscription JSON. Owner only.
func (c *Console) SetConfigFile(ctx context.Context, raw string) error {
	body := map[string]string{"configFile": raw}
	return c.run(ctx, "saveConfigFile", "/api/admin/config_file", "saving config file failed", body)
}

// Reset restores the document to its bootstrap state. Owner only.
func (c *Console) Reset(ctx context.Context) error {
	return c.loading.Do("resetConfig", func() error {
		if err := c.api.Get(ctx, "/api/admin/reset", "reset failed", nil); err != nil {
			c.notify.Publish(SeverityError, err.Error())
			return err
		}
		return c.settle(ctx, "configuration reset")
	})
}

// run posts one mutation under a loading key and settles the outcome.
func (c *Console) run(ctx context.Context, key, path, prefix string, body any) error {
	return c.loading.Do(key, func() error {
		if err := c.api.Post(ctx, path, prefix, body, nil); err != nil {
			c.notify.Publish(SeverityError, err.Error())
			return err
		}
		return c.settle(ctx, "saved")
	})
}

// settle refetches after a successful mutation. The write itself stuck,
// so a failed refetch is a warning, not a rollback.
func (c *Console) settle(ctx context.Context, okMsg string) error {
	if err := c.Refresh(ctx); err != nil {
		c.notify.Publish(SeverityWarning, "saved, but reloading the config failed: "+err.Error())
		return err
	}
	c.notify.Publish(SeveritySuccess, okMsg)
	return nil
}

// Loading keys name the control an operation belongs to, so the UI can
// disable exactly that control while the operation runs.

func sourceLoadingKey(kind admin.ListKind, req admin.SourceActionRequest) string {
	label := "Source"
	if kind == admin.LiveSources {
		label = "Live"
	}
	switch req.Action {
	case "enable", "disable":
		return fmt.Sprintf("toggle%s_%s", label, req.Key)
	case "sort":
		return "save" + label + "Order"
	case "batch_enable", "batch_disable", "batch_delete":
		return fmt.Sprintf("batch%s_%s", label, req.Action)
	default:
		return fmt.Sprintf("%s%s_%s", req.Action, label, req.Key)
	}
}

func categoryLoadingKey(req admin.CategoryActionRequest) string {
	switch req.Action {
	case "enable", "disable":
		return "toggleCategory_" + req.Key
	case "sort":
		return "saveCategoryOrder"
	case "batch_delete":
		return "batchCategory_" + req.Action
	default:
		return fmt.Sprintf("%sCategory_%s", req.Action, req.Key)
	}
}

func userLoadingKey(req admin.UserActionRequest) string {
	if req.Action == "batchUpdateUserGroups" {
		return "batchUser_" + req.Action
	}
	return fmt.Sprintf("%sUser_%s", req.Action, req.TargetUsername)
}
