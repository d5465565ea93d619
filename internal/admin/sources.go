package admin

import (
	"context"
	"fmt"

	"github.com/naseaoi/IceTV/internal/models"
)

// ListKind selects which source list an action applies to.
type ListKind string

const (
	VideoSources ListKind = "source"
	LiveSources  ListKind = "live"
)

// SourceActionRequest is the action-discriminated payload for the source
// and live-source endpoints.
type SourceActionRequest struct {
	Action    string   `json:"action"`
	Key       string   `json:"key,omitempty"`
	Name      string   `json:"name,omitempty"`
	API       string   `json:"api,omitempty"`
	Detail    string   `json:"detail,omitempty"`
	UserAgent string   `json:"user_agent,omitempty"`
	Order     []string `json:"order,omitempty"` // full ordered key list for "sort"
	Keys      []string `json:"keys,omitempty"`  // targets for batch actions
}

// ApplySourceAction applies one action to the selected source list.
func (s *Service) ApplySourceAction(ctx context.Context, kind ListKind, req SourceActionRequest) error {
	return s.mutate(ctx, string(kind), req.Action, func(cfg *models.AdminConfig) error {
		list := cfg.SourceConfig
		if kind == LiveSources {
			list = cfg.LiveConfig
		}

		updated, err := applySourceAction(list, req)
		if err != nil {
			return err
		}

		if kind == LiveSources {
			cfg.LiveConfig = updated
		} else {
			cfg.SourceConfig = updated
		}
		return nil
	})
}

func applySourceAction(list []models.Source, req SourceActionRequest) ([]models.Source, error) {
	switch req.Action {
	case "add":
		return addSource(list, req)
	case "edit":
		return editSource(list, req)
	case "delete":
		return deleteSources(list, []string{req.Key})
	case "enable":
		return toggleSources(list, []string{req.Key}, false)
	case "disable":
		return toggleSources(list, []string{req.Key}, true)
	case "sort":
		return sortSources(list, req.Order)
	case "batch_enable":
		return toggleSources(list, req.Keys, false)
	case "batch_disable":
		return toggleSources(list, req.Keys, true)
	case "batch_delete":
		return deleteSources(list, req.Keys)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
}

func addSource(list []models.Source, req SourceActionRequest) ([]models.Source, error) {
	if req.Key == "" || req.Name == "" || req.API == "" {
		return nil, fmt.Errorf("%w: key, name and api are required", ErrInvalid)
	}
	if indexOfSource(list, req.Key) >= 0 {
		return nil, fmt.Errorf("%w: %q", ErrKeyExists, req.Key)
	}
	return append(list, models.Source{
		Key:       req.Key,
		Name:      req.Name,
		API:       req.API,
		Detail:    req.Detail,
		UserAgent: req.UserAgent,
		From:      models.SourceFromCustom,
	}), nil
}

// editSource updates the mutable fields of a custom entry. The key is
// immutable, and config-origin entries may only be enabled or disabled.
func editSource(list []models.Source, req SourceActionRequest) ([]models.Source, error) {
	i := indexOfSource(list, req.Key)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, req.Key)
	}
	if list[i].From == models.SourceFromConfig {
		return nil, fmt.Errorf("%w: %q", ErrConfigOrigin, req.Key)
	}
	if req.Name != "" {
		list[i].Name = req.Name
	}
	if req.API != "" {
		list[i].API = req.API
	}
	list[i].Detail = req.Detail
	list[i].UserAgent = req.UserAgent
	return list, nil
}

// deleteSources removes custom entries. If any requested key is missing or
// config-origin the whole request is rejected and the list is unchanged.
func deleteSources(list []models.Source, keys []string) ([]models.Source, error) {
	if len(keys) == 0 || keys[0] == "" {
		return nil, fmt.Errorf("%w: no keys given", ErrInvalid)
	}
	drop := make(map[string]bool, len(keys))
	for _, key := range keys {
		i := indexOfSource(list, key)
		if i < 0 {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		if list[i].From == models.SourceFromConfig {
			return nil, fmt.Errorf("%w: %q", ErrConfigOrigin, key)
		}
		drop[key] = true
	}
	out := make([]models.Source, 0, len(list)-len(drop))
	for _, s := range list {
		if !drop[s.Key] {
			out = append(out, s)
		}
	}
	return out, nil
}

func toggleSources(list []models.Source, keys []string, disabled bool) ([]models.Source, error) {
	if len(keys) == 0 || keys[0] == "" {
		return nil, fmt.Errorf("%w: no keys given", ErrInvalid)
	}
	for _, key := range keys {
		i := indexOfSource(list, key)
		if i < 0 {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		list[i].Disabled = disabled
	}
	return list, nil
}

// sortSources replaces the stored order with the given full key list. The
// request is rejected unless the key set matches the stored set exactly,
// so a stale client cannot silently drop entries.
func sortSources(list []models.Source, order []string) ([]models.Source, error) {
	if len(order) != len(list) {
		return nil, fmt.Errorf("%w: got %d keys, have %d", ErrOrderConflict, len(order), len(list))
	}
	byKey := make(map[string]models.Source, len(list))
	for _, s := range list {
		byKey[s.Key] = s
	}
	out := make([]models.Source, 0, len(order))
	seen := make(map[string]bool, len(order))
	for _, key := range order {
		s, ok := byKey[key]
		if !ok || seen[key] {
			return nil, fmt.Errorf("%w: key %q", ErrOrderConflict, key)
		}
		seen[key] = true
		out = append(out, s)
	}
	return out, nil
}

func indexOfSource(list []models.Source, key string) int {
	for i, s := range list {
		if s.Key == key {
			return i
		}
	}
	return -1
}
