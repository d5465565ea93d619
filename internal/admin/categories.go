package admin

import (
	"context"
	"fmt"

	"github.com/naseaoi/IceTV/internal/models"
)

// CategoryActionRequest is the action payload for the category endpoint.
// Categories are addressed by their derived key (type + "_" + query).
type CategoryActionRequest struct {
	Action string   `json:"action"`
	Name   string   `json:"name,omitempty"`
	Type   string   `json:"type,omitempty"`
	Query  string   `json:"query,omitempty"`
	Key    string   `json:"key,omitempty"`
	Order  []string `json:"order,omitempty"`
	Keys   []string `json:"keys,omitempty"`
}

// ApplyCategoryAction applies one action to the custom category list.
func (s *Service) ApplyCategoryAction(ctx context.Context, req CategoryActionRequest) error {
	return s.mutate(ctx, "category", req.Action, func(cfg *models.AdminConfig) error {
		updated, err := applyCategoryAction(cfg.CustomCategories, req)
		if err != nil {
			return err
		}
		cfg.CustomCategories = updated
		return nil
	})
}

func applyCategoryAction(list []models.Category, req CategoryActionRequest) ([]models.Category, error) {
	switch req.Action {
	case "add":
		return addCategory(list, req)
	case "delete":
		return deleteCategories(list, []string{req.Key})
	case "enable":
		return toggleCategories(list, []string{req.Key}, false)
	case "disable":
		return toggleCategories(list, []string{req.Key}, true)
	case "sort":
		return sortCategories(list, req.Order)
	case "batch_delete":
		return deleteCategories(list, req.Keys)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
}

func addCategory(list []models.Category, req CategoryActionRequest) ([]models.Category, error) {
	if req.Query == "" || (req.Type != "movie" && req.Type != "tv") {
		return nil, fmt.Errorf("%w: type must be movie or tv and query must not be empty", ErrInvalid)
	}
	cat := models.Category{
		Name:  req.Name,
		Type:  req.Type,
		Query: req.Query,
		From:  models.SourceFromCustom,
	}
	if indexOfCategory(list, cat.Key()) >= 0 {
		return nil, fmt.Errorf("%w: %q", ErrKeyExists, cat.Key())
	}
	return append(list, cat), nil
}

func deleteCategories(list []models.Category, keys []string) ([]models.Category, error) {
	if len(keys) == 0 || keys[0] == "" {
		return nil, fmt.Errorf("%w: no keys given", ErrInvalid)
	}
	drop := make(map[string]bool, len(keys))
	for _, key := range keys {
		i := indexOfCategory(list, key)
		if i < 0 {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		if list[i].From == models.SourceFromConfig {
			return nil, fmt.Errorf("%w: %q", ErrConfigOrigin, key)
		}
		drop[key] = true
	}
	out := make([]models.Category, 0, len(list)-len(drop))
	for _, c := range list {
		if !drop[c.Key()] {
			out = append(out, c)
		}
	}
	return out, nil
}

func toggleCategories(list []models.Category, keys []string, disabled bool) ([]models.Category, error) {
	if len(keys) == 0 || keys[0] == "" {
		return nil, fmt.Errorf("%w: no keys given", ErrInvalid)
	}
	for _, key := range keys {
		i := indexOfCategory(list, key)
		if i < 0 {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		list[i].Disabled = disabled
	}
	return list, nil
}

func sortCategories(list []models.Category, order []string) ([]models.Category, error) {
	if len(order) != len(list) {
		return nil, fmt.Errorf("%w: got %d keys, have %d", ErrOrderConflict, len(order), len(list))
	}
	byKey := make(map[string]models.Category, len(list))
	for _, c := range list {
		byKey[c.Key()] = c
	}
	out := make([]models.Category, 0, len(order))
	seen := make(map[string]bool, len(order))
	for _, key := range order {
		c, ok := byKey[key]
		if !ok || seen[key] {
			return nil, fmt.Errorf("%w: key %q", ErrOrderConflict, key)
		}
		seen[key] = true
		out = append(out, c)
	}
	return out, nil
}

func indexOfCategory(list []models.Category, key string) int {
	for i, c := range list {
		if c.Key() == key {
			return i
		}
	}
	return -1
}
