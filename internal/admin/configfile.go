package admin

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/naseaoi/IceTV/internal/models"
)

// configFile is the subscription document that seeds config-origin entries.
type configFile struct {
	APISite        map[string]configSite `json:"api_site"`
	Lives          map[string]configSite `json:"lives,omitempty"`
	CustomCategory []configCategory      `json:"custom_category,omitempty"`
}

type configSite struct {
	Name   string `json:"name"`
	API    string `json:"api"`
	Detail string `json:"detail,omitempty"`
}

type configCategory struct {
	Name  string `json:"name,omitempty"`
	Type  string `json:"type"`
	Query string `json:"query"`
}

// applyConfigFile reseeds the config-origin sources, lives, and categories
// of cfg from the raw subscription JSON. Custom entries are untouched.
// Config entries that survive keep their disabled flag, user agent, and
// previous relative order; keys new to the file follow in sorted order.
// Config entries precede the custom ones.
func applyConfigFile(cfg *models.AdminConfig, raw string) error {
	var file configFile
	if err := json.Unmarshal([]byte(raw), &file); err != nil {
		return fmt.Errorf("%w: parse config file: %v", ErrInvalid, err)
	}

	cfg.SourceConfig = reseedSources(cfg.SourceConfig, file.APISite)
	cfg.LiveConfig = reseedSources(cfg.LiveConfig, file.Lives)

	seen := make(map[string]bool)
	fresh := make([]models.Category, 0, len(file.CustomCategory))
	for _, c := range file.CustomCategory {
		cat := models.Category{
			Name:  c.Name,
			Type:  c.Type,
			Query: c.Query,
			From:  models.SourceFromConfig,
		}
		if seen[cat.Key()] {
			continue
		}
		seen[cat.Key()] = true
		for _, old := range cfg.CustomCategories {
			if old.From == models.SourceFromConfig && old.Key() == cat.Key() {
				cat.Disabled = old.Disabled
			}
		}
		fresh = append(fresh, cat)
	}
	cfg.CustomCategories = append(fresh, dropConfigCategories(cfg.CustomCategories)...)
	return nil
}

func reseedSources(existing []models.Source, sites map[string]configSite) []models.Source {
	fresh := make([]models.Source, 0, len(sites))
	carried := make(map[string]bool, len(sites))
	// Survivors first, in their previous relative order.
	for _, old := range existing {
		if old.From != models.SourceFromConfig {
			continue
		}
		site, ok := sites[old.Key]
		if !ok {
			continue
		}
		fresh = append(fresh, models.Source{
			Key:       old.Key,
			Name:      site.Name,
			API:       site.API,
			Detail:    site.Detail,
			UserAgent: old.UserAgent,
			Disabled:  old.Disabled,
			From:      models.SourceFromConfig,
		})
		carried[old.Key] = true
	}
	for _, key := range sortedKeys(sites) {
		if carried[key] {
			continue
		}
		site := sites[key]
		fresh = append(fresh, models.Source{
			Key:    key,
			Name:   site.Name,
			API:    site.API,
			Detail: site.Detail,
			From:   models.SourceFromConfig,
		})
	}
	return append(fresh, dropConfigSources(existing)...)
}

func sortedKeys(m map[string]configSite) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// dropConfigSources keeps only the custom entries, in order.
func dropConfigSources(list []models.Source) []models.Source {
	out := make([]models.Source, 0, len(list))
	for _, s := range list {
		if s.From == models.SourceFromCustom {
			out = append(out, s)
		}
	}
	return out
}

func dropConfigCategories(list []models.Category) []models.Category {
	out := make([]models.Category, 0, len(list))
	for _, c := range list {
		if c.From == models.SourceFromCustom {
			out = append(out, c)
		}
	}
	return out
}
