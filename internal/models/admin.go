package models

// SiteConfig holds site-wide presentation settings.
type SiteConfig struct {
	SiteName                string `json:"site_name"`
	Announcement            string `json:"announcement,omitempty"`
	SearchDownstreamMaxPage int    `json:"search_downstream_max_page"`
	OpenRegister            bool   `json:"open_register"`
}

// UserConfig groups account rows and user-group definitions.
type UserConfig struct {
	Users      []ManagedUser `json:"users"`
	UserGroups []UserGroup   `json:"user_groups,omitempty"`
}

// AdminConfig is the whole configuration document. It is stored and mutated
// as one unit; list order is the array position.
type AdminConfig struct {
	ConfigFile       string     `json:"config_file,omitempty"` // raw subscription JSON
	SourceConfig     []Source   `json:"source_config"`
	LiveConfig       []Source   `json:"live_config"`
	CustomCategories []Category `json:"custom_categories"`
	UserConfig       UserConfig `json:"user_config"`
	SiteConfig       SiteConfig `json:"site_config"`
}

// DefaultAdminConfig returns the document used before any subscription file
// or mutation has been applied.
func DefaultAdminConfig() *AdminConfig {
	return &AdminConfig{
		SourceConfig:     []Source{},
		LiveConfig:       []Source{},
		CustomCategories: []Category{},
		UserConfig:       UserConfig{Users: []ManagedUser{}},
		SiteConfig: SiteConfig{
			SiteName:                "IceTV",
			SearchDownstreamMaxPage: 5,
		},
	}
}

// Clone returns a deep copy so callers can mutate a working copy and only
// persist it when the whole action succeeded.
func (c *AdminConfig) Clone() *AdminConfig {
	out := *c
	out.SourceConfig = append([]Source(nil), c.SourceConfig...)
	out.LiveConfig = append([]Source(nil), c.LiveConfig...)
	out.CustomCategories = append([]Category(nil), c.CustomCategories...)
	out.UserConfig.Users = make([]ManagedUser, len(c.UserConfig.Users))
	for i, u := range c.UserConfig.Users {
		u.UserGroups = append([]string(nil), u.UserGroups...)
		u.EnabledAPIs = append([]string(nil), u.EnabledAPIs...)
		out.UserConfig.Users[i] = u
	}
	out.UserConfig.UserGroups = make([]UserGroup, len(c.UserConfig.UserGroups))
	for i, g := range c.UserConfig.UserGroups {
		g.EnabledAPIs = append([]string(nil), g.EnabledAPIs...)
		out.UserConfig.UserGroups[i] = g
	}
	return &out
}
