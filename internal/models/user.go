package models

// User roles. The owner is defined by environment identity and never appears
// as a mutable row in the user list.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
	RoleOwner = "owner"
)

// ManagedUser is one account row in the configuration document. Credentials
// live in the user store; this row only carries role and policy state.
type ManagedUser struct {
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Banned      bool     `json:"banned"`
	UserGroups  []string `json:"user_groups,omitempty"`
	EnabledAPIs []string `json:"enabled_apis,omitempty"`
}

// UserGroup names a set of source APIs its members may search.
type UserGroup struct {
	Name        string   `json:"name"`
	EnabledAPIs []string `json:"enabled_apis,omitempty"`
}
