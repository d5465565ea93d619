package admin

import (
	"context"
	"fmt"

	"github.com/naseaoi/IceTV/internal/models"
	"github.com/naseaoi/IceTV/internal/permission"
)

// UserActionRequest is the action payload for the user endpoint. Field
// names follow the document's wire format.
type UserActionRequest struct {
	Action         string   `json:"action"`
	TargetUsername string   `json:"targetUsername,omitempty"`
	TargetPassword string   `json:"targetPassword,omitempty"`
	Usernames      []string `json:"usernames,omitempty"`
	UserGroups     []string `json:"userGroups,omitempty"`
	EnabledAPIs    []string `json:"enabledApis,omitempty"`
	GroupAction    string   `json:"groupAction,omitempty"`
	GroupName      string   `json:"groupName,omitempty"`
}

// ApplyUserAction applies one user mutation on behalf of actor. The
// permission model is re-checked here: the UI filters controls, but the
// server is the authority.
func (s *Service) ApplyUserAction(ctx context.Context, actor permission.Context, req UserActionRequest) error {
	return s.mutate(ctx, "user", req.Action, func(cfg *models.AdminConfig) error {
		switch req.Action {
		case "add":
			return s.addUser(ctx, cfg, actor, req)
		case "ban", "unban":
			return s.setBanned(cfg, actor, req.TargetUsername, req.Action == "ban")
		case "setAdmin", "cancelAdmin":
			return s.setAdmin(cfg, actor, req.TargetUsername, req.Action == "setAdmin")
		case "changePassword":
			return s.changeUserPassword(ctx, cfg, actor, req)
		case "deleteUser":
			return s.deleteUser(ctx, cfg, actor, req.TargetUsername)
		case "updateUserGroups":
			return s.updateUserGroups(cfg, actor, req.TargetUsername, req.UserGroups)
		case "batchUpdateUserGroups":
			return s.batchUpdateUserGroups(cfg, actor, req.Usernames, req.UserGroups)
		case "updateUserApis":
			return s.updateUserAPIs(cfg, actor, req.TargetUsername, req.EnabledAPIs)
		case "userGroup":
			return s.userGroupAction(cfg, actor, req)
		default:
			return fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
		}
	})
}

// Register creates a self-service account. It is gated on the site's
// open_register switch rather than on an acting administrator.
func (s *Service) Register(ctx context.Context, username, password string) error {
	return s.mutate(ctx, "user", "register", func(cfg *models.AdminConfig) error {
		if username == "" || password == "" {
			return fmt.Errorf("%w: username and password are required", ErrInvalid)
		}
		if username == s.owner {
			return fmt.Errorf("%w: username %q is reserved", ErrKeyExists, username)
		}
		if !cfg.SiteConfig.OpenRegister {
			return fmt.Errorf("%w: registration is closed", ErrPermission)
		}
		for _, u := range cfg.UserConfig.Users {
			if u.Username == username {
				return fmt.Errorf("%w: user %q", ErrKeyExists, username)
			}
		}
		if err := s.credentialFree(ctx, username); err != nil {
			return err
		}
		if err := s.store.CreateUser(ctx, username, password); err != nil {
			return err
		}
		cfg.UserConfig.Users = append(cfg.UserConfig.Users, models.ManagedUser{
			Username: username,
			Role:     models.RoleUser,
		})
		return nil
	})
}

// targetUser resolves the target row. The owner is never a row; targeting
// the owner yields a synthetic entry so the predicates can deny it.
func (s *Service) targetUser(cfg *models.AdminConfig, username string) (int, models.ManagedUser, error) {
	if username == s.owner {
		return -1, models.ManagedUser{Username: s.owner, Role: models.RoleOwner}, nil
	}
	for i, u := range cfg.UserConfig.Users {
		if u.Username == username {
			return i, u, nil
		}
	}
	return -1, models.ManagedUser{}, fmt.Errorf("%w: user %q", ErrNotFound, username)
}

// credentialFree rejects usernames that already hold a credential row,
// catching accounts whose document row was lost or never written.
func (s *Service) credentialFree(ctx context.Context, username string) error {
	exists, err := s.store.UserExists(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: user %q", ErrKeyExists, username)
	}
	return nil
}

func requireAdmin(actor permission.Context) error {
	if actor.Role != models.RoleOwner && actor.Role != models.RoleAdmin {
		return ErrPermission
	}
	return nil
}

func (s *Service) addUser(ctx context.Context, cfg *models.AdminConfig, actor permission.Context, req UserActionRequest) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if req.TargetUsername == "" || req.TargetPassword == "" {
		return fmt.Errorf("%w: username and password are required", ErrInvalid)
	}
	if req.TargetUsername == s.owner {
		return fmt.Errorf("%w: username %q is reserved", ErrKeyExists, req.TargetUsername)
	}
	for _, u := range cfg.UserConfig.Users {
		if u.Username == req.TargetUsername {
			return fmt.Errorf("%w: user %q", ErrKeyExists, req.TargetUsername)
		}
	}
	if err := s.credentialFree(ctx, req.TargetUsername); err != nil {
		return err
	}
	if err := s.store.CreateUser(ctx, req.TargetUsername, req.TargetPassword); err != nil {
		return err
	}
	cfg.UserConfig.Users = append(cfg.UserConfig.Users, models.ManagedUser{
		Username:   req.TargetUsername,
		Role:       models.RoleUser,
		UserGroups: req.UserGroups,
	})
	return nil
}

func (s *Service) setBanned(cfg *models.AdminConfig, actor permission.Context, username string, banned bool) error {
	i, target, err := s.targetUser(cfg, username)
	if err != nil {
		return err
	}
	if i < 0 || !permission.CanOperate(target, actor) {
		return ErrPermission
	}
	cfg.UserConfig.Users[i].Banned = banned
	return nil
}

// setAdmin grants or revokes the admin role. Only the owner hands out
// admin rights.
func (s *Service) setAdmin(cfg *models.AdminConfig, actor permission.Context, username string, admin bool) error {
	if actor.Role != models.RoleOwner {
		return ErrPermission
	}
	i, target, err := s.targetUser(cfg, username)
	if err != nil {
		return err
	}
	if i < 0 || !permission.CanOperate(target, actor) {
		return ErrPermission
	}
	if admin {
		cfg.UserConfig.Users[i].Role = models.RoleAdmin
	} else {
		cfg.UserConfig.Users[i].Role = models.RoleUser
	}
	return nil
}

func (s *Service) changeUserPassword(ctx context.Context, cfg *models.AdminConfig, actor permission.Context, req UserActionRequest) error {
	if req.TargetPassword == "" {
		return fmt.Errorf("%w: password must not be empty", ErrInvalid)
	}
	_, target, err := s.targetUser(cfg, req.TargetUsername)
	if err != nil {
		return err
	}
	if !permission.CanChangePassword(target, actor) {
		return ErrPermission
	}
	return s.store.ChangePassword(ctx, req.TargetUsername, req.TargetPassword)
}

func (s *Service) deleteUser(ctx context.Context, cfg *models.AdminConfig, actor permission.Context, username string) error {
	i, target, err := s.targetUser(cfg, username)
	if err != nil {
		return err
	}
	if i < 0 || !permission.CanDelete(target, actor) {
		return ErrPermission
	}
	if err := s.store.DeleteUser(ctx, username); err != nil {
		return err
	}
	cfg.UserConfig.Users = append(cfg.UserConfig.Users[:i], cfg.UserConfig.Users[i+1:]...)
	return nil
}

func (s *Service) updateUserGroups(cfg *models.AdminConfig, actor permission.Context, username string, groups []string) error {
	if err := groupsExist(cfg, groups); err != nil {
		return err
	}
	i, target, err := s.targetUser(cfg, username)
	if err != nil {
		return err
	}
	if i < 0 || !permission.CanConfigure(target, actor) {
		return ErrPermission
	}
	cfg.UserConfig.Users[i].UserGroups = groups
	return nil
}

// batchUpdateUserGroups applies the same group assignment to every named
// user. The whole batch is rejected if any single target is disallowed.
func (s *Service) batchUpdateUserGroups(cfg *models.AdminConfig, actor permission.Context, usernames, groups []string) error {
	if len(usernames) == 0 {
		return fmt.Errorf("%w: no usernames given", ErrInvalid)
	}
	if err := groupsExist(cfg, groups); err != nil {
		return err
	}
	indices := make([]int, 0, len(usernames))
	for _, name := range usernames {
		i, target, err := s.targetUser(cfg, name)
		if err != nil {
			return err
		}
		if i < 0 || !permission.CanConfigure(target, actor) {
			return ErrPermission
		}
		indices = append(indices, i)
	}
	for _, i := range indices {
		cfg.UserConfig.Users[i].UserGroups = groups
	}
	return nil
}

func (s *Service) updateUserAPIs(cfg *models.AdminConfig, actor permission.Context, username string, apis []string) error {
	i, target, err := s.targetUser(cfg, username)
	if err != nil {
		return err
	}
	if i < 0 || !permission.CanConfigure(target, actor) {
		return ErrPermission
	}
	cfg.UserConfig.Users[i].EnabledAPIs = apis
	return nil
}

func (s *Service) userGroupAction(cfg *models.AdminConfig, actor permission.Context, req UserActionRequest) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if req.GroupName == "" {
		return fmt.Errorf("%w: group name must not be empty", ErrInvalid)
	}
	idx := -1
	for i, g := range cfg.UserConfig.UserGroups {
		if g.Name == req.GroupName {
			idx = i
			break
		}
	}
	switch req.GroupAction {
	case "add":
		if idx >= 0 {
			return fmt.Errorf("%w: group %q", ErrKeyExists, req.GroupName)
		}
		cfg.UserConfig.UserGroups = append(cfg.UserConfig.UserGroups, models.UserGroup{
			Name:        req.GroupName,
			EnabledAPIs: req.EnabledAPIs,
		})
	case "edit":
		if idx < 0 {
			return fmt.Errorf("%w: group %q", ErrNotFound, req.GroupName)
		}
		cfg.UserConfig.UserGroups[idx].EnabledAPIs = req.EnabledAPIs
	case "delete":
		if idx < 0 {
			return fmt.Errorf("%w: group %q", ErrNotFound, req.GroupName)
		}
		cfg.UserConfig.UserGroups = append(cfg.UserConfig.UserGroups[:idx], cfg.UserConfig.UserGroups[idx+1:]...)
		// Strip the deleted group from every member.
		for i, u := range cfg.UserConfig.Users {
			kept := u.UserGroups[:0]
			for _, g := range u.UserGroups {
				if g != req.GroupName {
					kept = append(kept, g)
				}
			}
			cfg.UserConfig.Users[i].UserGroups = kept
		}
	default:
		return fmt.Errorf("%w: group action %q", ErrUnknownAction, req.GroupAction)
	}
	return nil
}

func groupsExist(cfg *models.AdminConfig, groups []string) error {
	known := make(map[string]bool, len(cfg.UserConfig.UserGroups))
	for _, g := range cfg.UserConfig.UserGroups {
		known[g.Name] = true
	}
	for _, g := range groups {
		if !known[g] {
			return fmt.Errorf("%w: user group %q", ErrNotFound, g)
		}
	}
	return nil
}
