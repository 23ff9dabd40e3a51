// Package auth loads the user directory and enforces role permissions for
// pipeline actions.
package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	apperrors "salescli/internal/errors"
)

// Actions a user may be granted.
const (
	ActionRunPipeline   = "run_pipeline"
	ActionViewReports   = "view_reports"
	ActionExportReports = "export_reports"
	ActionModifyConfig  = "modify_config"
	ActionViewLogs      = "view_logs"
)

// Roles known to the directory.
const (
	RoleAdmin   = "admin"
	RoleAnalyst = "analyst"
	RoleViewer  = "viewer"
)

// StatusActive is the only status allowed to act.
const StatusActive = "active"

// rolePermissions maps each role to its allowed actions.
var rolePermissions = map[string]map[string]bool{
	RoleAdmin: {
		ActionRunPipeline:   true,
		ActionViewReports:   true,
		ActionExportReports: true,
		ActionModifyConfig:  true,
		ActionViewLogs:      true,
	},
	RoleAnalyst: {
		ActionRunPipeline:   true,
		ActionViewReports:   true,
		ActionExportReports: true,
	},
	RoleViewer: {
		ActionViewReports: true,
	},
}

// User is one entry of the user directory.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// Can reports whether the user may perform the action. Inactive users can do
// nothing regardless of role.
func (u User) Can(action string) bool {
	if u.Status != StatusActive {
		return false
	}
	return rolePermissions[u.Role][action]
}

// Directory holds users indexed by email, preserving file order for
// deterministic recipient lists.
type Directory struct {
	users   []User
	byEmail map[string]User
}

// NewDirectory builds a directory from a user list, applying the viewer role
// and active status defaults to incomplete entries. Entries without an email
// cannot be addressed and are kept out of the index.
func NewDirectory(users []User) *Directory {
	d := &Directory{byEmail: make(map[string]User, len(users))}
	for _, u := range users {
		if u.Role == "" {
			u.Role = RoleViewer
		}
		if u.Status == "" {
			u.Status = StatusActive
		}
		if u.CreatedAt == "" {
			u.CreatedAt = time.Now().UTC().Format(time.RFC3339)
		}
		if u.Email == "" {
			continue
		}
		d.users = append(d.users, u)
		d.byEmail[u.Email] = u
	}
	return d
}

// DefaultDirectory returns the built-in directory used when no users file is
// present.
func DefaultDirectory() *Directory {
	return NewDirectory([]User{
		{ID: "1", Email: "admin@example.com", Role: RoleAdmin, Status: StatusActive},
		{ID: "2", Email: "analyst1@example.com", Role: RoleAnalyst, Status: StatusActive},
		{ID: "3", Email: "viewer1@example.com", Role: RoleViewer, Status: StatusActive},
	})
}

// Load reads a users file (a JSON array of user objects). A UTF-8 byte order
// mark is tolerated. A missing file is a NOT_FOUND error.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("users file %s", path))
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to read users file %s", path), err)
	}

	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to parse users file %s", path), err)
	}

	return NewDirectory(users), nil
}

// LoadOrDefault is Load, falling back to the built-in directory when the
// file does not exist.
func LoadOrDefault(path string) (*Directory, error) {
	dir, err := Load(path)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrTypeNotFound) {
			return DefaultDirectory(), nil
		}
		return nil, err
	}
	return dir, nil
}

// Get returns the user for an email address.
func (d *Directory) Get(email string) (User, error) {
	user, ok := d.byEmail[email]
	if !ok {
		return User{}, apperrors.NewNotFoundError(fmt.Sprintf("user %s", email))
	}
	return user, nil
}

// Users returns all indexed users in file order.
func (d *Directory) Users() []User {
	out := make([]User, len(d.users))
	copy(out, d.users)
	return out
}

// RecipientsByRole returns the emails of active users holding the role, in
// file order.
func (d *Directory) RecipientsByRole(role string) []string {
	var recipients []string
	for _, u := range d.users {
		if u.Status != StatusActive {
			continue
		}
		if u.Role == role {
			recipients = append(recipients, u.Email)
		}
	}
	return recipients
}

// Authorize returns a PERMISSION error when the user may not perform the
// action.
func Authorize(user User, action string) error {
	if !user.Can(action) {
		return apperrors.NewPermissionError(
			fmt.Sprintf("user %s with role %s cannot perform %q", user.Email, user.Role, action)).
			WithContext("user", user.Email).
			WithContext("role", user.Role).
			WithContext("action", action)
	}
	return nil
}
