// Package identity provides user accounts, credential verification, and the
// user directories the FTP server authenticates against.
package identity

import (
	"fmt"
	"strings"
	"time"
)

// Permission is a single named capability a user may hold.
type Permission string

const (
	PermDownload Permission = "download"
	PermUpload   Permission = "upload"
	PermAppend   Permission = "append"
	PermDelete   Permission = "delete"
	PermRename   Permission = "rename"
	PermMkdir    Permission = "mkdir"
	PermRmdir    Permission = "rmdir"
	PermList     Permission = "list"
)

// AllPermissions lists every defined permission.
var AllPermissions = []Permission{
	PermDownload, PermUpload, PermAppend, PermDelete,
	PermRename, PermMkdir, PermRmdir, PermList,
}

// IsValid checks if p is a defined permission.
func (p Permission) IsValid() bool {
	switch p {
	case PermDownload, PermUpload, PermAppend, PermDelete,
		PermRename, PermMkdir, PermRmdir, PermList:
		return true
	}
	return false
}

// ReadOnlyPermissions is the set granted to anonymous logins.
var ReadOnlyPermissions = []Permission{PermDownload, PermList}

// User represents an FTP user account.
//
// An empty Permissions slice grants every permission. This matches the
// historical behavior of accounts created before per-operation permissions
// existed; use ["list"] or similar to actually restrict an account.
type User struct {
	// Username is the unique login name.
	Username string `json:"username" yaml:"username" mapstructure:"username"`

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string `json:"-" yaml:"password_hash" mapstructure:"password_hash"`

	// HomeDir is the user's sandbox root. Empty means the server-wide root.
	HomeDir string `json:"home_dir,omitempty" yaml:"home_dir,omitempty" mapstructure:"home_dir"`

	// Permissions is the set of operations the user may perform.
	// Empty grants all permissions.
	Permissions []Permission `json:"permissions,omitempty" yaml:"permissions,omitempty" mapstructure:"permissions"`

	// Enabled indicates whether the account may log in.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// CreatedAt is when the account was created.
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty" mapstructure:"created_at"`

	// LastLogin is when the user last authenticated successfully.
	LastLogin time.Time `json:"last_login,omitempty" yaml:"last_login,omitempty" mapstructure:"last_login"`
}

// Can reports whether the user holds the given permission.
// An empty permission set grants everything.
func (u *User) Can(p Permission) bool {
	if len(u.Permissions) == 0 {
		return true
	}
	for _, have := range u.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// Validate checks that the user record is well formed.
func (u *User) Validate() error {
	if u.Username == "" {
		return fmt.Errorf("username is required")
	}
	if strings.ContainsAny(u.Username, " \t\r\n") {
		return fmt.Errorf("username %q contains whitespace", u.Username)
	}
	for _, p := range u.Permissions {
		if !p.IsValid() {
			return fmt.Errorf("invalid permission %q for user %q", p, u.Username)
		}
	}
	return nil
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	c := *u
	if u.Permissions != nil {
		c.Permissions = make([]Permission, len(u.Permissions))
		copy(c.Permissions, u.Permissions)
	}
	return &c
}
