package identity

import (
	"errors"
	"sort"
	"sync"
)

// Common errors for directory operations.
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUserDisabled  = errors.New("user account is disabled")
	ErrDuplicateUser = errors.New("user already exists")
)

// Directory is the user lookup and authentication capability the server
// consumes.
//
// Implementations must be safe for concurrent use; sessions authenticate
// from independent goroutines.
type Directory interface {
	// Lookup returns a user by username.
	// Returns ErrUserNotFound if the user doesn't exist.
	Lookup(username string) (*User, error)

	// Authenticate verifies username/password credentials.
	// Returns ErrInvalidCredentials if the credentials are invalid.
	// Returns ErrUserDisabled if the account is disabled.
	Authenticate(username, password string) (*User, error)

	// ListUsers returns all users sorted by username.
	ListUsers() ([]*User, error)
}

// StaticDirectory implements Directory over an in-memory user set, typically
// loaded from the configuration file at startup.
type StaticDirectory struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewStaticDirectory builds a StaticDirectory from the given users.
func NewStaticDirectory(users []*User) (*StaticDirectory, error) {
	d := &StaticDirectory{users: make(map[string]*User, len(users))}
	for _, u := range users {
		if err := u.Validate(); err != nil {
			return nil, err
		}
		if _, exists := d.users[u.Username]; exists {
			return nil, ErrDuplicateUser
		}
		d.users[u.Username] = u.Clone()
	}
	return d, nil
}

// Lookup returns a user by username.
func (d *StaticDirectory) Lookup(username string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u.Clone(), nil
}

// Authenticate verifies username/password credentials.
func (d *StaticDirectory) Authenticate(username, password string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[username]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if !u.Enabled {
		return nil, ErrUserDisabled
	}
	if !VerifyPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u.Clone(), nil
}

// ListUsers returns all users sorted by username.
func (d *StaticDirectory) ListUsers() ([]*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	users := make([]*User, 0, len(d.users))
	for _, u := range d.users {
		users = append(users, u.Clone())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// AnonymousUser returns the synthetic read-only account used for anonymous
// logins when the server allows them. root is the anonymous sandbox root.
func AnonymousUser(root string) *User {
	return &User{
		Username:    "anonymous",
		HomeDir:     root,
		Permissions: append([]Permission(nil), ReadOnlyPermissions...),
		Enabled:     true,
	}
}

// IsAnonymousUsername reports whether the login name is one of the
// conventional anonymous account names.
func IsAnonymousUsername(username string) bool {
	return username == "anonymous" || username == "ftp"
}
