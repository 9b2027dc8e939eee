package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/ftpd/internal/logger"
)

// usersFile is the on-disk YAML layout of a FileStore.
type usersFile struct {
	Users []*User `yaml:"users"`
}

// FileStore implements Directory over a YAML users file.
//
// The file is reloaded automatically when it changes on disk, so `ftpd user`
// commands (or a hand edit plus SIGHUP) take effect on a running server
// without a restart. Mutations write the whole file atomically via a
// temp-file rename.
type FileStore struct {
	path string

	mu    sync.RWMutex
	users map[string]*User

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFileStore opens the users file at path, creating an empty one if it does
// not exist, and starts watching it for changes.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:  path,
		users: make(map[string]*User),
		done:  make(chan struct{}),
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create users directory: %w", err)
		}
		if err := s.save(); err != nil {
			return nil, err
		}
	} else if err := s.Reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	// Watch the directory, not the file: atomic saves replace the inode.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch users directory: %w", err)
	}
	s.watcher = watcher
	go s.watch()

	return s, nil
}

// Close stops the file watcher.
func (s *FileStore) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// Path returns the users file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := s.Reload(); err != nil {
				logger.Warn("failed to reload users file", "path", s.path, "error", err)
			} else {
				logger.Info("users file reloaded", "path", s.path)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("users file watcher error", "error", err)
		}
	}
}

// Reload re-reads the users file from disk, replacing the in-memory set.
func (s *FileStore) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read users file: %w", err)
	}

	var f usersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse users file: %w", err)
	}

	users := make(map[string]*User, len(f.Users))
	for _, u := range f.Users {
		if err := u.Validate(); err != nil {
			return fmt.Errorf("users file: %w", err)
		}
		if _, exists := users[u.Username]; exists {
			return fmt.Errorf("users file: %w: %s", ErrDuplicateUser, u.Username)
		}
		users[u.Username] = u
	}

	s.mu.Lock()
	s.users = users
	s.mu.Unlock()
	return nil
}

// save writes the current user set to disk atomically.
// Callers must not hold s.mu for writing around the read inside.
func (s *FileStore) save() error {
	s.mu.RLock()
	f := usersFile{Users: make([]*User, 0, len(s.users))}
	for _, u := range s.users {
		f.Users = append(f.Users, u)
	}
	s.mu.RUnlock()
	sort.Slice(f.Users, func(i, j int) bool { return f.Users[i].Username < f.Users[j].Username })

	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("marshal users file: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write users file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace users file: %w", err)
	}
	return nil
}

// Lookup returns a user by username.
func (s *FileStore) Lookup(username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u.Clone(), nil
}

// Authenticate verifies username/password credentials.
func (s *FileStore) Authenticate(username, password string) (*User, error) {
	s.mu.RLock()
	u, ok := s.users[username]
	if ok {
		u = u.Clone()
	}
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidCredentials
	}
	if !u.Enabled {
		return nil, ErrUserDisabled
	}
	if !VerifyPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	s.mu.Lock()
	if cur, ok := s.users[username]; ok {
		cur.LastLogin = time.Now()
	}
	s.mu.Unlock()

	return u, nil
}

// ListUsers returns all users sorted by username.
func (s *FileStore) ListUsers() ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u.Clone())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// AddUser adds a new user and persists the file.
func (s *FileStore) AddUser(u *User) error {
	if err := u.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if _, exists := s.users[u.Username]; exists {
		s.mu.Unlock()
		return ErrDuplicateUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	s.users[u.Username] = u.Clone()
	s.mu.Unlock()

	return s.save()
}

// RemoveUser deletes a user and persists the file.
func (s *FileStore) RemoveUser(username string) error {
	s.mu.Lock()
	if _, exists := s.users[username]; !exists {
		s.mu.Unlock()
		return ErrUserNotFound
	}
	delete(s.users, username)
	s.mu.Unlock()

	return s.save()
}

// SetPassword updates a user's password hash and persists the file.
func (s *FileStore) SetPassword(username, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	u, exists := s.users[username]
	if !exists {
		s.mu.Unlock()
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	s.mu.Unlock()

	return s.save()
}

// SetEnabled toggles a user account and persists the file.
func (s *FileStore) SetEnabled(username string, enabled bool) error {
	s.mu.Lock()
	u, exists := s.users[username]
	if !exists {
		s.mu.Unlock()
		return ErrUserNotFound
	}
	u.Enabled = enabled
	s.mu.Unlock()

	return s.save()
}
