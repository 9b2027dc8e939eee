package identity

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := HashPasswordWithCost(password, bcrypt.MinCost)
	require.NoError(t, err)
	return hash
}

func TestStaticDirectoryAuthenticate(t *testing.T) {
	dir, err := NewStaticDirectory([]*User{
		{Username: "alice", PasswordHash: testHash(t, "alicepass123"), Enabled: true},
		{Username: "bob", PasswordHash: testHash(t, "bobpass12345"), Enabled: false},
	})
	require.NoError(t, err)

	u, err := dir.Authenticate("alice", "alicepass123")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = dir.Authenticate("alice", "wrongpassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = dir.Authenticate("bob", "bobpass12345")
	assert.ErrorIs(t, err, ErrUserDisabled)

	_, err = dir.Authenticate("mallory", "whatever12345")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestStaticDirectoryRejectsDuplicates(t *testing.T) {
	_, err := NewStaticDirectory([]*User{
		{Username: "alice", Enabled: true},
		{Username: "alice", Enabled: true},
	})
	assert.ErrorIs(t, err, ErrDuplicateUser)
}

func TestStaticDirectoryLookupReturnsCopy(t *testing.T) {
	dir, err := NewStaticDirectory([]*User{
		{Username: "alice", Enabled: true, Permissions: []Permission{PermList}},
	})
	require.NoError(t, err)

	u, err := dir.Lookup("alice")
	require.NoError(t, err)
	u.Permissions[0] = PermUpload

	again, err := dir.Lookup("alice")
	require.NoError(t, err)
	assert.Equal(t, PermList, again.Permissions[0])
}

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.yaml")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFileStoreCreatesEmptyFile(t *testing.T) {
	s := newTestFileStore(t)

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	users, err := s.ListUsers()
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestFileStoreAddRemove(t *testing.T) {
	s := newTestFileStore(t)

	err := s.AddUser(&User{
		Username:     "alice",
		PasswordHash: testHash(t, "alicepass123"),
		HomeDir:      "/srv/ftp/alice",
		Enabled:      true,
	})
	require.NoError(t, err)

	err = s.AddUser(&User{Username: "alice", Enabled: true})
	assert.ErrorIs(t, err, ErrDuplicateUser)

	u, err := s.Lookup("alice")
	require.NoError(t, err)
	assert.Equal(t, "/srv/ftp/alice", u.HomeDir)
	assert.False(t, u.CreatedAt.IsZero())

	require.NoError(t, s.RemoveUser("alice"))
	_, err = s.Lookup("alice")
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.ErrorIs(t, s.RemoveUser("alice"), ErrUserNotFound)
}

func TestFileStorePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.AddUser(&User{
		Username:     "alice",
		PasswordHash: testHash(t, "alicepass123"),
		Permissions:  []Permission{PermDownload, PermList},
		Enabled:      true,
	}))
	require.NoError(t, s.Close())

	s2, err := NewFileStore(path)
	require.NoError(t, err)
	defer s2.Close()

	u, err := s2.Lookup("alice")
	require.NoError(t, err)
	assert.Equal(t, []Permission{PermDownload, PermList}, u.Permissions)
	assert.True(t, u.Enabled)
}

func TestFileStoreSetPassword(t *testing.T) {
	s := newTestFileStore(t)

	require.NoError(t, s.AddUser(&User{
		Username:     "alice",
		PasswordHash: testHash(t, "oldpassword1"),
		Enabled:      true,
	}))

	require.NoError(t, s.SetPassword("alice", "newpassword12"))

	_, err := s.Authenticate("alice", "oldpassword1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Authenticate("alice", "newpassword12")
	assert.NoError(t, err)

	assert.ErrorIs(t, s.SetPassword("nobody", "whatever12345"), ErrUserNotFound)
	assert.ErrorIs(t, s.SetPassword("alice", "short"), ErrPasswordTooShort)
}

func TestFileStoreSetEnabled(t *testing.T) {
	s := newTestFileStore(t)

	require.NoError(t, s.AddUser(&User{
		Username:     "alice",
		PasswordHash: testHash(t, "alicepass123"),
		Enabled:      true,
	}))

	require.NoError(t, s.SetEnabled("alice", false))
	_, err := s.Authenticate("alice", "alicepass123")
	assert.ErrorIs(t, err, ErrUserDisabled)

	require.NoError(t, s.SetEnabled("alice", true))
	_, err = s.Authenticate("alice", "alicepass123")
	assert.NoError(t, err)
}

func TestFileStoreAuthenticateRecordsLastLogin(t *testing.T) {
	s := newTestFileStore(t)

	require.NoError(t, s.AddUser(&User{
		Username:     "alice",
		PasswordHash: testHash(t, "alicepass123"),
		Enabled:      true,
	}))

	before := time.Now()
	_, err := s.Authenticate("alice", "alicepass123")
	require.NoError(t, err)

	u, err := s.Lookup("alice")
	require.NoError(t, err)
	assert.False(t, u.LastLogin.Before(before))
}

func TestFileStoreReloadPicksUpExternalEdit(t *testing.T) {
	s := newTestFileStore(t)

	content := `users:
  - username: carol
    password_hash: "` + testHash(t, "carolpass123") + `"
    home_dir: /srv/ftp/carol
    permissions: [download, list]
    enabled: true
`
	require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0o600))
	require.NoError(t, s.Reload())

	u, err := s.Lookup("carol")
	require.NoError(t, err)
	assert.Equal(t, "/srv/ftp/carol", u.HomeDir)
	assert.True(t, u.Can(PermDownload))
	assert.False(t, u.Can(PermUpload))
}

func TestFileStoreReloadRejectsBadFile(t *testing.T) {
	s := newTestFileStore(t)

	require.NoError(t, s.AddUser(&User{
		Username:     "alice",
		PasswordHash: testHash(t, "alicepass123"),
		Enabled:      true,
	}))

	require.NoError(t, os.WriteFile(s.Path(), []byte("users: [{username: ''}]"), 0o600))
	assert.Error(t, s.Reload())

	// The previous in-memory set survives a failed reload.
	_, err := s.Lookup("alice")
	assert.NoError(t, err)
}
