package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyPermissionsGrantEverything(t *testing.T) {
	u := &User{Username: "alice", Enabled: true}
	for _, p := range AllPermissions {
		assert.True(t, u.Can(p), "permission %s", p)
	}
}

func TestExplicitPermissionsRestrict(t *testing.T) {
	u := &User{
		Username:    "bob",
		Enabled:     true,
		Permissions: []Permission{PermDownload, PermList},
	}

	assert.True(t, u.Can(PermDownload))
	assert.True(t, u.Can(PermList))
	assert.False(t, u.Can(PermUpload))
	assert.False(t, u.Can(PermDelete))
	assert.False(t, u.Can(PermRename))
}

func TestUserValidate(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr bool
	}{
		{"valid", User{Username: "alice"}, false},
		{"valid with permissions", User{Username: "alice", Permissions: []Permission{PermList}}, false},
		{"empty username", User{}, true},
		{"whitespace in username", User{Username: "a b"}, true},
		{"unknown permission", User{Username: "alice", Permissions: []Permission{"fly"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUserClone(t *testing.T) {
	u := &User{
		Username:    "alice",
		Permissions: []Permission{PermList},
	}

	c := u.Clone()
	require.Equal(t, u, c)

	c.Permissions[0] = PermUpload
	assert.Equal(t, PermList, u.Permissions[0], "clone must not share the slice")
}

func TestAnonymousUserIsReadOnly(t *testing.T) {
	u := AnonymousUser("/srv/ftp/anon")

	assert.Equal(t, "anonymous", u.Username)
	assert.Equal(t, "/srv/ftp/anon", u.HomeDir)
	assert.True(t, u.Enabled)
	assert.True(t, u.Can(PermDownload))
	assert.True(t, u.Can(PermList))
	assert.False(t, u.Can(PermUpload))
	assert.False(t, u.Can(PermDelete))
}

func TestIsAnonymousUsername(t *testing.T) {
	assert.True(t, IsAnonymousUsername("anonymous"))
	assert.True(t, IsAnonymousUsername("ftp"))
	assert.False(t, IsAnonymousUsername("alice"))
	assert.False(t, IsAnonymousUsername("Anonymous"))
}
