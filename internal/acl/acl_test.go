package acl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidRules(t *testing.T) {
	_, err := New([]string{"not-an-ip"}, nil)
	require.Error(t, err)

	_, err = New(nil, []string{"10.0.0.0/99"})
	require.Error(t, err)
}

func TestEmptyACLAllowsEverything(t *testing.T) {
	c, err := New(nil, nil)
	require.NoError(t, err)

	assert.True(t, c.IsAllowed("127.0.0.1"))
	assert.True(t, c.IsAllowed("203.0.113.7"))
	assert.True(t, c.IsAllowed("2001:db8::1"))
}

func TestDenyTakesPrecedence(t *testing.T) {
	c, err := New([]string{"10.0.0.0/8"}, []string{"10.1.2.3"})
	require.NoError(t, err)

	assert.True(t, c.IsAllowed("10.0.0.1"))
	assert.False(t, c.IsAllowed("10.1.2.3"), "deny entry wins over allow")
}

func TestAllowListRestricts(t *testing.T) {
	c, err := New([]string{"192.168.0.0/16", "203.0.113.7"}, nil)
	require.NoError(t, err)

	assert.True(t, c.IsAllowed("192.168.44.5"))
	assert.True(t, c.IsAllowed("203.0.113.7"))
	assert.False(t, c.IsAllowed("203.0.113.8"))
	assert.False(t, c.IsAllowed("8.8.8.8"))
}

func TestCIDRBoundaries(t *testing.T) {
	c, err := New([]string{"10.2.0.0/15"}, nil)
	require.NoError(t, err)

	tests := []struct {
		ip      string
		allowed bool
	}{
		{"10.2.0.0", true},
		{"10.3.255.255", true},
		{"10.4.0.0", false},
		{"10.1.255.255", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, c.IsAllowed(tt.ip), "ip %s", tt.ip)
	}
}

func TestIPv4MappedIPv6(t *testing.T) {
	c, err := New([]string{"127.0.0.1"}, nil)
	require.NoError(t, err)

	// Dual-stack listeners report v4 peers as ::ffff:a.b.c.d.
	assert.True(t, c.IsAllowed("::ffff:127.0.0.1"))
}

func TestUnparseableAddressDenied(t *testing.T) {
	c, err := New(nil, nil)
	require.NoError(t, err)
	// nil config allows, but a configured ACL denies garbage
	c2, err := New([]string{"10.0.0.0/8"}, nil)
	require.NoError(t, err)

	assert.True(t, c.IsAllowed("10.0.0.1"))
	assert.False(t, c2.IsAllowed("bogus"))
}

func TestNilACLAllows(t *testing.T) {
	var c *IPAccessControl
	assert.True(t, c.IsAllowed("1.2.3.4"))
}
