//go:build unix

package ftp

import (
	"fmt"
	"os/user"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/marmos91/ftpd/internal/logger"
)

// dropPrivileges switches to the configured user and group. Must run after
// the privileged bind; the order is groups, gid, uid, since setuid first
// would lose the right to change the rest.
func dropPrivileges(username, group string) error {
	if username == "" {
		return nil
	}

	u, err := user.Lookup(username)
	if err != nil {
		return fmt.Errorf("lookup run_as_user %q: %w", username, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return fmt.Errorf("non-numeric uid %q for %q", u.Uid, username)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return fmt.Errorf("non-numeric gid %q for %q", u.Gid, username)
	}

	if group != "" {
		g, err := user.LookupGroup(group)
		if err != nil {
			return fmt.Errorf("lookup run_as_group %q: %w", group, err)
		}
		gid, err = strconv.Atoi(g.Gid)
		if err != nil {
			return fmt.Errorf("non-numeric gid %q for group %q", g.Gid, group)
		}
	}

	if err := unix.Setgroups([]int{gid}); err != nil {
		return fmt.Errorf("setgroups: %w", err)
	}
	if err := unix.Setgid(gid); err != nil {
		return fmt.Errorf("setgid %d: %w", gid, err)
	}
	if err := unix.Setuid(uid); err != nil {
		return fmt.Errorf("setuid %d: %w", uid, err)
	}

	logger.Info("dropped privileges", "uid", uid, "gid", gid)
	return nil
}
