// Package acl implements IP-based access control for incoming control
// connections.
//
// Rules are evaluated deny-first: an address matching any deny entry is
// rejected regardless of the allow list. When the allow list is empty, every
// address not denied is admitted; a non-empty allow list admits only
// addresses it matches.
package acl

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/marmos91/ftpd/internal/logger"
)

// IPAccessControl holds the allow and deny rule sets.
// It is immutable after construction and safe for concurrent use.
type IPAccessControl struct {
	allow []rule
	deny  []rule
}

// rule is either a single address or a CIDR prefix.
type rule struct {
	addr   netip.Addr
	prefix netip.Prefix
	isCIDR bool
}

func parseRule(s string) (rule, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return rule{}, fmt.Errorf("invalid CIDR rule %q: %w", s, err)
		}
		return rule{prefix: p.Masked(), isCIDR: true}, nil
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return rule{}, fmt.Errorf("invalid address rule %q: %w", s, err)
	}
	return rule{addr: a}, nil
}

func (r rule) matches(a netip.Addr) bool {
	if r.isCIDR {
		return r.prefix.Contains(a.Unmap())
	}
	return r.addr.Unmap() == a.Unmap()
}

// New builds an IPAccessControl from allow and deny rule strings.
// Each rule is an IP address ("203.0.113.7") or a CIDR ("10.0.0.0/8").
// Invalid rules are rejected at construction time.
func New(allow, deny []string) (*IPAccessControl, error) {
	c := &IPAccessControl{}
	for _, s := range allow {
		r, err := parseRule(s)
		if err != nil {
			return nil, err
		}
		c.allow = append(c.allow, r)
	}
	for _, s := range deny {
		r, err := parseRule(s)
		if err != nil {
			return nil, err
		}
		c.deny = append(c.deny, r)
	}
	return c, nil
}

// IsAllowed reports whether the given IP may connect.
// Unparseable addresses are denied.
func (c *IPAccessControl) IsAllowed(ip string) bool {
	if c == nil {
		return true
	}
	a, err := netip.ParseAddr(ip)
	if err != nil {
		logger.Warn("unparseable client address", "client_ip", ip)
		return false
	}

	for _, r := range c.deny {
		if r.matches(a) {
			logger.Warn("address denied by ACL", "client_ip", ip)
			return false
		}
	}

	if len(c.allow) > 0 {
		for _, r := range c.allow {
			if r.matches(a) {
				return true
			}
		}
		logger.Warn("address not in allow list", "client_ip", ip)
		return false
	}

	return true
}
