// Package sandbox confines wire paths to a user's home directory.
//
// Every path a client sends is resolved against the session's working
// directory or the user's home, lexically normalized, canonicalized through
// symlinks, and rejected unless the result stays at or below the home
// directory. Non-existent leaves are permitted so uploads and MKD can name
// paths that do not exist yet.
package sandbox

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrEscape is returned when a path resolves outside the sandbox.
var ErrEscape = errors.New("path escapes sandbox")

// Sandbox confines path resolution to a home directory.
// The home path is canonicalized once at construction; Sandbox is immutable
// and safe for concurrent use.
type Sandbox struct {
	home string
}

// New creates a Sandbox rooted at home. The directory must exist; it is
// canonicalized so that a home that is itself a symlink still yields correct
// containment checks.
func New(home string) (*Sandbox, error) {
	abs, err := filepath.Abs(home)
	if err != nil {
		return nil, err
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("sandbox root is not a directory")
	}
	return &Sandbox{home: canonical}, nil
}

// Home returns the canonical sandbox root.
func (sb *Sandbox) Home() string {
	return sb.home
}

// Resolve translates a wire path into an absolute host path.
//
// An empty wire path means cwd; a path beginning with "/" is relative to the
// home directory; anything else is relative to cwd. The result is
// canonicalized through symlinks for the longest existing prefix, with the
// non-existent remainder reattached, and must lie at or below the home
// directory or ErrEscape is returned.
//
// Resolution is idempotent: resolving an already resolved path yields the
// same path.
func (sb *Sandbox) Resolve(cwd, wirePath string) (string, error) {
	var joined string
	switch {
	case wirePath == "":
		joined = cwd
	case strings.HasPrefix(wirePath, "/"):
		joined = filepath.Join(sb.home, wirePath)
	default:
		joined = filepath.Join(cwd, wirePath)
	}

	// Join already cleaned the path, consuming "." and "..". A ".." run
	// longer than the path cannot climb above home because Join anchors at
	// an absolute base, but the result may still point outside via a base
	// escape or symlinks; canonicalize and check below.
	resolved, err := canonicalize(joined)
	if err != nil {
		return "", err
	}

	if !sb.contains(resolved) {
		return "", ErrEscape
	}

	// Symlink targets of every existing component were resolved above;
	// if any pointed outside the home the containment check caught it.
	return resolved, nil
}

// WirePath converts a resolved host path back to the client-visible form
// ("/" for home, "/sub/dir" below it).
func (sb *Sandbox) WirePath(hostPath string) string {
	if hostPath == sb.home {
		return "/"
	}
	rel, err := filepath.Rel(sb.home, hostPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "/"
	}
	return "/" + filepath.ToSlash(rel)
}

// canonicalize resolves symlinks for the longest existing prefix of path and
// reattaches the non-existent remainder.
func canonicalize(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	// Walk up until a prefix exists, then reattach the missing components.
	var remainder []string
	prefix := path
	for {
		parent := filepath.Dir(prefix)
		if parent == prefix {
			// Hit the filesystem root without finding anything.
			return "", err
		}
		remainder = append(remainder, filepath.Base(prefix))
		prefix = parent

		resolved, evalErr := filepath.EvalSymlinks(prefix)
		if evalErr == nil {
			for i := len(remainder) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, remainder[i])
			}
			return resolved, nil
		}
		if !os.IsNotExist(evalErr) {
			return "", evalErr
		}
	}
}

// contains reports whether path equals the home directory or descends from it.
func (sb *Sandbox) contains(path string) bool {
	if path == sb.home {
		return true
	}
	return strings.HasPrefix(path, sb.home+string(filepath.Separator))
}
