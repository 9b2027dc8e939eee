package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSandbox(t *testing.T) *Sandbox {
	t.Helper()
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "sub", "deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, "hello.txt"), []byte("hi"), 0o644))

	sb, err := New(home)
	require.NoError(t, err)
	return sb
}

func TestNewRejectsMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(file)
	assert.Error(t, err)
}

func TestResolveRelativeAndAbsolute(t *testing.T) {
	sb := newTestSandbox(t)

	// Empty path means cwd.
	got, err := sb.Resolve(sb.Home(), "")
	require.NoError(t, err)
	assert.Equal(t, sb.Home(), got)

	// Leading slash is relative to home, not the host root.
	got, err = sb.Resolve(filepath.Join(sb.Home(), "sub"), "/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sb.Home(), "hello.txt"), got)

	// Bare names are relative to cwd.
	got, err = sb.Resolve(filepath.Join(sb.Home(), "sub"), "deep")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sb.Home(), "sub", "deep"), got)

	// Dot-dot within the sandbox is fine.
	got, err = sb.Resolve(filepath.Join(sb.Home(), "sub", "deep"), "../../hello.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sb.Home(), "hello.txt"), got)
}

func TestResolveRejectsEscape(t *testing.T) {
	sb := newTestSandbox(t)

	_, err := sb.Resolve(sb.Home(), "../../etc")
	assert.ErrorIs(t, err, ErrEscape)

	_, err = sb.Resolve(sb.Home(), "/../etc/passwd")
	assert.ErrorIs(t, err, ErrEscape)

	_, err = sb.Resolve(sb.Home(), "sub/../../../etc")
	assert.ErrorIs(t, err, ErrEscape)
}

func TestResolveNonExistentLeaf(t *testing.T) {
	sb := newTestSandbox(t)

	// Upload targets that don't exist yet resolve fine.
	got, err := sb.Resolve(sb.Home(), "new-upload.bin")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sb.Home(), "new-upload.bin"), got)

	// Even several levels deep.
	got, err = sb.Resolve(sb.Home(), "sub/a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sb.Home(), "sub", "a", "b", "c.txt"), got)

	// But a non-existent path composed to escape is still rejected.
	_, err = sb.Resolve(sb.Home(), "../outside/new.txt")
	assert.ErrorIs(t, err, ErrEscape)
}

func TestResolveIdempotent(t *testing.T) {
	sb := newTestSandbox(t)

	for _, wire := range []string{"", "/", "hello.txt", "/sub/deep", "sub/../hello.txt", "new.txt"} {
		first, err := sb.Resolve(sb.Home(), wire)
		require.NoError(t, err, "wire %q", wire)

		second, err := sb.Resolve(sb.Home(), first[len(sb.Home()):])
		if err == nil {
			assert.Equal(t, first, second, "wire %q", wire)
		}
	}
}

func TestSymlinkInsideFollowed(t *testing.T) {
	sb := newTestSandbox(t)

	link := filepath.Join(sb.Home(), "link")
	require.NoError(t, os.Symlink(filepath.Join(sb.Home(), "sub"), link))

	got, err := sb.Resolve(sb.Home(), "link/deep")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sb.Home(), "sub", "deep"), got)
}

func TestSymlinkOutsideRejected(t *testing.T) {
	sb := newTestSandbox(t)
	outside := t.TempDir()

	link := filepath.Join(sb.Home(), "evil")
	require.NoError(t, os.Symlink(outside, link))

	_, err := sb.Resolve(sb.Home(), "evil")
	assert.ErrorIs(t, err, ErrEscape)

	_, err = sb.Resolve(sb.Home(), "evil/file.txt")
	assert.ErrorIs(t, err, ErrEscape)
}

func TestSymlinkedHome(t *testing.T) {
	real := t.TempDir()
	link := filepath.Join(t.TempDir(), "home-link")
	require.NoError(t, os.Symlink(real, link))

	sb, err := New(link)
	require.NoError(t, err)

	// The canonical home is the symlink target.
	got, err := sb.Resolve(sb.Home(), "file.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sb.Home(), "file.txt"), got)
	_, err = sb.Resolve(sb.Home(), "..")
	assert.ErrorIs(t, err, ErrEscape)
}

func TestWirePath(t *testing.T) {
	sb := newTestSandbox(t)

	assert.Equal(t, "/", sb.WirePath(sb.Home()))
	assert.Equal(t, "/sub", sb.WirePath(filepath.Join(sb.Home(), "sub")))
	assert.Equal(t, "/sub/deep", sb.WirePath(filepath.Join(sb.Home(), "sub", "deep")))
}
