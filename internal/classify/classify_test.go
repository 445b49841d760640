package classify

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchdog/internal/audit"
	"watchdog/internal/exclude"
	"watchdog/internal/state"
	"watchdog/internal/watch"
)

// testEnv bundles a classifier with its store and an excluded subtree.
type testEnv struct {
	root     string
	excluded string
	store    *state.Store
	c        *Classifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	excluded := filepath.Join(root, "excluded")
	require.NoError(t, os.Mkdir(excluded, 0755))

	store := state.NewStore()
	filter := exclude.New([]string{excluded}, filepath.Join(root, "live.log"))
	c := New(store, filter, DefaultConfig(), nil)
	return &testEnv{root: root, excluded: excluded, store: store, c: c}
}

func (e *testEnv) writeFile(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(e.root, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	require.NoError(t, os.Chmod(path, 0644))
	return path
}

func actions(entries []audit.Entry) []audit.Action {
	out := make([]audit.Action, len(entries))
	for i, e := range entries {
		out[i] = e.Action
	}
	return out
}

func findAction(entries []audit.Entry, a audit.Action) (audit.Entry, bool) {
	for _, e := range entries {
		if e.Action == a {
			return e, true
		}
	}
	return audit.Entry{}, false
}

func TestCreatedRegularFile(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "a.txt", 100)
	now := time.Now()

	entries := env.c.Process(now, watch.RawEvent{Path: path, Op: watch.OpCreated})
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionCreated, entries[0].Action)
	assert.Equal(t, path, entries[0].Path)
	assert.False(t, entries[0].IsDir)

	fs, ok := env.store.Lookup(path)
	require.True(t, ok)
	assert.Equal(t, uint64(100), fs.Size)
	assert.Equal(t, uint32(0644), fs.Perm)
	owner, ok := env.store.InodeOwner(fs.Inode)
	require.True(t, ok)
	assert.Equal(t, path, owner)
}

func TestCreatedDirectory(t *testing.T) {
	env := newTestEnv(t)
	dir := filepath.Join(env.root, "sub")
	require.NoError(t, os.Mkdir(dir, 0755))

	entries := env.c.Process(time.Now(), watch.RawEvent{Path: dir, Op: watch.OpCreated, IsDir: true})
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionCreated, entries[0].Action)
	assert.True(t, entries[0].IsDir)

	// Directories are tracked for type display but never join the
	// recent-creation pool.
	assert.Empty(t, env.store.RecentCreations(time.Now(), time.Hour))
}

func TestCreatedSymlink(t *testing.T) {
	env := newTestEnv(t)
	target := env.writeFile(t, "target.txt", 10)
	link := filepath.Join(env.root, "link")
	require.NoError(t, os.Symlink(target, link))

	entries := env.c.Process(time.Now(), watch.RawEvent{Path: link, Op: watch.OpCreated})
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionSymlinkCreated, entries[0].Action)
	assert.Equal(t, target, entries[0].Target)
}

func TestCreatedVanishedIsNoop(t *testing.T) {
	env := newTestEnv(t)
	gone := filepath.Join(env.root, "never-existed")

	entries := env.c.Process(time.Now(), watch.RawEvent{Path: gone, Op: watch.OpCreated})
	assert.Empty(t, entries)
	assert.Equal(t, 0, env.store.Len())
}

func TestHardLinkAndCopyDetected(t *testing.T) {
	env := newTestEnv(t)
	original := env.writeFile(t, "orig.txt", 50)
	require.NotEmpty(t, env.c.Process(time.Now(), watch.RawEvent{Path: original, Op: watch.OpCreated}))

	linked := filepath.Join(env.root, "linked.txt")
	require.NoError(t, os.Link(original, linked))

	entries := env.c.Process(time.Now(), watch.RawEvent{Path: linked, Op: watch.OpCreated})
	assert.Contains(t, actions(entries), audit.ActionCreated)

	cp, ok := findAction(entries, audit.ActionCopyDetected)
	require.True(t, ok, "same inode under a new path should report a copy")
	assert.Equal(t, original, cp.Path)
	assert.Equal(t, linked, cp.DestPath)

	hl, ok := findAction(entries, audit.ActionHardLinkDetected)
	require.True(t, ok)
	assert.Equal(t, uint64(2), hl.Links)
}

func TestBaselineAdoption(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "seen-late.txt", 100)

	// First observation of an unknown path: adopt, never diff.
	entries := env.c.Process(time.Now(), watch.RawEvent{Path: path, Op: watch.OpModified})
	assert.Empty(t, entries, "baseline adoption must not emit a spurious delta")

	fs, ok := env.store.Lookup(path)
	require.True(t, ok)
	assert.Equal(t, uint64(100), fs.Size)
}

func TestModifiedSizeChange(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "grow.txt", 100)
	env.c.Process(time.Now(), watch.RawEvent{Path: path, Op: watch.OpCreated})

	require.NoError(t, os.WriteFile(path, make([]byte, 105), 0644))
	entries := env.c.Process(time.Now(), watch.RawEvent{Path: path, Op: watch.OpModified})

	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionModified, entries[0].Action)
	require.NotNil(t, entries[0].Size)
	assert.Equal(t, uint64(100), entries[0].Size.Old)
	assert.Equal(t, uint64(105), entries[0].Size.New)
	assert.Equal(t, int64(5), entries[0].Size.Delta())

	// Stored state holds the new exact byte count.
	fs, _ := env.store.Lookup(path)
	assert.Equal(t, uint64(105), fs.Size)
}

func TestModifiedNothingObservable(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "same.txt", 100)
	env.c.Process(time.Now(), watch.RawEvent{Path: path, Op: watch.OpCreated})

	// A raw modify with no metadata change emits nothing.
	entries := env.c.Process(time.Now(), watch.RawEvent{Path: path, Op: watch.OpModified})
	assert.Empty(t, entries)
}

func TestModifiedPermissionsChange(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "perm.txt", 10)
	env.c.Process(time.Now(), watch.RawEvent{Path: path, Op: watch.OpCreated})

	require.NoError(t, os.Chmod(path, 0600))
	entries := env.c.Process(time.Now(), watch.RawEvent{Path: path, Op: watch.OpModified})

	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionPermissionsChange, entries[0].Action)
	require.NotNil(t, entries[0].Perm)
	assert.Equal(t, uint32(0644), entries[0].Perm.Old)
	assert.Equal(t, uint32(0600), entries[0].Perm.New)
}

func TestModifiedOwnershipChange(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "owner.txt", 10)
	env.c.Process(time.Now(), watch.RawEvent{Path: path, Op: watch.OpCreated})

	// Chown needs privileges, so fake the stored baseline instead: pretend
	// the file used to belong to another uid and let the diff find the
	// current owner.
	fs, ok := env.store.Lookup(path)
	require.True(t, ok)
	fs.Owner = state.Owner{UID: fs.Owner.UID + 1, GID: fs.Owner.GID, User: "olduser", Group: fs.Owner.Group}
	env.store.Put(fs)

	entries := env.c.Process(time.Now(), watch.RawEvent{Path: path, Op: watch.OpModified})
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionOwnershipChange, entries[0].Action)
	require.NotNil(t, entries[0].Owner)
	assert.Contains(t, entries[0].Owner.Old, "olduser")
}

func TestModifiedDirectoryIsNoop(t *testing.T) {
	env := newTestEnv(t)
	dir := filepath.Join(env.root, "d")
	require.NoError(t, os.Mkdir(dir, 0755))

	entries := env.c.Process(time.Now(), watch.RawEvent{Path: dir, Op: watch.OpModified, IsDir: true})
	assert.Empty(t, entries)
}

func TestModifiedVanishedIsNoop(t *testing.T) {
	env := newTestEnv(t)
	gone := filepath.Join(env.root, "raced-away")
	entries := env.c.Process(time.Now(), watch.RawEvent{Path: gone, Op: watch.OpModified})
	assert.Empty(t, entries)
	assert.Equal(t, 0, env.store.Len())
}

func TestDeletedRemovesAllIndices(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "doomed.txt", 20)
	env.c.Process(time.Now(), watch.RawEvent{Path: path, Op: watch.OpCreated})
	fs, _ := env.store.Lookup(path)

	require.NoError(t, os.Remove(path))
	entries := env.c.Process(time.Now(), watch.RawEvent{Path: path, Op: watch.OpDeleted})

	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionDeleted, entries[0].Action)

	_, ok := env.store.Lookup(path)
	assert.False(t, ok)
	_, ok = env.store.InodeOwner(fs.Inode)
	assert.False(t, ok)
	assert.Empty(t, env.store.RecentCreations(time.Now(), time.Hour))
}

func TestMovedAtomicRekey(t *testing.T) {
	env := newTestEnv(t)
	src := env.writeFile(t, "from.txt", 30)
	env.c.Process(time.Now(), watch.RawEvent{Path: src, Op: watch.OpCreated})
	prev, _ := env.store.Lookup(src)

	dest := filepath.Join(env.root, "to.txt")
	require.NoError(t, os.Rename(src, dest))

	entries := env.c.Process(time.Now(), watch.RawEvent{Path: src, DestPath: dest, Op: watch.OpMoved})
	require.NotEmpty(t, entries)
	assert.Equal(t, audit.ActionMoved, entries[0].Action)
	assert.Equal(t, src, entries[0].Path)
	assert.Equal(t, dest, entries[0].DestPath)

	_, ok := env.store.Lookup(src)
	assert.False(t, ok, "residual FileState under source after move")
	moved, ok := env.store.Lookup(dest)
	require.True(t, ok)
	assert.Equal(t, prev.Inode, moved.Inode)

	owner, ok := env.store.InodeOwner(prev.Inode)
	require.True(t, ok)
	assert.Equal(t, dest, owner)

	recents := env.store.RecentCreations(time.Now(), time.Hour)
	require.Len(t, recents, 1)
	assert.Equal(t, dest, recents[0].Path)
}

func TestMovedWithPermissionChange(t *testing.T) {
	env := newTestEnv(t)
	src := env.writeFile(t, "m.txt", 30)
	env.c.Process(time.Now(), watch.RawEvent{Path: src, Op: watch.OpCreated})

	dest := filepath.Join(env.root, "m2.txt")
	require.NoError(t, os.Rename(src, dest))
	require.NoError(t, os.Chmod(dest, 0400))

	entries := env.c.Process(time.Now(), watch.RawEvent{Path: src, DestPath: dest, Op: watch.OpMoved})
	assert.Contains(t, actions(entries), audit.ActionMoved)

	pc, ok := findAction(entries, audit.ActionPermissionsChange)
	require.True(t, ok, "a move that also changed permissions must report it")
	assert.Equal(t, uint32(0400), pc.Perm.New)
	assert.Equal(t, dest, pc.Path)
}

func TestMovedIntoExcludedStopsTracking(t *testing.T) {
	env := newTestEnv(t)
	src := env.writeFile(t, "vanishing.txt", 30)
	env.c.Process(time.Now(), watch.RawEvent{Path: src, Op: watch.OpCreated})

	dest := filepath.Join(env.excluded, "vanishing.txt")
	require.NoError(t, os.Rename(src, dest))

	entries := env.c.Process(time.Now(), watch.RawEvent{Path: src, DestPath: dest, Op: watch.OpMoved})
	assert.Empty(t, entries)
	assert.Equal(t, 0, env.store.Len())
}

func TestExclusionInvariant(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.excluded, "hidden.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	for _, op := range []watch.Op{watch.OpCreated, watch.OpModified, watch.OpDeleted} {
		entries := env.c.Process(time.Now(), watch.RawEvent{Path: path, Op: op})
		assert.Empty(t, entries, "op %v on excluded path emitted entries", op)
	}
	assert.Equal(t, 0, env.store.Len(), "excluded path mutated the state store")
}

// TestPossibleCopyScenario follows the documented example: two creations of
// similar size inside the window produce exactly one possible-copy report,
// and deleting one candidate cleans up without touching the other.
func TestPossibleCopyScenario(t *testing.T) {
	env := newTestEnv(t)
	base := time.Now()

	a := env.writeFile(t, "a", 100)
	b := env.writeFile(t, "b", 105)

	require.Len(t, env.c.Process(base, watch.RawEvent{Path: a, Op: watch.OpCreated}), 1)
	require.Len(t, env.c.Process(base.Add(2*time.Second), watch.RawEvent{Path: b, Op: watch.OpCreated}), 1)

	entries := env.c.ScanPossibleCopies(base.Add(3 * time.Second))
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionPossibleCopy, entries[0].Action)
	assert.Equal(t, a, entries[0].Path, "earlier creation is the first candidate")
	assert.Equal(t, b, entries[0].DestPath)

	// Already-reported pairs stay quiet while both candidates live.
	assert.Empty(t, env.c.ScanPossibleCopies(base.Add(4*time.Second)))

	env.c.Process(base.Add(5*time.Second), watch.RawEvent{Path: a, Op: watch.OpDeleted})
	_, ok := env.store.Lookup(a)
	assert.False(t, ok)
	bState, ok := env.store.Lookup(b)
	require.True(t, ok, "deleting one candidate must not affect the other")
	assert.Equal(t, uint64(105), bState.Size)
}

func TestPossibleCopyToleranceBound(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()
	env.store.RecordRecent("/data/a", 100, now)
	env.store.RecordRecent("/data/b", 111, now) // differs by 11 > 10

	assert.Empty(t, env.c.ScanPossibleCopies(now.Add(time.Second)))
}

func TestPossibleCopyWindowBound(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()
	env.store.RecordRecent("/data/a", 100, now.Add(-30*time.Second))
	env.store.RecordRecent("/data/b", 100, now)

	assert.Empty(t, env.c.ScanPossibleCopies(now))
}
