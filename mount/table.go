package mount

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// MaxPathLen bounds mount root + request path. Longer lookups fail with ErrPathTooLong.
const MaxPathLen = 256

var (
	ErrNotFound    = errors.New("mount: file not found")
	ErrPathTooLong = errors.New("mount: path too long")
)

// Mount is one registered mount point. Dir is set only for OS directories.
type Mount struct {
	Name string
	Dir  string
	FS   billy.Filesystem
}

// Table is an ordered list of mount points. Insertion order is lookup priority.
type Table struct {
	mu     sync.RWMutex
	mounts []Mount
}

func NewTable() *Table {
	return &Table{}
}

// AddDir registers an OS directory. Lookups cannot leave dir, symlinks included.
func (t *Table) AddDir(dir string) {
	t.add(Mount{Name: dir, Dir: dir, FS: osfs.New(dir, osfs.WithBoundOS())})
}

// Add registers an arbitrary filesystem under name.
func (t *Table) Add(name string, fs billy.Filesystem) {
	t.add(Mount{Name: name, FS: fs})
}

func (t *Table) add(m Mount) {
	t.mu.Lock()
	t.mounts = append(t.mounts, m)
	t.mu.Unlock()
}

// Mounts returns a copy of the table in priority order.
func (t *Table) Mounts() []Mount {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Mount, len(t.mounts))
	copy(out, t.mounts)
	return out
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.mounts)
}

// Dirs lists the OS directories in the table.
func (t *Table) Dirs() []string {
	var dirs []string
	for _, m := range t.Mounts() {
		if m.Dir != "" {
			dirs = append(dirs, m.Dir)
		}
	}
	return dirs
}

// Clean roots p at "/" and removes dot segments, so ".." never climbs above a mount.
func Clean(p string) string {
	return path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
}

// relName turns a cleaned rooted path into a name the mount filesystem accepts.
func relName(cleaned string) string {
	rel := strings.TrimPrefix(cleaned, "/")
	if rel == "" {
		return "/"
	}
	return rel
}

// Resolve finds the first mount holding p as a regular file. It returns the
// mount, the mount-relative name, and the file info.
func (t *Table) Resolve(p string) (Mount, string, os.FileInfo, error) {
	cleaned := Clean(p)
	rel := relName(cleaned)
	tooLong := false
	for _, m := range t.Mounts() {
		if len(m.Name)+len(cleaned) > MaxPathLen {
			tooLong = true
			continue
		}
		fi, err := m.FS.Stat(rel)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		return m, rel, fi, nil
	}
	if tooLong {
		return Mount{}, "", nil, fmt.Errorf("%w: %d bytes", ErrPathTooLong, len(cleaned))
	}
	return Mount{}, "", nil, fmt.Errorf("%w: %s", ErrNotFound, cleaned)
}

// OpenRegular resolves p and opens it read-only.
func (t *Table) OpenRegular(p string) (billy.File, os.FileInfo, error) {
	m, rel, fi, err := t.Resolve(p)
	if err != nil {
		return nil, nil, err
	}
	f, err := m.FS.Open(rel)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s in %s: %w", rel, m.Name, err)
	}
	return f, fi, nil
}
