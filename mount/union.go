package mount

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/chroot"
)

// Table is also a read-only billy.Filesystem: the union of all mounts, where
// the first mount holding a name shadows the rest. The TFTP and NFS mirrors
// serve through this view.
var _ billy.Filesystem = (*Table)(nil)

const writeFlags = os.O_WRONLY | os.O_RDWR | os.O_CREATE | os.O_TRUNC | os.O_APPEND

func notExist(op, name string) error {
	return &os.PathError{Op: op, Path: name, Err: os.ErrNotExist}
}

// first returns the first mount where name exists and the name relative to it.
func (t *Table) first(name string) (Mount, string, bool) {
	rel := relName(Clean(name))
	for _, m := range t.Mounts() {
		if _, err := m.FS.Lstat(rel); err == nil {
			return m, rel, true
		}
	}
	return Mount{}, "", false
}

func (t *Table) Create(filename string) (billy.File, error) {
	return nil, billy.ErrReadOnly
}

func (t *Table) Open(filename string) (billy.File, error) {
	m, rel, ok := t.first(filename)
	if !ok {
		return nil, notExist("open", filename)
	}
	return m.FS.Open(rel)
}

func (t *Table) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	if flag&writeFlags != 0 {
		return nil, billy.ErrReadOnly
	}
	return t.Open(filename)
}

func (t *Table) Stat(filename string) (os.FileInfo, error) {
	m, rel, ok := t.first(filename)
	if !ok {
		return nil, notExist("stat", filename)
	}
	return m.FS.Stat(rel)
}

func (t *Table) Lstat(filename string) (os.FileInfo, error) {
	m, rel, ok := t.first(filename)
	if !ok {
		return nil, notExist("lstat", filename)
	}
	return m.FS.Lstat(rel)
}

func (t *Table) Rename(oldpath, newpath string) error { return billy.ErrReadOnly }

func (t *Table) Remove(filename string) error { return billy.ErrReadOnly }

func (t *Table) Join(elem ...string) string { return filepath.Join(elem...) }

func (t *Table) TempFile(dir, prefix string) (billy.File, error) {
	return nil, billy.ErrReadOnly
}

// ReadDir merges the listings of every mount holding path. Shadowed names
// report the higher priority entry.
func (t *Table) ReadDir(path string) ([]os.FileInfo, error) {
	rel := relName(Clean(path))
	seen := make(map[string]bool)
	var (
		out   []os.FileInfo
		found bool
	)
	for _, m := range t.Mounts() {
		infos, err := m.FS.ReadDir(rel)
		if err != nil {
			continue
		}
		found = true
		for _, fi := range infos {
			if seen[fi.Name()] {
				continue
			}
			seen[fi.Name()] = true
			out = append(out, fi)
		}
	}
	if !found {
		return nil, notExist("readdir", path)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func (t *Table) MkdirAll(filename string, perm os.FileMode) error { return billy.ErrReadOnly }

func (t *Table) Symlink(target, link string) error { return billy.ErrReadOnly }

func (t *Table) Readlink(link string) (string, error) {
	m, rel, ok := t.first(link)
	if !ok {
		return "", notExist("readlink", link)
	}
	return m.FS.Readlink(rel)
}

func (t *Table) Chroot(path string) (billy.Filesystem, error) {
	return chroot.New(t, path), nil
}

func (t *Table) Root() string { return string(filepath.Separator) }

func (t *Table) Capabilities() billy.Capability {
	return billy.ReadCapability | billy.SeekCapability
}
