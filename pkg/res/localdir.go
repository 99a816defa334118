package res

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/nwnkit/nwngo/internal/nwerr"
	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

// LocalDirectory indexes a filesystem directory's entries once at open
// time; filenames that do not satisfy IsValidResref are ignored. A missing
// directory in read-only mode presents as an empty container; in writable
// mode Open (through Reindex) creates it.
type LocalDirectory struct {
	dir      string
	writable bool
	index    map[string]string // canonical name -> actual on-disk filename
}

// Open indexes dir. When writable is false and dir does not exist, the
// resulting container is permanently empty (Reindex will not find it
// later unless the directory is created out of band).
func Open(dir string, writable bool) (*LocalDirectory, error) {
	d := &LocalDirectory{dir: dir, writable: writable}
	if err := d.Reindex(); err != nil {
		return nil, err
	}
	return d, nil
}

// Reindex rescans the directory from scratch.
func (d *LocalDirectory) Reindex() error {
	index := map[string]string{}
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if os.IsNotExist(err) {
			if d.writable {
				if mkErr := os.MkdirAll(d.dir, 0o755); mkErr != nil {
					return fmt.Errorf("res: creating %q: %w", d.dir, mkErr)
				}
			}
			d.index = index
			return nil
		}
		return fmt.Errorf("res: reading %q: %w", d.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !nwtypes.IsValidResref(name) {
			continue
		}
		index[nwtypes.CanonicalResref(name)] = name
	}
	d.index = index
	return nil
}

func (d *LocalDirectory) Get(name string) ([]byte, bool, error) {
	key, err := canonicalOrError(name)
	if err != nil {
		return nil, false, err
	}
	actual, ok := d.index[key]
	if !ok {
		return nil, false, nil
	}
	data, err := os.ReadFile(filepath.Join(d.dir, actual))
	if err != nil {
		return nil, false, fmt.Errorf("res: reading %q: %w", actual, err)
	}
	return data, true, nil
}

func (d *LocalDirectory) Has(name string) bool {
	key, err := canonicalOrError(name)
	if err != nil {
		return false
	}
	_, ok := d.index[key]
	return ok
}

func (d *LocalDirectory) Names() []string {
	out := make([]string, 0, len(d.index))
	for k := range d.index {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (d *LocalDirectory) Len() int { return len(d.index) }

func (d *LocalDirectory) Writable() bool { return d.writable }

func (d *LocalDirectory) Set(name string, data []byte) error {
	if !d.writable {
		return fmt.Errorf("res: %w", nwerr.ErrReadOnly)
	}
	key, err := canonicalOrError(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("res: creating %q: %w", d.dir, err)
	}
	if err := os.WriteFile(filepath.Join(d.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("res: writing %q: %w", name, err)
	}
	d.index[key] = name
	return nil
}

func (d *LocalDirectory) Delete(name string) error {
	if !d.writable {
		return fmt.Errorf("res: %w", nwerr.ErrReadOnly)
	}
	key, err := canonicalOrError(name)
	if err != nil {
		return err
	}
	actual, ok := d.index[key]
	if !ok {
		return fmt.Errorf("res: %w: %q", nwerr.ErrNotFound, name)
	}
	if err := os.Remove(filepath.Join(d.dir, actual)); err != nil {
		return fmt.Errorf("res: removing %q: %w", actual, err)
	}
	delete(d.index, key)
	return nil
}

var _ WritableContainer = (*LocalDirectory)(nil)
