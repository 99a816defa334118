// Package resman composes an ordered stack of resource containers into a
// single lookup, mirroring the engine's own layered resource precedence:
// caller overlays, then user-directory aliases, then the language and
// retail keyfiles.
package resman

import (
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nwnkit/nwngo/internal/nwerr"
	"github.com/nwnkit/nwngo/pkg/environ"
	"github.com/nwnkit/nwngo/pkg/keybif"
	"github.com/nwnkit/nwngo/pkg/nwlog"
	"github.com/nwnkit/nwngo/pkg/nwtypes"
	"github.com/nwnkit/nwngo/pkg/res"
)

var log = nwlog.New("resman")

// keyfileContainer adapts *keybif.Reader to the res.Container interface.
type keyfileContainer struct {
	r *keybif.Reader
}

func (k *keyfileContainer) Get(name string) ([]byte, bool, error) {
	b, err := k.r.ReadFile(name)
	if err != nil {
		return nil, false, nil
	}
	return b, true, nil
}

func (k *keyfileContainer) Has(name string) bool {
	_, ok := k.r.FileMap()[nwtypes.CanonicalResref(name)]
	return ok
}

func (k *keyfileContainer) Names() []string {
	fm := k.r.FileMap()
	out := make([]string, 0, len(fm))
	for name := range fm {
		out = append(out, name)
	}
	return out
}

func (k *keyfileContainer) Len() int { return len(k.r.FileMap()) }

func (k *keyfileContainer) Writable() bool { return false }

var _ res.Container = (*keyfileContainer)(nil)

// ResMan is an ordered stack of containers. Lookup returns the first
// container reporting the key; writes target the first writable container.
// A bounded LRU cache fronts repeated lookups, since KEY/BIF and directory
// containers re-read from disk on every Get.
type ResMan struct {
	stack []res.Container
	cache *lru.Cache[string, cacheEntry]
}

type cacheEntry struct {
	data  []byte
	found bool
}

const defaultCacheSize = 512

// New composes stack into a ResMan, highest precedence first.
func New(stack ...res.Container) *ResMan {
	cache, _ := lru.New[string, cacheEntry](defaultCacheSize)
	return &ResMan{stack: stack, cache: cache}
}

// Get returns the bytes for name from the first container in the stack that
// has it.
func (rm *ResMan) Get(name string) ([]byte, bool, error) {
	key, err := normalizeOrError(name)
	if err != nil {
		return nil, false, err
	}
	if e, ok := rm.cache.Get(key); ok {
		return e.data, e.found, nil
	}
	for _, c := range rm.stack {
		data, ok, err := c.Get(key)
		if err != nil {
			return nil, false, err
		}
		if ok {
			rm.cache.Add(key, cacheEntry{data: data, found: true})
			return data, true, nil
		}
	}
	rm.cache.Add(key, cacheEntry{found: false})
	return nil, false, nil
}

func normalizeOrError(name string) (string, error) {
	if !nwtypes.IsValidResref(name) {
		return "", fmt.Errorf("resman: %w: %q", nwerr.ErrInvalidResref, name)
	}
	return nwtypes.CanonicalResref(name), nil
}

// Set writes to the first writable container in the stack.
func (rm *ResMan) Set(name string, data []byte) error {
	key, err := normalizeOrError(name)
	if err != nil {
		return err
	}
	for _, c := range rm.stack {
		if wc, ok := c.(res.WritableContainer); ok && wc.Writable() {
			if err := wc.Set(key, data); err != nil {
				return err
			}
			rm.cache.Add(key, cacheEntry{data: data, found: true})
			return nil
		}
	}
	return fmt.Errorf("resman: %w: no writable container in stack", nwerr.ErrReadOnly)
}

// InvalidateCache drops every cached lookup, forcing the next Get to
// re-consult the backing containers.
func (rm *ResMan) InvalidateCache() {
	rm.cache.Purge()
}

// Len returns the number of containers in the stack.
func (rm *ResMan) Len() int { return len(rm.stack) }

// Create composes the default ResMan stack used by the retail engine:
// caller-supplied overlays (highest precedence), then the user-directory
// alias directories, then the language and retail/base keyfiles.
func Create(overlays []res.Container, includeUser bool) (*ResMan, error) {
	install, err := environ.InstallDirectory()
	if err != nil {
		return nil, err
	}

	var userDir string
	var haveUser bool
	if includeUser {
		if u, err := environ.UserDirectory(); err == nil {
			userDir = u
			haveUser = true
		}
	}

	language := environ.Language()
	langCode, err := language.Code()
	if err != nil {
		return nil, err
	}
	dataRoot := filepath.Join(install, "data")
	langDataRoot := filepath.Join(install, "lang", langCode, "data")

	stack := append([]res.Container{}, overlays...)

	addUserAlias := func(alias string) {
		if !haveUser {
			return
		}
		path, err := environ.ResolveAlias(alias)
		if err != nil {
			return
		}
		dir, err := res.Open(path, false)
		if err != nil {
			log.Debugf("skipping alias %s: %v", alias, err)
			return
		}
		log.Debugf("composed alias %s -> %s (%d resources)", alias, path, dir.Len())
		stack = append(stack, dir)
	}
	addRootDir := func(sub string) {
		path := filepath.Join(dataRoot, sub)
		dir, err := res.Open(path, false)
		if err != nil {
			log.Debugf("skipping data dir %s: %v", path, err)
			return
		}
		log.Debugf("composed data dir %s (%d resources)", path, dir.Len())
		stack = append(stack, dir)
	}
	addLangDir := func(sub string) {
		path := filepath.Join(langDataRoot, sub)
		dir, err := res.Open(path, false)
		if err != nil {
			log.Debugf("skipping language dir %s: %v", path, err)
			return
		}
		log.Debugf("composed language dir %s (%d resources)", path, dir.Len())
		stack = append(stack, dir)
	}

	addUserAlias("PORTRAITS")
	addRootDir("prt")
	addUserAlias("DEVELOPMENT")
	addUserAlias("OVERRIDE")
	addLangDir("ovr")
	addUserAlias("AMBIENT")
	addRootDir("amb")
	addUserAlias("MUSIC")
	addRootDir("mus")

	addKeyfile := func(path string) {
		if _, err := os.Stat(path); err != nil {
			log.Debugf("skipping keyfile %s: %v", path, err)
			return
		}
		r, err := keybif.Open(path, filepath.Dir(path))
		if err != nil {
			log.Warnf("keyfile %s present but failed to open: %v", path, err)
			return
		}
		log.Debugf("composed keyfile %s (%d resources)", path, len(r.FileMap()))
		stack = append(stack, &keyfileContainer{r: r})
	}
	addKeyfile(filepath.Join(langDataRoot, "nwn_base_loc.key"))
	addKeyfile(filepath.Join(dataRoot, "nwn_retail.key"))
	addKeyfile(filepath.Join(dataRoot, "nwn_base.key"))

	log.Infof("composed resource stack: %d containers", len(stack))
	return New(stack...), nil
}
