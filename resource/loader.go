package resource

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/kamstrup/intmap"
	"go.uber.org/zap"
)

// Loader reads resources from a filesystem and caches them by normalized path.
type Loader struct {
	fsys   fs.FS
	logger *zap.Logger
	cache  *intmap.Map[uint64, File]
}

// NewLoader creates a loader reading from fsys.
func NewLoader(fsys fs.FS, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		fsys:   fsys,
		logger: logger,
		cache:  intmap.New[uint64, File](64),
	}
}

// Normalize converts p to the canonical cache form: forward slashes, cleaned, relative.
func Normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

// Key returns the cache key of p.
func Key(p string) uint64 {
	return xxhash.Sum64String(Normalize(p))
}

// FS returns the filesystem the loader reads from.
func (l *Loader) FS() fs.FS { return l.fsys }

func (l *Loader) LoadText(p string) (*Text, error) {
	f, err := l.load(KindText, p)
	if err != nil {
		return nil, err
	}
	return f.(*Text), nil
}

func (l *Loader) LoadLua(p string) (*LuaScript, error) {
	f, err := l.load(KindLua, p)
	if err != nil {
		return nil, err
	}
	return f.(*LuaScript), nil
}

func (l *Loader) LoadImage(p string) (*Image, error) {
	f, err := l.load(KindImage, p)
	if err != nil {
		return nil, err
	}
	return f.(*Image), nil
}

func (l *Loader) LoadModel(p string) (*Model, error) {
	f, err := l.load(KindModel, p)
	if err != nil {
		return nil, err
	}
	return f.(*Model), nil
}

func (l *Loader) load(kind Kind, p string) (File, error) {
	normalized := Normalize(p)
	key := xxhash.Sum64String(normalized)

	if cached, ok := l.cache.Get(key); ok {
		if cached.Path() != normalized {
			return nil, fmt.Errorf("resource %q: cache key collides with %q", normalized, cached.Path())
		}
		if cached.Kind() != kind {
			return nil, fmt.Errorf("resource %q as %s: %w (%s)", normalized, kind, ErrKindMismatch, cached.Kind())
		}
		return cached, nil
	}

	f := newFile(kind, normalized)
	if err := l.read(f); err != nil {
		return nil, err
	}
	l.cache.Put(key, f)
	l.logger.Debug("resource loaded",
		zap.String("path", normalized),
		zap.Stringer("kind", kind),
		zap.Int("bytes", f.Size()),
	)
	return f, nil
}

func (l *Loader) read(f File) error {
	data, err := fs.ReadFile(l.fsys, f.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("resource %q: %w", f.Path(), ErrNotFound)
		}
		return fmt.Errorf("resource %q: %w", f.Path(), err)
	}
	if err := f.decode(data); err != nil {
		return fmt.Errorf("resource %q: decode %s: %w", f.Path(), f.Kind(), err)
	}
	return nil
}

// Reload re-reads a cached resource in place so existing holders see the new
// contents. A failed reload leaves the previous contents intact.
func (l *Loader) Reload(p string) error {
	normalized := Normalize(p)
	cached, ok := l.cache.Get(xxhash.Sum64String(normalized))
	if !ok {
		return fmt.Errorf("resource %q: %w", normalized, ErrNotFound)
	}

	fresh := newFile(cached.Kind(), normalized)
	if err := l.read(fresh); err != nil {
		l.logger.Warn("resource reload failed", zap.String("path", normalized), zap.Error(err))
		return err
	}

	switch dst := cached.(type) {
	case *Text:
		*dst = *fresh.(*Text)
	case *LuaScript:
		*dst = *fresh.(*LuaScript)
	case *Image:
		*dst = *fresh.(*Image)
	case *Model:
		*dst = *fresh.(*Model)
	}
	l.logger.Info("resource reloaded", zap.String("path", normalized))
	return nil
}

// Loaded reports whether p is in the cache.
func (l *Loader) Loaded(p string) bool {
	_, ok := l.cache.Get(Key(p))
	return ok
}

// Len returns the number of cached resources.
func (l *Loader) Len() int { return l.cache.Len() }

// Files returns the cached resources sorted by path.
func (l *Loader) Files() []File {
	files := make([]File, 0, l.cache.Len())
	l.cache.ForEach(func(_ uint64, f File) bool {
		files = append(files, f)
		return true
	})
	sort.Slice(files, func(i, j int) bool { return files[i].Path() < files[j].Path() })
	return files
}

// Evict drops p from the cache. Holders keep their copy.
func (l *Loader) Evict(p string) bool {
	return l.cache.Del(Key(p))
}
