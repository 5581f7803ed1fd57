package gallery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DerivativeExt is the extension of every derivative file.
const DerivativeExt = ".jpg"

// VersionPath locates one derivative of an original.
type VersionPath struct {
	Spec         DerivativeSpec
	Path         string
	RelativePath string
}

// ImagePaths locates an original and all of its derivatives.
type ImagePaths struct {
	Original         string
	OriginalRelative string
	Versions         []VersionPath
}

// Resolver maps filenames onto the gallery root. It does not validate
// filenames; callers run ValidateFilename at their boundary first.
//
// It keeps an index from AssetBaseName to original filename so that
// FindOriginal only lists the root on a miss. Entries are checked against
// the disk before use.
type Resolver struct {
	root    string
	specs   []DerivativeSpec
	readDir func(string) ([]os.DirEntry, error)

	mu        sync.RWMutex
	originals map[string]string
}

func NewResolver(root string, specs []DerivativeSpec) *Resolver {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Resolver{
		root:      root,
		specs:     append([]DerivativeSpec(nil), specs...),
		readDir:   os.ReadDir,
		originals: make(map[string]string),
	}
}

func (r *Resolver) Root() string { return r.root }

func (r *Resolver) Specs() []DerivativeSpec {
	return append([]DerivativeSpec(nil), r.specs...)
}

// Spec looks up the derivative stored under folder.
func (r *Resolver) Spec(folder string) (DerivativeSpec, bool) {
	for _, s := range r.specs {
		if s.Folder == folder {
			return s, true
		}
	}
	return DerivativeSpec{}, false
}

// Paths computes the original and derivative locations for filename, which
// already carries its extension. Versions keep the configured order.
func (r *Resolver) Paths(filename string) ImagePaths {
	base := Base(filename)
	p := ImagePaths{
		Original:         filepath.Join(r.root, filename),
		OriginalRelative: filename,
		Versions:         make([]VersionPath, 0, len(r.specs)),
	}
	for _, s := range r.specs {
		name := base + DerivativeExt
		p.Versions = append(p.Versions, VersionPath{
			Spec:         s,
			Path:         filepath.Join(r.root, s.Folder, name),
			RelativePath: path.Join(s.Folder, name),
		})
	}
	return p
}

// Base drops the extension from filename.
func Base(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// ListOriginals returns the names of all originals directly under the root,
// sorted. Derivative folders and staging files are skipped.
func (r *Resolver) ListOriginals() ([]string, error) {
	entries, err := r.readDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("read gallery root: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// FindOriginal returns the original whose base name is base, whatever its
// extension. ok is false when none exists. The root is listed only when the
// index has no live entry for base.
func (r *Resolver) FindOriginal(base string) (filename string, ok bool, err error) {
	r.mu.RLock()
	name, hit := r.originals[base]
	r.mu.RUnlock()
	if hit {
		if present, err := fileExists(filepath.Join(r.root, name)); err == nil && present {
			return name, true, nil
		}
		r.Forget(name)
	}

	names, err := r.ListOriginals()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		if _, known := r.originals[Base(n)]; !known {
			r.originals[Base(n)] = n
		}
		if Base(n) == base {
			filename, ok = n, true
		}
	}
	if ok {
		r.originals[base] = filename
	}
	return filename, ok, nil
}

// Remember records filename as the original of its AssetBaseName.
func (r *Resolver) Remember(filename string) {
	r.mu.Lock()
	r.originals[Base(filename)] = filename
	r.mu.Unlock()
}

// Forget drops filename from the index.
func (r *Resolver) Forget(filename string) {
	r.mu.Lock()
	if r.originals[Base(filename)] == filename {
		delete(r.originals, Base(filename))
	}
	r.mu.Unlock()
}
