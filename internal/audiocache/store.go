// Package audiocache is a content-addressed store of synthesized speech. Artifacts are
// keyed by a hash of (text, language, synthesis variant) and generated at most once
// per key within a process.
package audiocache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/lukasbauer/samaksh/internal/lang"
)

const extension = ".mp3"

// ErrStorage wraps filesystem faults. Generator errors are returned unwrapped so
// callers can tell a provider failure from a storage failure.
var ErrStorage = errors.New("audio cache storage failure")

// ErrNotFound is returned by Open for a well-formed name with no artifact behind it.
var ErrNotFound = errors.New("audio artifact not found")

// ErrInvalidName is returned by Open for anything that is not a cache filename.
var ErrInvalidName = errors.New("invalid audio artifact name")

var filenamePattern = regexp.MustCompile(`^[0-9a-f]{64}\.mp3$`)

// Artifact is a stored piece of speech.
type Artifact struct {
	Key      string
	Filename string
	Path     string
	Variant  string

	Cached    bool // true when served from the store without calling a provider
	Generated bool // true only for the caller whose provider call produced it
}

// URL is the relative path clients fetch the artifact from.
func (a Artifact) URL() string { return "/audio/" + a.Filename }

// Key returns the cache key for text spoken in language by the given variant.
func Key(text string, language lang.Tag, variant string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(language))
	h.Write([]byte{0})
	h.Write([]byte(variant))
	return hex.EncodeToString(h.Sum(nil))
}

// Store keeps artifacts as files in a single directory.
type Store struct {
	dir   string
	group singleflight.Group
}

// NewStore creates dir if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", ErrStorage, dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory artifacts are stored in.
func (s *Store) Dir() string { return s.dir }

func (s *Store) artifact(key, variant string) Artifact {
	name := key + extension
	return Artifact{
		Key:      key,
		Filename: name,
		Path:     filepath.Join(s.dir, name),
		Variant:  variant,
	}
}

// Lookup reports whether an artifact exists for key.
func (s *Store) Lookup(key, variant string) (Artifact, bool, error) {
	a := s.artifact(key, variant)
	_, err := os.Stat(a.Path)
	switch {
	case err == nil:
		a.Cached = true
		return a, true, nil
	case errors.Is(err, fs.ErrNotExist):
		return a, false, nil
	default:
		return a, false, fmt.Errorf("%w: stat %s: %v", ErrStorage, a.Filename, err)
	}
}

// GetOrCreate returns the artifact for key, calling generate only on a miss.
// Concurrent callers for the same key share one generate call; the losers wait for
// the winner's result and get it back with Generated unset. Writes go through a temp
// file and rename, so a reader never sees a partial artifact and a racing process
// converges on the same file.
func (s *Store) GetOrCreate(key, variant string, generate func() ([]byte, error)) (Artifact, error) {
	// The closure only runs in the winner's goroutine.
	generated := false
	v, err, _ := s.group.Do(key, func() (any, error) {
		a, ok, err := s.Lookup(key, variant)
		if err != nil || ok {
			return a, err
		}

		audio, err := generate()
		if err != nil {
			return a, err
		}
		if err := s.write(a.Path, audio); err != nil {
			return a, err
		}
		generated = true
		return a, nil
	})
	a, _ := v.(Artifact)
	a.Generated = generated
	return a, err
}

func (s *Store) write(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrStorage, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write: %v", ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close: %v", ErrStorage, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename: %v", ErrStorage, err)
	}
	return nil
}

// Open opens a stored artifact by filename for serving.
func (s *Store) Open(filename string) (*os.File, error) {
	if !filenamePattern.MatchString(filename) {
		return nil, ErrInvalidName
	}
	f, err := os.Open(filepath.Join(s.dir, filename))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorage, filename, err)
	}
	return f, nil
}

// SweepResult reports what a Sweep removed.
type SweepResult struct {
	Removed    int
	FreedBytes int64
	TotalBytes int64 // size of the store after the sweep
}

// Sweep removes the least recently written artifacts until the store holds at most
// maxBytes. A maxBytes of zero or less means unbounded and removes nothing.
func (s *Store) Sweep(maxBytes int64) (SweepResult, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return SweepResult{}, fmt.Errorf("%w: read dir: %v", ErrStorage, err)
	}

	type file struct {
		name string
		size int64
		mod  int64
	}
	var files []file
	var total int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), extension) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed concurrently
		}
		files = append(files, file{name: e.Name(), size: info.Size(), mod: info.ModTime().UnixNano()})
		total += info.Size()
	}

	res := SweepResult{TotalBytes: total}
	if maxBytes <= 0 || total <= maxBytes {
		return res, nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mod < files[j].mod })
	for _, f := range files {
		if res.TotalBytes <= maxBytes {
			break
		}
		if err := os.Remove(filepath.Join(s.dir, f.name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return res, fmt.Errorf("%w: remove %s: %v", ErrStorage, f.name, err)
		}
		res.Removed++
		res.FreedBytes += f.size
		res.TotalBytes -= f.size
	}
	return res, nil
}
