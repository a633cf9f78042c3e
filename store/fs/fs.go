// Package fs is a durable store.Store that keeps one record file per
// fingerprint under a root directory:
//
//	<root>/<fingerprint>.rec        values, framed (see internal/wire)
//	<root>/.locks/<fingerprint>.lock  advisory lock for appends
//
// Copying a subset of .rec files yields a valid, smaller cache, which is how
// slices are distributed. Records are rewritten whole to a temp file in the
// same directory and renamed into place, so readers never observe a partially
// written record and never need to lock.
//
// Get and Len read and decode the whole record on every call, so a stream
// walking a long sequence costs quadratic I/O. Put a store/prefix memo in
// front when sequences are read index by index.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/unkn0wn-root/samplecache/internal/util"
	"github.com/unkn0wn-root/samplecache/internal/wire"
	"github.com/unkn0wn-root/samplecache/store"
)

const (
	recordExt        = ".rec"
	lockDir          = ".locks"
	defaultLockRetry = 10 * time.Millisecond
)

var ErrInvalidFingerprint = errors.New("fs store: invalid fingerprint")

type Options struct {
	Dir       string        // required
	FileMode  os.FileMode   // 0 => 0644
	DirMode   os.FileMode   // 0 => 0755
	LockRetry time.Duration // poll interval while waiting for the file lock; 0 => 10ms
	NoSync    bool          // skip fsync before rename (tests, tmpfs)
}

type Store struct {
	dir       string
	fileMode  os.FileMode
	lockRetry time.Duration
	noSync    bool
	locks     util.KeyedMutex
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Loader = (*Store)(nil)
	_ store.Lister = (*Store)(nil)
)

func New(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, errors.New("fs store: dir is required")
	}
	dirMode := opts.DirMode
	if dirMode == 0 {
		dirMode = 0o755
	}
	if err := os.MkdirAll(filepath.Join(opts.Dir, lockDir), dirMode); err != nil {
		return nil, fmt.Errorf("fs store: create dir: %w", err)
	}
	s := &Store{
		dir:       opts.Dir,
		fileMode:  opts.FileMode,
		lockRetry: opts.LockRetry,
		noSync:    opts.NoSync,
	}
	if s.fileMode == 0 {
		s.fileMode = 0o644
	}
	if s.lockRetry <= 0 {
		s.lockRetry = defaultLockRetry
	}
	return s, nil
}

func (s *Store) Dir() string { return s.dir }

func checkFingerprint(fp string) error {
	if fp == "" || strings.ContainsAny(fp, `/\`) || strings.HasPrefix(fp, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidFingerprint, fp)
	}
	return nil
}

func (s *Store) recordPath(fp string) string { return filepath.Join(s.dir, fp+recordExt) }
func (s *Store) lockPath(fp string) string   { return filepath.Join(s.dir, lockDir, fp+".lock") }

func (s *Store) read(fp string) ([]string, error) {
	if err := checkFingerprint(fp); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.recordPath(fp))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fs store: read %s: %w", fp, err)
	}
	vals, err := wire.DecodeRecord(b)
	if err != nil {
		return nil, &store.CorruptError{Fingerprint: fp, Err: err}
	}
	return vals, nil
}

func (s *Store) Len(_ context.Context, fp string) (int, error) {
	vals, err := s.read(fp)
	return len(vals), err
}

func (s *Store) Get(_ context.Context, fp string, index int) (string, bool, error) {
	vals, err := s.read(fp)
	if err != nil || index < 0 || index >= len(vals) {
		return "", false, err
	}
	return vals[index], true, nil
}

func (s *Store) Load(_ context.Context, fp string) ([]string, error) {
	return s.read(fp)
}

func (s *Store) Append(ctx context.Context, fp string, values []string) (int, error) {
	n, _, err := s.appendIf(ctx, fp, -1, values)
	return n, err
}

func (s *Store) AppendAt(ctx context.Context, fp string, at int, values []string) (bool, error) {
	_, ok, err := s.appendIf(ctx, fp, at, values)
	return ok, err
}

// appendIf holds the in-process and the advisory file lock for the whole
// read-length, write, rename sequence. at < 0 means append unconditionally.
func (s *Store) appendIf(ctx context.Context, fp string, at int, values []string) (int, bool, error) {
	if err := checkFingerprint(fp); err != nil {
		return 0, false, err
	}
	unlock := s.locks.Lock(fp)
	defer unlock()

	fl := flock.New(s.lockPath(fp))
	locked, err := fl.TryLockContext(ctx, s.lockRetry)
	if err != nil {
		return 0, false, fmt.Errorf("fs store: lock %s: %w", fp, err)
	}
	if !locked {
		return 0, false, fmt.Errorf("fs store: lock %s: not acquired", fp)
	}
	defer func() { _ = fl.Unlock() }()

	cur, err := s.read(fp)
	if err != nil {
		return 0, false, err
	}
	if at >= 0 && len(cur) != at {
		return len(cur), false, nil
	}
	if len(values) == 0 {
		return len(cur), true, nil
	}
	next := append(cur, values...)
	if err := s.write(fp, wire.EncodeRecord(next)); err != nil {
		return 0, false, err
	}
	return len(next), true, nil
}

func (s *Store) write(fp string, b []byte) (err error) {
	tmp, err := os.CreateTemp(s.dir, "."+fp+".tmp-*")
	if err != nil {
		return fmt.Errorf("fs store: temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("fs store: write %s: %w", fp, err)
	}
	if !s.noSync {
		if err = tmp.Sync(); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("fs store: sync %s: %w", fp, err)
		}
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("fs store: close %s: %w", fp, err)
	}
	if err = os.Chmod(tmp.Name(), s.fileMode); err != nil {
		return fmt.Errorf("fs store: chmod %s: %w", fp, err)
	}
	if err = os.Rename(tmp.Name(), s.recordPath(fp)); err != nil {
		return fmt.Errorf("fs store: rename %s: %w", fp, err)
	}
	return nil
}

// Keys lists fingerprints that have a record file.
func (s *Store) Keys(_ context.Context) ([]string, error) {
	ents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("fs store: list: %w", err)
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordExt) {
			continue
		}
		out = append(out, strings.TrimSuffix(name, recordExt))
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Close(context.Context) error { return nil }
