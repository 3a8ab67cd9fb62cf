// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

/*
catalog.go - Filesystem-Derived Backup Catalog

The catalog is a view over the backup directory, not a store. Every listing is
re-derived from os.ReadDir plus the per-file sidecar metadata, so an entry
exists exactly when its file exists.

Caching:
  - One listing is kept for CatalogCacheTTL (a few seconds by default)
  - Create, restore, delete, verify and purge call Invalidate immediately
  - Concurrent rescans are collapsed into one with singleflight, keyed by
    generation so a List after Invalidate never joins an older scan
  - A generation counter stops a scan that raced with Invalidate from
    repopulating the cache with a stale listing

Details never uses the cache: it stats the one file it was asked about.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/hardstore/internal/metrics"
)

const catalogCacheKey = "entries"

// Catalog presents the current set of backup entries.
type Catalog struct {
	dir  string
	ext  string
	meta *metaStore

	cache      *expirable.LRU[string, []Entry]
	group      singleflight.Group
	generation atomic.Uint64

	// afterScan runs between a directory scan and its result being shared.
	afterScan func()
}

// NewCatalog creates a catalog over dir. ttl <= 0 disables caching.
func NewCatalog(dir, ext string, ttl time.Duration) *Catalog {
	return newCatalog(dir, ext, ttl, newMetaStore(dir))
}

func newCatalog(dir, ext string, ttl time.Duration, meta *metaStore) *Catalog {
	c := &Catalog{dir: dir, ext: ext, meta: meta}
	if ttl > 0 {
		c.cache = expirable.NewLRU[string, []Entry](1, nil, ttl)
	}
	return c
}

// Dir returns the backup directory.
func (c *Catalog) Dir() string {
	return c.dir
}

// Path returns the absolute path of a backup file name.
func (c *Catalog) Path(fileName string) string {
	return filepath.Join(c.dir, fileName)
}

// Invalidate drops the cached listing.
func (c *Catalog) Invalidate() {
	c.generation.Add(1)
	if c.cache != nil {
		c.cache.Purge()
	}
}

// List returns all backups, newest first.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.cache != nil {
		if entries, ok := c.cache.Get(catalogCacheKey); ok {
			return cloneEntries(entries), nil
		}
	}

	gen := c.generation.Load()
	key := catalogCacheKey + "@" + strconv.FormatUint(gen, 10)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		entries, err := c.scan()
		if c.afterScan != nil {
			c.afterScan()
		}
		if err != nil {
			return nil, err
		}
		if c.cache != nil && c.generation.Load() == gen {
			c.cache.Add(catalogCacheKey, entries)
		}
		return entries, nil
	})
	if err != nil {
		return nil, newError(KindEngineFailure, "list backups", "", "failed to read backup directory", err)
	}
	return cloneEntries(v.([]Entry)), nil
}

// Info summarises List.
func (c *Catalog) Info(ctx context.Context) (CatalogInfo, error) {
	entries, err := c.List(ctx)
	if err != nil {
		return CatalogInfo{}, err
	}
	return summarize(entries), nil
}

// Details returns the entry for one file, straight from disk. Like scan it
// does not follow symlinks.
func (c *Catalog) Details(_ context.Context, fileName string) (Entry, error) {
	const op = "backup details"
	if err := validateFileName(op, fileName); err != nil {
		return Entry{}, err
	}
	if !c.hasExtension(fileName) {
		return Entry{}, notFound(op, fileName)
	}

	info, err := os.Lstat(c.Path(fileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, notFound(op, fileName)
		}
		return Entry{}, newError(KindEngineFailure, op, fileName, "failed to stat backup file", err)
	}
	if !info.Mode().IsRegular() {
		return Entry{}, notFound(op, fileName)
	}
	return c.entryFor(fileName, info), nil
}

// exists reports whether fileName is currently a backup file (cache bypassed).
func (c *Catalog) exists(fileName string) bool {
	info, err := os.Lstat(c.Path(fileName))
	return err == nil && info.Mode().IsRegular()
}

func (c *Catalog) hasExtension(name string) bool {
	return len(name) > len(c.ext) && strings.EqualFold(name[len(name)-len(c.ext):], c.ext)
}

// scan reads the directory. A missing directory is an empty catalog.
func (c *Catalog) scan() ([]Entry, error) {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			metrics.SetBackupCatalogStats(0, 0)
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || !c.hasExtension(name) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		entries = append(entries, c.entryFor(name, info))
	}

	sortNewestFirst(entries)

	s := summarize(entries)
	metrics.SetBackupCatalogStats(s.Count, s.TotalSizeBytes)
	return entries, nil
}

// entryFor merges file metadata with the sidecar. File facts win: a stale
// checksum or verification outcome is dropped once the file has changed.
func (c *Catalog) entryFor(name string, info fs.FileInfo) Entry {
	e := Entry{
		FileName:           name,
		CreatedAt:          info.ModTime().UTC(),
		SizeBytes:          info.Size(),
		VerificationStatus: StatusUnverified,
	}

	m, ok := c.meta.read(name)
	if !ok {
		return e
	}

	e.IsAutomatic = m.Automatic
	switch m.Creation {
	case creationFailed:
		e.CreationFailed = true
		e.FailureReason = m.FailureReason
	case creationInProgress:
		// Visible under its final name but never completed: the process
		// died between the rename and the final metadata write.
		e.CreationFailed = true
		e.FailureReason = "backup creation did not complete"
	}

	if m.checksumFresh(info.Size(), info.ModTime()) {
		e.Checksum = m.Checksum
		if m.Verification != "" {
			e.VerificationStatus = m.Verification
			e.VerifiedAt = m.VerifiedAt
		}
	}
	return e
}

func sortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].FileName > entries[j].FileName
	})
}

func summarize(entries []Entry) CatalogInfo {
	info := CatalogInfo{Count: len(entries)}
	for i := range entries {
		info.TotalSizeBytes += entries[i].SizeBytes
		created := entries[i].CreatedAt
		if info.Oldest == nil || created.Before(*info.Oldest) {
			t := created
			info.Oldest = &t
		}
		if info.Newest == nil || created.After(*info.Newest) {
			t := created
			info.Newest = &t
		}
	}
	return info
}

func cloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
