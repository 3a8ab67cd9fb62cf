// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/hardstore/internal/logging"
)

const (
	// metaDirName holds one sidecar JSON document per backup file.
	metaDirName = ".meta"

	metaVersion = 1
)

// creationState records how the executor left a backup file.
type creationState string

const (
	creationInProgress creationState = "in_progress"
	creationCompleted  creationState = "completed"
	creationFailed     creationState = "failed"
)

// metadata is the sidecar document for one backup file. It only annotates a
// file that exists; it never creates a catalog entry by itself.
type metadata struct {
	Version       int           `json:"version"`
	FileName      string        `json:"fileName"`
	OperationID   string        `json:"operationId,omitempty"`
	Automatic     bool          `json:"automatic"`
	Creation      creationState `json:"creation"`
	FailureReason string        `json:"failureReason,omitempty"`

	// Checksum is only meaningful while the file still has ChecksumSize
	// bytes and ChecksumModTime.
	Checksum        string    `json:"checksum,omitempty"`
	ChecksumSize    int64     `json:"checksumSize,omitempty"`
	ChecksumModTime time.Time `json:"checksumModTime,omitempty"`

	Verification        VerificationStatus `json:"verification,omitempty"`
	VerificationMessage string             `json:"verificationMessage,omitempty"`
	VerifiedAt          *time.Time         `json:"verifiedAt,omitempty"`
}

// checksumFresh reports whether the cached checksum still describes a file
// with the given size and modification time.
func (m *metadata) checksumFresh(size int64, modTime time.Time) bool {
	return m.Checksum != "" && m.ChecksumSize == size && m.ChecksumModTime.Equal(modTime)
}

// metaStore reads and writes sidecar documents under <dir>/.meta.
type metaStore struct {
	dir string
	mu  sync.Mutex
}

func newMetaStore(backupDir string) *metaStore {
	return &metaStore{dir: filepath.Join(backupDir, metaDirName)}
}

func (s *metaStore) path(fileName string) string {
	return filepath.Join(s.dir, fileName+".json")
}

// read returns the sidecar for fileName. A missing or unreadable sidecar is
// reported as ok=false; the file is then treated as a manual, unverified backup.
func (s *metaStore) read(fileName string) (metadata, bool) {
	//nolint:gosec // G304: fileName is validated by the caller
	data, err := os.ReadFile(s.path(fileName))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.Warn().Err(err).Str("file", fileName).Msg("Failed to read backup metadata")
		}
		return metadata{}, false
	}

	var m metadata
	if err := json.Unmarshal(data, &m); err != nil {
		logging.Warn().Err(err).Str("file", fileName).Msg("Ignoring corrupt backup metadata")
		return metadata{}, false
	}
	return m, true
}

// write replaces the sidecar atomically (temp file + rename).
func (s *metaStore) write(m metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(m)
}

func (s *metaStore) writeLocked(m metadata) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create metadata directory: %w", err)
	}

	m.Version = metaVersion
	data, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+m.FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create metadata temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck // Best effort cleanup
		os.Remove(tmpName) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("close metadata: %w", err)
	}
	if err := os.Rename(tmpName, s.path(m.FileName)); err != nil {
		os.Remove(tmpName) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("rename metadata: %w", err)
	}
	return nil
}

// update applies fn to the current sidecar (or a fresh one) and writes it back.
func (s *metaStore) update(fileName string, fn func(*metadata)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.read(fileName)
	if !ok {
		m = metadata{FileName: fileName, Creation: creationCompleted}
	}
	fn(&m)
	m.FileName = fileName
	return s.writeLocked(m)
}

// remove deletes the sidecar for fileName. A missing sidecar is not an error.
func (s *metaStore) remove(fileName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(fileName)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// pruneOrphans removes sidecars whose backup file no longer exists, except
// for files still being written.
func (s *metaStore) pruneOrphans(exists func(fileName string) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}

	pruned := 0
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		fileName := strings.TrimSuffix(name, ".json")
		if exists(fileName) {
			continue
		}
		if m, ok := s.read(fileName); ok && m.Creation == creationInProgress {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err == nil {
			pruned++
		}
	}
	return pruned
}
