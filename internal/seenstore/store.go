// Package seenstore persists reported fingerprints as one JSON file per
// reporting-zone calendar day. Old partitions are never touched; pruning
// them is an external concern.
package seenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/alekseyt9/newswatch/internal/ports"
)

// FileStore implements ports.SeenStore on top of per-day JSON files
// (data/seen-2006-01-02.json), each holding a sorted array of fingerprints.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

var _ ports.SeenStore = (*FileStore)(nil)

// New builds a store rooted at dir; the directory is created on first save.
func New(dir string, logger *slog.Logger) *FileStore {
	return &FileStore{dir: dir, logger: logger}
}

// Load returns today's own partition and the two-day dedup view for the
// given run time. The union covers runs shortly after midnight, which
// would otherwise see an empty set (today's file does not exist yet) and
// re-report yesterday's items; today's set is kept separate so a later
// Save never copies yesterday's entries into today's file. Missing or
// corrupt partitions count as empty, never as failure.
func (s *FileStore) Load(now time.Time) (today, union map[string]struct{}, err error) {
	today = make(map[string]struct{})
	union = make(map[string]struct{})
	for i, day := range []time.Time{now, now.AddDate(0, 0, -1)} {
		fps, readErr := s.readPartition(s.path(day))
		if readErr != nil {
			s.warn("skipping unreadable seen partition", "path", s.path(day), "error", readErr)
			continue
		}
		for _, fp := range fps {
			union[fp] = struct{}{}
			if i == 0 {
				today[fp] = struct{}{}
			}
		}
	}
	return today, union, nil
}

// Save overwrites today's partition with the given set, sorted so the file
// stays diffable. Yesterday's partition is never written.
func (s *FileStore) Save(now time.Time, fingerprints map[string]struct{}) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	sorted := make([]string, 0, len(fingerprints))
	for fp := range fingerprints {
		sorted = append(sorted, fp)
	}
	sort.Strings(sorted)

	raw, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal seen set: %w", err)
	}

	path := s.path(now)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *FileStore) path(day time.Time) string {
	return filepath.Join(s.dir, "seen-"+day.Format("2006-01-02")+".json")
}

func (s *FileStore) readPartition(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var fps []string
	if err := json.Unmarshal(raw, &fps); err != nil {
		return nil, fmt.Errorf("corrupt partition: %w", err)
	}
	return fps, nil
}

func (s *FileStore) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
