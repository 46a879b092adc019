package project

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ashiqtasdid/pegasus-sub000/internal/fixer"
	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

// FileStore keeps everything in one JSON document rewritten on each change.
type FileStore struct {
	path string

	loadOnce sync.Once
	loadErr  error
	mu       sync.RWMutex
	byKey    map[string]Snapshot
	fixes    map[string][]fixer.AuditRecord
}

type fileDoc struct {
	Projects []Snapshot                     `json:"projects"`
	Fixes    map[string][]fixer.AuditRecord `json:"fixes"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:  path,
		byKey: make(map[string]Snapshot),
		fixes: make(map[string][]fixer.AuditRecord),
	}
}

func (s *FileStore) SaveProject(_ context.Context, key string, p types.Project) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("project key is required")
	}
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey[key] = Snapshot{Key: key, Project: p, UpdatedAt: time.Now().UTC()}
	return s.saveLocked()
}

func (s *FileStore) GetProject(_ context.Context, key string) (types.Project, error) {
	if err := s.ensureLoaded(); err != nil {
		return types.Project{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.byKey[strings.TrimSpace(key)]
	if !ok {
		return types.Project{}, ErrNotFound
	}
	return snap.Project, nil
}

func (s *FileStore) RecordFix(_ context.Context, rec fixer.AuditRecord) error {
	if strings.TrimSpace(rec.ProjectKey) == "" {
		return fmt.Errorf("project key is required")
	}
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixes[rec.ProjectKey] = append(s.fixes[rec.ProjectKey], rec)
	return s.saveLocked()
}

func (s *FileStore) ListFixes(_ context.Context, key string) ([]fixer.AuditRecord, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]fixer.AuditRecord(nil), s.fixes[strings.TrimSpace(key)]...), nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) ensureLoaded() error {
	s.loadOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		data, err := os.ReadFile(s.path)
		if err != nil {
			if !os.IsNotExist(err) {
				s.loadErr = fmt.Errorf("read project store: %w", err)
			}
			return
		}
		var doc fileDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			s.loadErr = fmt.Errorf("decode project store: %w", err)
			return
		}
		for _, snap := range doc.Projects {
			s.byKey[snap.Key] = snap
		}
		for k, v := range doc.Fixes {
			s.fixes[k] = v
		}
	})
	return s.loadErr
}

func (s *FileStore) saveLocked() error {
	doc := fileDoc{Projects: make([]Snapshot, 0, len(s.byKey)), Fixes: s.fixes}
	for _, snap := range s.byKey {
		doc.Projects = append(doc.Projects, snap)
	}
	sort.Slice(doc.Projects, func(i, j int) bool { return doc.Projects[i].Key < doc.Projects[j].Key })

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
