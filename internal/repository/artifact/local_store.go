package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ashiqtasdid/pegasus-sub000/internal/safeio"
)

// LocalStore keeps artifacts in a directory. URLs are file:// URLs unless a
// public base URL is configured.
type LocalStore struct {
	sfs     *safeio.SafeFS
	baseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	sfs, err := safeio.NewSafeFS(dir)
	if err != nil {
		return nil, err
	}
	return &LocalStore{sfs: sfs, baseURL: baseURL}, nil
}

func (s *LocalStore) Put(_ context.Context, key, name string, content []byte) error {
	key, name, err := checkArgs(key, name)
	if err != nil {
		return err
	}
	return s.sfs.SafeWriteFileAtomic(objectKey(key, name), content, 0o644)
}

func (s *LocalStore) Get(_ context.Context, key, name string) ([]byte, error) {
	key, name, err := checkArgs(key, name)
	if err != nil {
		return nil, err
	}
	data, err := s.sfs.SafeReadFile(objectKey(key, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *LocalStore) GetURL(_ context.Context, key, name string) (string, error) {
	key, name, err := checkArgs(key, name)
	if err != nil {
		return "", err
	}
	rel := objectKey(key, name)
	if ok, err := s.sfs.Exists(rel); err != nil {
		return "", err
	} else if !ok {
		return "", ErrNotFound
	}
	if s.baseURL != "" {
		u, err := url.JoinPath(s.baseURL, rel)
		if err != nil {
			return "", fmt.Errorf("artifact url: %w", err)
		}
		return u, nil
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(s.sfs.Root(), rel))}).String(), nil
}

func (s *LocalStore) List(_ context.Context, key string) ([]string, error) {
	key, _, err := checkArgs(key, "_")
	if err != nil {
		return nil, err
	}
	var names []string
	err = fs.WalkDir(s.sfs, key, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			names = append(names, strings.TrimPrefix(p, key+"/"))
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
