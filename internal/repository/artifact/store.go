// Package artifact stores built plugin jars outside the project tree.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists build artifacts under a project key.
type Store interface {
	Put(ctx context.Context, key, name string, content []byte) error
	Get(ctx context.Context, key, name string) ([]byte, error)
	GetURL(ctx context.Context, key, name string) (string, error)
	List(ctx context.Context, key string) ([]string, error)
}

var ErrNotFound = errors.New("artifact not found")

// Publish uploads the jar at localPath under key and returns its URL.
func Publish(ctx context.Context, s Store, key, localPath string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}
	name := filepath.Base(localPath)
	if err := s.Put(ctx, key, name, data); err != nil {
		return "", fmt.Errorf("store artifact: %w", err)
	}
	return s.GetURL(ctx, key, name)
}

func checkArgs(key, name string) (string, string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if key == "" {
		return "", "", fmt.Errorf("key is required")
	}
	if name == "" {
		return "", "", fmt.Errorf("name is required")
	}
	return key, name, nil
}

func objectKey(key, name string) string {
	return key + "/" + name
}
