package types

import (
	"errors"
	"path"
	"strings"
)

var (
	ErrEmptyPath     = errors.New("path is empty")
	ErrAbsolutePath  = errors.New("path must be relative")
	ErrBackslashPath = errors.New("path must not contain backslashes")
	ErrTraversalPath = errors.New("path must not contain '..' segments")
	ErrNullBytePath  = errors.New("path must not contain NUL bytes")
	ErrDirectoryPath = errors.New("path must name a file")
	ErrUncleanPath   = errors.New("path must be in canonical form")
)

// CheckRelPath reports why p is not a safe project-relative file path.
// A nil result means the path is relative, uses forward slashes, never
// leaves the project root and is already canonical ("./a", "a//b" and
// surrounding spaces are rejected so two accepted paths never name one file).
func CheckRelPath(p string) error {
	if strings.TrimSpace(p) == "" {
		return ErrEmptyPath
	}
	if strings.ContainsRune(p, 0) {
		return ErrNullBytePath
	}
	if strings.Contains(p, `\`) {
		return ErrBackslashPath
	}
	if strings.HasPrefix(p, "/") || hasDriveLetter(p) {
		return ErrAbsolutePath
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return ErrTraversalPath
		}
	}
	if strings.HasSuffix(p, "/") || p == "." {
		return ErrDirectoryPath
	}
	if p != strings.TrimSpace(p) || path.Clean(p) != p {
		return ErrUncleanPath
	}
	return nil
}

// IsSafeRelPath is the boolean form of CheckRelPath.
func IsSafeRelPath(p string) bool { return CheckRelPath(p) == nil }

func hasDriveLetter(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
