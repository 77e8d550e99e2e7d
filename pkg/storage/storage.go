package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fixturelab/autofixture/pkg/fixture"
)

// ErrDirectoryCreation reports that the target fixture directory could not
// be created.
var ErrDirectoryCreation = errors.New("fixture directory creation failed")

// FileStorage persists exchanges as JSON files under
// <rootPath>/<dirName>/<layout dir>. Files are whole-file overwrites; there
// are no partial or appending writes.
type FileStorage struct {
	layout   Layout
	dirName  string
	rootPath string
}

// NewFileStorage builds a FileStorage using the given layout strategy.
func NewFileStorage(layout Layout, dirName, rootPath string) *FileStorage {
	return &FileStorage{layout: layout, dirName: dirName, rootPath: rootPath}
}

// FixtureDirectory returns the root of the generated fixture tree.
func (s *FileStorage) FixtureDirectory() string {
	return filepath.Join(s.rootPath, s.dirName)
}

// Reset removes the whole fixture tree. Missing trees are not an error.
func (s *FileStorage) Reset() error {
	if err := os.RemoveAll(s.FixtureDirectory()); err != nil {
		return fmt.Errorf("reset fixture directory: %w", err)
	}
	return nil
}

// Store writes the captured sides of the exchange and returns the paths
// written. The target directory is created on first use; request and
// response filenames are resolved independently against the directory
// snapshot, so they may carry different suffixes when one side of an earlier
// exchange was skipped.
func (s *FileStorage) Store(ex fixture.Exchange) ([]string, error) {
	if !ex.HasRequest && !ex.HasResponse {
		return nil, nil
	}

	loc := s.layout.Locate(ex)
	dir := filepath.Join(s.FixtureDirectory(), loc.Dir)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryCreation, err)
	}

	var written []string
	if ex.HasRequest {
		path, err := s.writeSide(dir, loc.RequestBase, ex.RequestBody)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if ex.HasResponse {
		path, err := s.writeSide(dir, loc.ResponseBase, ex.ResponseBody)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}

	return written, nil
}

func (s *FileStorage) writeSide(dir, base string, body []byte) (string, error) {
	name, err := ResolveName(dir, base)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write fixture %s: %w", path, err)
	}
	return path, nil
}
