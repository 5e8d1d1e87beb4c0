// Package storage keeps uploaded investigation images on the local filesystem
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned for file names or media types that would escape the base directory
var ErrInvalidName = errors.New("invalid file name")

// localStorage stores files below basePath
type localStorage struct {
	basePath string
}

// NewLocalStorage creates a new localStorage instance
func NewLocalStorage(basePath string) *localStorage {
	return &localStorage{
		basePath: basePath,
	}
}

// generatePath builds the file path of id. Underscores in mediaType become directories,
// so "investigations_<id>" is stored under investigations/<id>/.
func (s *localStorage) generatePath(id, mediaType string) (string, error) {
	if !validSegment(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, id)
	}
	parts := strings.Split(mediaType, "_")
	for _, part := range parts {
		if !validSegment(part) {
			return "", fmt.Errorf("%w: media type %q", ErrInvalidName, mediaType)
		}
	}

	return filepath.Join(s.basePath, filepath.Join(parts...), id), nil
}

func validSegment(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// Create creates a new file and returns a WriteCloser
func (s *localStorage) Create(id, mediaType string) (io.WriteCloser, error) {
	path, err := s.generatePath(id, mediaType)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return os.Create(path)
}

// OpenFile opens a file for use with http.ServeContent
func (s *localStorage) OpenFile(id, mediaType string) (*os.File, error) {
	path, err := s.generatePath(id, mediaType)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes a file
func (s *localStorage) Delete(id, mediaType string) error {
	path, err := s.generatePath(id, mediaType)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// DeleteAll removes every file stored under mediaType
func (s *localStorage) DeleteAll(mediaType string) error {
	parts := strings.Split(mediaType, "_")
	for _, part := range parts {
		if !validSegment(part) {
			return fmt.Errorf("%w: media type %q", ErrInvalidName, mediaType)
		}
	}
	return os.RemoveAll(filepath.Join(s.basePath, filepath.Join(parts...)))
}
