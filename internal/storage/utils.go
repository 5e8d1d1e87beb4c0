package storage

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// GenerateFileName generates a UUID-based file name with the provided extension
func GenerateFileName(extension string) string {
	newUUID := uuid.New().String()
	if extension != "" && extension[0] != '.' {
		return newUUID + "." + extension
	}
	return newUUID + extension
}

// ImageExtension returns the lower-cased extension of an accepted image file name and whether it is accepted
func ImageExtension(fileName string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(fileName))
	_, ok := imageExtensions[ext]
	return ext, ok
}

// ContentType returns the content type of an accepted image extension
func ContentType(extension string) string {
	if ct, ok := imageExtensions[strings.ToLower(extension)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// sizeWriter counts the bytes written through it
type sizeWriter struct {
	size int64
}

// Write implements io.Writer
func (sw *sizeWriter) Write(p []byte) (int, error) {
	n := len(p)
	sw.size += int64(n)
	return n, nil
}

// Size returns the total number of bytes written
func (sw *sizeWriter) Size() int64 {
	return sw.size
}

// NewSizeWriter creates a new sizeWriter
func NewSizeWriter() *sizeWriter {
	return &sizeWriter{}
}
