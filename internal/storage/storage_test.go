package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_CreateOpenDelete(t *testing.T) {
	base := t.TempDir()
	s := NewLocalStorage(base)

	w, err := s.Create("photo.jpg", "investigations_inv-1")
	require.NoError(t, err)
	_, err = io.Copy(w, strings.NewReader("image bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = os.Stat(filepath.Join(base, "investigations", "inv-1", "photo.jpg"))
	require.NoError(t, err)

	f, err := s.OpenFile("photo.jpg", "investigations_inv-1")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	f.Close()
	assert.Equal(t, "image bytes", string(data))

	require.NoError(t, s.Delete("photo.jpg", "investigations_inv-1"))
	_, err = s.OpenFile("photo.jpg", "investigations_inv-1")
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorage_DeleteAll(t *testing.T) {
	base := t.TempDir()
	s := NewLocalStorage(base)

	for _, name := range []string{"a.jpg", "b.png"} {
		w, err := s.Create(name, "investigations_inv-1")
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	require.NoError(t, s.DeleteAll("investigations_inv-1"))

	_, err := os.Stat(filepath.Join(base, "investigations", "inv-1"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(base, "investigations"))
	assert.NoError(t, err)
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	s := NewLocalStorage(t.TempDir())

	tests := []struct {
		name      string
		id        string
		mediaType string
	}{
		{name: "parent id", id: "..", mediaType: "investigations_inv-1"},
		{name: "slash in id", id: "../../etc/passwd", mediaType: "investigations_inv-1"},
		{name: "parent media type", id: "a.jpg", mediaType: "investigations_.."},
		{name: "empty segment", id: "a.jpg", mediaType: "investigations__x"},
		{name: "empty id", id: "", mediaType: "investigations_inv-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(tt.id, tt.mediaType)
			assert.ErrorIs(t, err, ErrInvalidName)
			_, err = s.OpenFile(tt.id, tt.mediaType)
			assert.ErrorIs(t, err, ErrInvalidName)
			assert.ErrorIs(t, s.Delete(tt.id, tt.mediaType), ErrInvalidName)
		})
	}
}

func TestGenerateFileName(t *testing.T) {
	tests := []struct {
		name      string
		extension string
		suffix    string
	}{
		{name: "with dot", extension: ".jpg", suffix: ".jpg"},
		{name: "without dot", extension: "png", suffix: ".png"},
		{name: "empty", extension: "", suffix: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := GenerateFileName(tt.extension)
			assert.True(t, strings.HasSuffix(name, tt.suffix))
			assert.Len(t, name, 36+len(tt.suffix))
		})
	}
}

func TestImageExtension(t *testing.T) {
	tests := []struct {
		fileName string
		ext      string
		ok       bool
	}{
		{fileName: "Foto.JPG", ext: ".jpg", ok: true},
		{fileName: "bild.jpeg", ext: ".jpeg", ok: true},
		{fileName: "scan.webp", ext: ".webp", ok: true},
		{fileName: "dokument.pdf", ext: ".pdf", ok: false},
		{fileName: "ohne-endung", ext: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			ext, ok := ImageExtension(tt.fileName)
			assert.Equal(t, tt.ext, ext)
			assert.Equal(t, tt.ok, ok)
		})
	}

	assert.Equal(t, "image/png", ContentType(".PNG"))
	assert.Equal(t, "application/octet-stream", ContentType(".pdf"))
}

func TestSizeWriter(t *testing.T) {
	sw := NewSizeWriter()
	_, _ = sw.Write([]byte("abc"))
	_, _ = sw.Write([]byte("de"))
	assert.Equal(t, int64(5), sw.Size())
}
