package upload

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pataid/backend/internal/apperrors"
)

func multipartFile(t *testing.T, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))

	files := req.MultipartForm.File[field]
	require.Len(t, files, 1)
	return files[0]
}

func TestSaveStoresFile(t *testing.T) {
	dir := t.TempDir()
	svc := NewUploadService(dir, "/uploads/")

	file := multipartFile(t, "photo", "Student ID Front.jpg", []byte("fake image bytes"))

	stored, err := svc.Save(file, "photos")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stored.StorageKey, "photos/"))
	assert.True(t, strings.HasSuffix(stored.StorageKey, ".jpg"))
	assert.Contains(t, stored.StorageKey, "student-id-front")
	assert.Equal(t, "/uploads/"+stored.StorageKey, stored.URL)
	assert.Equal(t, int64(len("fake image bytes")), stored.Size)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(stored.StorageKey)))
	require.NoError(t, err)
	assert.Equal(t, []byte("fake image bytes"), data)
}

func TestSaveRejectsDisallowedExtension(t *testing.T) {
	svc := NewUploadService(t.TempDir(), "/uploads")

	file := multipartFile(t, "photo", "malware.exe", []byte("nope"))

	_, err := svc.Save(file, "photos")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestSaveKeysAreUnique(t *testing.T) {
	svc := NewUploadService(t.TempDir(), "/uploads")

	first := multipartFile(t, "doc", "proof.pdf", []byte("one"))
	second := multipartFile(t, "doc", "proof.pdf", []byte("two"))

	a, err := svc.Save(first, "documents")
	require.NoError(t, err)
	b, err := svc.Save(second, "documents")
	require.NoError(t, err)

	assert.NotEqual(t, a.StorageKey, b.StorageKey)
}

func TestDeleteIgnoresMissingFile(t *testing.T) {
	svc := NewUploadService(t.TempDir(), "/uploads")
	assert.NoError(t, svc.Delete("photos/2026/01/nothing-here.jpg"))
}

func TestDeleteRejectsTraversal(t *testing.T) {
	svc := NewUploadService(t.TempDir(), "/uploads")
	err := svc.Delete("../../etc/passwd")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}
