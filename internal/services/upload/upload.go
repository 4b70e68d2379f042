package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/pataid/backend/internal/apperrors"
)

// MaxUploadSize caps photo and document uploads at 10 MB.
const MaxUploadSize = 10 << 20

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".pdf":  true,
}

// UploadService stores report photos and claim documents on local disk.
type UploadService struct {
	baseDir string
	baseURL string
}

// NewUploadService creates an upload service rooted at baseDir. Files are
// served back under baseURL.
func NewUploadService(baseDir, baseURL string) *UploadService {
	return &UploadService{
		baseDir: baseDir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// StoredFile describes one persisted upload.
type StoredFile struct {
	URL        string
	StorageKey string
	Size       int64
}

// Save validates and persists one uploaded file under the given category
// (e.g. "photos", "documents"). The storage key is a slugged original name
// prefixed with a UUID so collisions are impossible.
func (s *UploadService) Save(file *multipart.FileHeader, category string) (*StoredFile, error) {
	if file.Size > MaxUploadSize {
		return nil, apperrors.New(apperrors.CodeValidationFailed, "file exceeds the 10MB upload limit")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		return nil, apperrors.Newf(apperrors.CodeValidationFailed, "file type %s is not allowed", ext)
	}

	name := strings.TrimSuffix(filepath.Base(file.Filename), ext)
	key := fmt.Sprintf("%s/%s/%s-%s%s",
		category,
		time.Now().Format("2006/01"),
		uuid.New().String()[:8],
		slug.Make(name),
		ext,
	)

	dst := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, src)
	if err != nil {
		os.Remove(dst)
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}

	return &StoredFile{
		URL:        s.baseURL + "/" + key,
		StorageKey: key,
		Size:       written,
	}, nil
}

// Delete removes a stored file by key. Missing files are not an error.
func (s *UploadService) Delete(storageKey string) error {
	path := filepath.Join(s.baseDir, filepath.FromSlash(storageKey))
	if !strings.HasPrefix(path, filepath.Clean(s.baseDir)+string(os.PathSeparator)) {
		return apperrors.New(apperrors.CodeValidationFailed, "invalid storage key")
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete upload: %w", err)
	}
	return nil
}
