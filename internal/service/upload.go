package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/classroom/internal/model"
	"github.com/capitalize-ai/classroom/pkg/logger"
)

const (
	// DefaultMaxUploadBytes caps a single uploaded file.
	DefaultMaxUploadBytes = 10 << 20
	// MaxFilesPerUpload caps a multiple-file upload.
	MaxFilesPerUpload = 5
	// UploadURLPrefix is where stored files are served.
	UploadURLPrefix = "/api/uploads/"
)

// AllowedUploadTypes are the accepted MIME types.
var AllowedUploadTypes = map[string]bool{
	"image/jpeg":         true,
	"image/png":          true,
	"image/gif":          true,
	"image/webp":         true,
	"application/pdf":    true,
	"text/plain":         true,
	"text/markdown":      true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// UploadService stores user files on local disk.
type UploadService struct {
	dir      string
	maxBytes int64
	activity *ActivityRecorder
	logger   *logger.Logger
}

// NewUploadService creates the upload directory if needed.
func NewUploadService(dir string, maxBytes int64, activity *ActivityRecorder, log *logger.Logger) (*UploadService, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &UploadService{dir: dir, maxBytes: maxBytes, activity: activity, logger: log}, nil
}

// MaxBytes is the per-file size limit.
func (s *UploadService) MaxBytes() int64 {
	return s.maxBytes
}

// SaveOne stores a single file.
func (s *UploadService) SaveOne(ctx context.Context, userID string, fh *multipart.FileHeader) (*model.FileInfo, error) {
	if fh == nil {
		return nil, invalid("no file selected")
	}
	info, err := s.save(fh)
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, userID, model.ActionFileUpload, map[string]any{
		"filename": info.OriginalName,
		"size":     info.Size,
	})
	return info, nil
}

// SaveMany stores up to MaxFilesPerUpload files. Every file is checked
// before any is written.
func (s *UploadService) SaveMany(ctx context.Context, userID string, files []*multipart.FileHeader) ([]model.FileInfo, error) {
	if len(files) == 0 {
		return nil, invalid("no file selected")
	}
	if len(files) > MaxFilesPerUpload {
		return nil, invalid("at most %d files per upload", MaxFilesPerUpload)
	}
	for _, fh := range files {
		if _, err := s.check(fh); err != nil {
			return nil, err
		}
	}

	out := make([]model.FileInfo, 0, len(files))
	var total int64
	for _, fh := range files {
		info, err := s.save(fh)
		if err != nil {
			for _, done := range out {
				_ = os.Remove(filepath.Join(s.dir, done.Filename))
			}
			return nil, err
		}
		total += info.Size
		out = append(out, *info)
	}

	s.activity.Record(ctx, userID, model.ActionFileUploadMulti, map[string]any{
		"count":     len(out),
		"totalSize": total,
	})
	return out, nil
}

// Path resolves a stored filename to its path on disk.
func (s *UploadService) Path(filename string) (string, error) {
	if !validFilename(filename) {
		return "", notFound("file")
	}
	p := filepath.Join(s.dir, filename)
	st, err := os.Stat(p)
	if err != nil || st.IsDir() {
		return "", notFound("file")
	}
	return p, nil
}

// Delete removes a stored file. A missing file is not an error.
func (s *UploadService) Delete(ctx context.Context, userID, filename string) error {
	if !validFilename(filename) {
		return invalid("invalid filename")
	}
	err := os.Remove(filepath.Join(s.dir, filename))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	s.activity.Record(ctx, userID, model.ActionFileDelete, map[string]any{"filename": filename})
	return nil
}

func (s *UploadService) check(fh *multipart.FileHeader) (string, error) {
	mediaType, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	if err != nil || !AllowedUploadTypes[mediaType] {
		return "", invalid("unsupported file type")
	}
	if fh.Size > s.maxBytes {
		return "", invalid("file %s exceeds %d bytes", fh.Filename, s.maxBytes)
	}
	return mediaType, nil
}

func (s *UploadService) save(fh *multipart.FileHeader) (*model.FileInfo, error) {
	mediaType, err := s.check(fh)
	if err != nil {
		return nil, err
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	id := uuid.Must(uuid.NewV7()).String()
	name := id + strings.ToLower(filepath.Ext(filepath.Base(fh.Filename)))
	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	n, err := io.Copy(dst, io.LimitReader(src, s.maxBytes+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > s.maxBytes {
		err = invalid("file %s exceeds %d bytes", fh.Filename, s.maxBytes)
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, name))
		var verr *ValidationError
		if errors.As(err, &verr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("file stored", zap.String("filename", name), zap.Int64("size", n))
	return &model.FileInfo{
		ID:           id,
		Filename:     name,
		OriginalName: fh.Filename,
		MimeType:     mediaType,
		Size:         n,
		URL:          UploadURLPrefix + name,
	}, nil
}

// validFilename accepts only a bare name inside the upload directory.
func validFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return filepath.Base(name) == name
}
