package storage

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Upload folders. Profile images and company logos share one folder;
// resumes get their own.
const (
	FolderImages  = "images"
	FolderResumes = "resumes"
)

// MaxUploadSize caps multipart request bodies at 50MB.
const MaxUploadSize = 50 << 20

var imageContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

var resumeContentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// IsImageType reports whether the content type is an accepted image format.
func IsImageType(contentType string) bool {
	return imageContentTypes[normalizeContentType(contentType)]
}

// IsResumeType reports whether the content type is an accepted resume format.
func IsResumeType(contentType string) bool {
	return resumeContentTypes[normalizeContentType(contentType)]
}

func normalizeContentType(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// BuildKey derives a collision-free object key under the given folder,
// keeping the original file extension.
func BuildKey(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), ext)
}

// SaveUpload streams a multipart file into object storage under a fresh
// key and returns that key.
func (s *Storage) SaveUpload(ctx context.Context, folder string, header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	key := BuildKey(folder, header.Filename)
	contentType := header.Header.Get("Content-Type")
	if err := s.Put(ctx, key, file, header.Size, contentType); err != nil {
		return "", err
	}
	return key, nil
}
