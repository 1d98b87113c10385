package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BlobStore persists generated image bytes and returns a servable URL
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// StorageService stores assets on the local filesystem and serves them under URLPrefix
type StorageService struct {
	basePath  string
	urlPrefix string
}

func NewStorageService(basePath, urlPrefix string) (*StorageService, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create assets directory: %w", err)
	}
	return &StorageService{
		basePath:  basePath,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
	}, nil
}

// BasePath returns the directory assets are written to
func (s *StorageService) BasePath() string { return s.basePath }

// BuildObjectKey creates a namespaced storage key with a fresh unique name
func BuildObjectKey(kind, contentType string) string {
	return fmt.Sprintf("%s/%s%s", kind, uuid.New().String(), extensionFor(contentType))
}

func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}

func (s *StorageService) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := s.SaveStream(key, bytes.NewReader(data)); err != nil {
		return "", err
	}
	return s.urlPrefix + "/" + path.Clean(key), nil
}

// Delete removes a stored asset. A missing file is not an error.
func (s *StorageService) Delete(ctx context.Context, key string) error {
	absPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SaveStream writes r to key through a .part file so readers never see a partial asset
func (s *StorageService) SaveStream(key string, r io.Reader) error {
	absPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return err
	}

	tmp := absPath + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := f.Sync(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (s *StorageService) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid storage key: %s", key)
	}
	return filepath.Join(s.basePath, clean), nil
}
