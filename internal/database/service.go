package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/ZanzyTHEbar/rfm-dashboard/internal/cache"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/dataset"
)

// UploadService validates, stores and serves uploaded datasets. It doubles
// as the dataset.Source that returns the latest upload of each kind
type UploadService struct {
	repo  *Repository
	cache *cache.Cache
}

// NewUploadService creates an upload service. The cache may be nil
func NewUploadService(repo *Repository, c *cache.Cache) *UploadService {
	return &UploadService{repo: repo, cache: c}
}

// Store parses content as the given kind and saves it when it is valid
func (s *UploadService) Store(ctx context.Context, kind dataset.Kind, name string, content []byte) (*Upload, error) {
	rows, err := validate(kind, content)
	if err != nil {
		return nil, err
	}

	upload := NewUpload(kind, name, content, rows)
	if err := s.repo.SaveUpload(ctx, upload); err != nil {
		return nil, err
	}
	s.invalidate(kind)

	slog.Info("Dataset uploaded",
		"id", upload.ID,
		"kind", kind,
		"name", name,
		"rows", rows,
		"size", upload.Size)

	return upload, nil
}

func validate(kind dataset.Kind, content []byte) (int, error) {
	switch kind {
	case dataset.KindOrders:
		orders, err := dataset.ParseOrders(bytes.NewReader(content))
		if err != nil {
			return 0, err
		}
		return orders.Len(), nil
	case dataset.KindRFM:
		customers, err := dataset.ParseCustomers(bytes.NewReader(content))
		if err != nil {
			return 0, err
		}
		return customers.Len(), nil
	}
	return 0, fmt.Errorf("unknown dataset kind %q", kind)
}

// List returns the stored uploads, newest first
func (s *UploadService) List(ctx context.Context) ([]*Upload, error) {
	return s.repo.ListUploads(ctx)
}

// Delete removes an upload
func (s *UploadService) Delete(ctx context.Context, id string) error {
	kind, err := s.repo.DeleteUpload(ctx, id)
	if err != nil {
		return err
	}
	s.invalidate(kind)
	return nil
}

func (s *UploadService) Name() string { return dataset.SourceUpload }

// Open returns the latest upload of kind
func (s *UploadService) Open(ctx context.Context, kind dataset.Kind) (io.ReadCloser, dataset.Meta, error) {
	upload, err := s.latest(ctx, kind)
	if err != nil {
		return nil, dataset.Meta{}, err
	}

	return io.NopCloser(bytes.NewReader(upload.Content)), dataset.Meta{
		Kind:     kind,
		Source:   s.Name(),
		Name:     upload.Name,
		ID:       upload.ID,
		LoadedAt: upload.CreatedAt,
	}, nil
}

func (s *UploadService) latest(ctx context.Context, kind dataset.Kind) (*Upload, error) {
	if s.cache != nil {
		if content, ok := s.cache.Get(cache.Key("upload", string(kind))); ok {
			if meta, ok := s.cache.Get(cache.Key("upload-meta", string(kind))); ok {
				return decodeMeta(meta, content)
			}
		}
	}

	upload, err := s.repo.LatestUpload(ctx, kind)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(cache.Key("upload", string(kind)), upload.Content)
		s.cache.Set(cache.Key("upload-meta", string(kind)), encodeMeta(upload))
	}
	return upload, nil
}

func (s *UploadService) invalidate(kind dataset.Kind) {
	if s.cache == nil {
		return
	}
	s.cache.Delete(cache.Key("upload", string(kind)))
	s.cache.Delete(cache.Key("upload-meta", string(kind)))
}

// the cache holds raw bytes; metadata travels as JSON next to the content
func encodeMeta(u *Upload) []byte {
	data, err := json.Marshal(u)
	if err != nil {
		return nil
	}
	return data
}

func decodeMeta(meta, content []byte) (*Upload, error) {
	var u Upload
	if err := json.Unmarshal(meta, &u); err != nil {
		return nil, fmt.Errorf("decode cached upload: %w", err)
	}
	u.Content = content
	return &u, nil
}
