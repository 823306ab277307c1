package memory

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Thomasbjerke/IngestionBaard/internal/domain"
	"github.com/Thomasbjerke/IngestionBaard/internal/ports"
)

// Store implements BlobStore with an in-memory map
type Store struct {
	mu    sync.RWMutex
	blobs map[string]domain.Blob
}

// NewStore creates an empty in-memory blob store
func NewStore() *Store {
	return &Store{
		blobs: make(map[string]domain.Blob),
	}
}

// Upload stores a blob, assigning its ETag and upload time
// (ports.BlobStore interface)
func (s *Store) Upload(ctx context.Context, blob *domain.Blob) error {
	if blob.Name == "" {
		return fmt.Errorf("blob name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *blob
	stored.Data = append([]byte(nil), blob.Data...)
	if stored.ETag == "" {
		stored.ETag = ETag(stored.Data)
	}
	if stored.LastModified.IsZero() {
		stored.LastModified = time.Now().UTC()
	}
	s.blobs[blob.Name] = stored

	return nil
}

// Download returns the blob with the given name (ports.BlobStore interface)
func (s *Store) Download(ctx context.Context, name string) (*domain.Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.blobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrBlobNotFound, name)
	}

	out := blob
	out.Data = append([]byte(nil), blob.Data...)
	return &out, nil
}

// List returns metadata for blobs whose name starts with prefix, ordered
// by name (ports.BlobStore interface)
func (s *Store) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]domain.BlobInfo, 0, len(s.blobs))
	for name, blob := range s.blobs {
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		infos = append(infos, domain.BlobInfo{
			Name:         name,
			ContentType:  blob.ContentType,
			Size:         int64(len(blob.Data)),
			ETag:         blob.ETag,
			LastModified: blob.LastModified,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})

	return infos, nil
}

// Delete removes the blob with the given name (ports.BlobStore interface)
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[name]; !ok {
		return fmt.Errorf("%w: %s", ports.ErrBlobNotFound, name)
	}
	delete(s.blobs, name)
	return nil
}

// ETag derives a content tag from the blob payload.
func ETag(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum[:8])
}
