package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Thomasbjerke/IngestionBaard/internal/domain"
	"github.com/Thomasbjerke/IngestionBaard/internal/ports"
	blobmemory "github.com/Thomasbjerke/IngestionBaard/pkg/adapters/blob/memory"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store implements BlobStore on Redis: payload at baard:blob:data:<name>,
// metadata hash at baard:blob:meta:<name>, names in a set for listing.
type Store struct {
	client    *redis.Client
	logger    *zap.Logger
	container string
}

// NewStore creates a Redis-backed blob store for the named container
func NewStore(client *redis.Client, container string, logger *zap.Logger) *Store {
	return &Store{
		client:    client,
		logger:    logger,
		container: container,
	}
}

// Upload stores the blob payload and metadata (ports.BlobStore interface)
func (s *Store) Upload(ctx context.Context, blob *domain.Blob) error {
	if blob.Name == "" {
		return fmt.Errorf("blob name is required")
	}

	etag := blob.ETag
	if etag == "" {
		etag = blobmemory.ETag(blob.Data)
	}
	lastModified := blob.LastModified
	if lastModified.IsZero() {
		lastModified = time.Now().UTC()
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.dataKey(blob.Name), blob.Data, 0)
	pipe.HSet(ctx, s.metaKey(blob.Name), map[string]interface{}{
		"content_type":  blob.ContentType,
		"etag":          etag,
		"size":          len(blob.Data),
		"last_modified": lastModified.UnixMilli(),
	})
	pipe.SAdd(ctx, s.nameSetKey(), blob.Name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to upload blob: %w", err)
	}

	s.logger.Debug("blob uploaded",
		zap.String("name", blob.Name),
		zap.Int("size", len(blob.Data)))
	return nil
}

// Download returns the blob with the given name (ports.BlobStore interface)
func (s *Store) Download(ctx context.Context, name string) (*domain.Blob, error) {
	data, err := s.client.Get(ctx, s.dataKey(name)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", ports.ErrBlobNotFound, name)
		}
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}

	meta, err := s.client.HGetAll(ctx, s.metaKey(name)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get blob metadata: %w", err)
	}

	return &domain.Blob{
		Name:         name,
		ContentType:  meta["content_type"],
		Data:         data,
		ETag:         meta["etag"],
		LastModified: parseMillis(meta["last_modified"]),
	}, nil
}

// List returns metadata for blobs whose name starts with prefix, ordered
// by name (ports.BlobStore interface)
func (s *Store) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	names, err := s.client.SMembers(ctx, s.nameSetKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}

	infos := make([]domain.BlobInfo, 0, len(names))
	for _, name := range names {
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}

		meta, err := s.client.HGetAll(ctx, s.metaKey(name)).Result()
		if err != nil {
			s.logger.Warn("failed to read blob metadata",
				zap.String("name", name),
				zap.Error(err))
			continue
		}
		if len(meta) == 0 {
			// Stale set member, drop it
			s.client.SRem(ctx, s.nameSetKey(), name)
			continue
		}

		size, _ := strconv.ParseInt(meta["size"], 10, 64)
		infos = append(infos, domain.BlobInfo{
			Name:         name,
			ContentType:  meta["content_type"],
			Size:         size,
			ETag:         meta["etag"],
			LastModified: parseMillis(meta["last_modified"]),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})

	return infos, nil
}

// Delete removes the blob payload and metadata (ports.BlobStore interface)
func (s *Store) Delete(ctx context.Context, name string) error {
	removed, err := s.client.SRem(ctx, s.nameSetKey(), name).Result()
	if err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	if removed == 0 {
		return fmt.Errorf("%w: %s", ports.ErrBlobNotFound, name)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.dataKey(name))
	pipe.Del(ctx, s.metaKey(name))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}

	return nil
}

// dataKey returns the Redis key of the blob payload
func (s *Store) dataKey(name string) string {
	return fmt.Sprintf("baard:blob:%s:data:%s", s.container, name)
}

// metaKey returns the Redis key of the blob metadata hash
func (s *Store) metaKey(name string) string {
	return fmt.Sprintf("baard:blob:%s:meta:%s", s.container, name)
}

// nameSetKey returns the Redis key of the blob name set
func (s *Store) nameSetKey() string {
	return fmt.Sprintf("baard:blob:%s:names", s.container)
}

// parseMillis converts a stored millisecond timestamp back to time.Time
func parseMillis(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
