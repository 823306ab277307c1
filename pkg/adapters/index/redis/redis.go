package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Thomasbjerke/IngestionBaard/internal/domain"
	"github.com/Thomasbjerke/IngestionBaard/internal/ports"
	memoryindex "github.com/Thomasbjerke/IngestionBaard/pkg/adapters/index/memory"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Index implements SearchIndex with sections persisted in Redis and an
// in-memory BM25 index rebuilt from it. Redis is the store of record; the
// memory index only serves queries.
type Index struct {
	client *redis.Client
	logger *zap.Logger
	name   string
	mem    *memoryindex.Index
}

// NewIndex creates a Redis-backed search index for the named index
func NewIndex(client *redis.Client, name string, logger *zap.Logger) *Index {
	return &Index{
		client: client,
		logger: logger,
		name:   name,
		mem:    memoryindex.NewIndex(),
	}
}

// Load warms the in-memory index from the sections persisted in Redis.
// Call once at startup before serving queries.
func (i *Index) Load(ctx context.Context) error {
	ids, err := i.client.SMembers(ctx, i.idSetKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to list section ids: %w", err)
	}

	sections := make([]domain.Section, 0, len(ids))
	for _, id := range ids {
		data, err := i.client.Get(ctx, i.sectionKey(id)).Bytes()
		if err != nil {
			if err == redis.Nil {
				// Stale set member, drop it
				i.client.SRem(ctx, i.idSetKey(), id)
				continue
			}
			return fmt.Errorf("failed to get section %s: %w", id, err)
		}

		var sec domain.Section
		if err := json.Unmarshal(data, &sec); err != nil {
			i.logger.Warn("skipping undecodable section",
				zap.String("section_id", id),
				zap.Error(err))
			continue
		}
		sections = append(sections, sec)
	}

	if err := i.mem.Add(ctx, sections); err != nil {
		return fmt.Errorf("failed to build memory index: %w", err)
	}

	i.logger.Info("search index loaded",
		zap.String("index", i.name),
		zap.Int("sections", len(sections)))
	return nil
}

// Add persists sections and updates the in-memory index
// (ports.SearchIndex interface)
func (i *Index) Add(ctx context.Context, sections []domain.Section) error {
	if len(sections) == 0 {
		return nil
	}

	for n := range sections {
		if sections[n].ID == "" {
			return fmt.Errorf("section %d has no id", n)
		}
	}

	pipe := i.client.TxPipeline()
	for _, sec := range sections {
		data, err := json.Marshal(sec)
		if err != nil {
			return fmt.Errorf("failed to marshal section: %w", err)
		}
		pipe.Set(ctx, i.sectionKey(sec.ID), data, 0)
		pipe.SAdd(ctx, i.idSetKey(), sec.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to persist sections: %w", err)
	}

	return i.mem.Add(ctx, sections)
}

// Delete removes sections from Redis and the in-memory index
// (ports.SearchIndex interface)
func (i *Index) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := i.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, i.sectionKey(id))
		pipe.SRem(ctx, i.idSetKey(), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to delete sections: %w", err)
	}

	return i.mem.Delete(ctx, ids)
}

// Search queries the in-memory index (ports.SearchIndex interface)
func (i *Index) Search(ctx context.Context, query string, opts ports.SearchOptions) (*ports.SearchResult, error) {
	return i.mem.Search(ctx, query, opts)
}

// Count returns the number of indexed sections.
func (i *Index) Count() int {
	return i.mem.Count()
}

// sectionKey returns the Redis key for a section
func (i *Index) sectionKey(id string) string {
	return fmt.Sprintf("baard:index:%s:section:%s", i.name, id)
}

// idSetKey returns the Redis key of the section ID set
func (i *Index) idSetKey() string {
	return fmt.Sprintf("baard:index:%s:ids", i.name)
}
