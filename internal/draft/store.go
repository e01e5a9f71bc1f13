package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by a KV when the key does not exist.
var ErrNotFound = errors.New("draft: key not found")

// KV is the string-keyed durable storage drafts are mirrored to.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// RedisKV backs the draft store with Redis.
type RedisKV struct {
	Client *redis.Client
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	return v, err
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.Client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Del(ctx context.Context, key string) error {
	return r.Client.Del(ctx, key).Err()
}

const (
	keyPrefix = "draft"
	draftTTL  = 7 * 24 * time.Hour

	// GenericPartition is the partition used before a restaurant is selected.
	GenericPartition = "new"
)

// Store persists draft snapshots, partitioned by (user, restaurant).
type Store struct {
	kv KV
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Key builds the partition key for a user and restaurant id ("" for none).
func (s *Store) Key(userID, restaurantID string) string {
	if restaurantID == "" {
		restaurantID = GenericPartition
	}
	return fmt.Sprintf("%s:%s:%s", keyPrefix, userID, restaurantID)
}

// Restore looks up the most recent snapshot for the partition. Missing and
// corrupt data are both reported as absent; a bad snapshot must never be
// fatal.
func (s *Store) Restore(ctx context.Context, userID, restaurantID string) (*MultiDishCreateState, bool) {
	raw, err := s.kv.Get(ctx, s.Key(userID, restaurantID))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("[DraftStore] restore failed for user %s: %v", userID, err)
		}
		return nil, false
	}
	var state MultiDishCreateState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		log.Printf("[DraftStore] discarding corrupt snapshot for user %s: %v", userID, err)
		return nil, false
	}
	return &state, true
}

// Persist writes the snapshot for the partition. Only uploaded media survive
// serialization so the stored snapshot is always independently restorable.
func (s *Store) Persist(ctx context.Context, userID, restaurantID string, state *MultiDishCreateState) error {
	snap := sanitizeSnapshot(state)
	data, err := json.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("failed to marshal draft snapshot: %w", err)
	}
	if err := s.kv.Set(ctx, s.Key(userID, restaurantID), string(data), draftTTL); err != nil {
		return fmt.Errorf("failed to persist draft: %w", err)
	}
	return nil
}

// Evict removes the partition's stored snapshot.
func (s *Store) Evict(ctx context.Context, userID, restaurantID string) error {
	return s.kv.Del(ctx, s.Key(userID, restaurantID))
}

// sanitizeSnapshot strips everything that would not survive a restart:
// media still uploading or failed, local-only preview names, and dish media
// references left dangling by the filter.
func sanitizeSnapshot(state *MultiDishCreateState) MultiDishCreateState {
	snap := state.Clone()
	snap.UpdatedAt = time.Now()

	kept := make(map[string]struct{})
	media := snap.Media[:0]
	for _, m := range snap.Media {
		if m.Status != MediaUploaded {
			continue
		}
		m.LocalName = ""
		media = append(media, m)
		kept[m.ID] = struct{}{}
	}
	snap.Media = media

	for i := range snap.Dishes {
		ids := snap.Dishes[i].MediaIDs[:0]
		for _, id := range snap.Dishes[i].MediaIDs {
			if _, ok := kept[id]; ok {
				ids = append(ids, id)
			}
		}
		snap.Dishes[i].MediaIDs = ids
	}
	return snap
}
