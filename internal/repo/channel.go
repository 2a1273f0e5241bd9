// Package repo provides Redis-backed persistence for channel configurations.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/edirooss/headend-server/internal/channelcfg"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrChannelNotFound = errors.New("channel not found")

	channelKeyPrefix = "headend:channel:"
	channelIDsKey    = "headend:channels" // SET of string IDs: {"1", "2", ...}
)

// ChannelRepository stores per-channel configurations and the known-channel
// ID set.
type ChannelRepository struct {
	client *redis.Client
	log    *zap.Logger
}

func NewChannelRepository(log *zap.Logger, client *redis.Client) *ChannelRepository {
	return &ChannelRepository{
		log:    log.Named("channel_repo"),
		client: client,
	}
}

// HasID returns true if the channel ID is a member of the known channel set.
func (r *ChannelRepository) HasID(ctx context.Context, id int64) (bool, error) {
	ok, err := r.client.SIsMember(ctx, channelIDsKey, strconv.FormatInt(id, 10)).Result()
	if err != nil {
		return false, fmt.Errorf("set is member: %w", err)
	}
	return ok, nil
}

// IDs returns all known channel IDs, ascending.
func (r *ChannelRepository) IDs(ctx context.Context) ([]int64, error) {
	members, err := r.client.SMembers(ctx, channelIDsKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("set members: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			r.log.Warn("skipping malformed channel ID in index", zap.String("member", m))
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Save persists a channel configuration and adds its ID to the index set.
func (r *ChannelRepository) Save(ctx context.Context, id int64, cfg *channelcfg.ChannelConfig) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, channelKey(id), payload, 0)
	pipe.SAdd(ctx, channelIDsKey, strconv.FormatInt(id, 10))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

// Get fetches a channel configuration by ID.
// Returns ErrChannelNotFound if the key does not exist.
func (r *ChannelRepository) Get(ctx context.Context, id int64) (*channelcfg.ChannelConfig, error) {
	value, err := r.client.Get(ctx, channelKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChannelNotFound
		}
		return nil, fmt.Errorf("get: %w", err)
	}

	var cfg channelcfg.ChannelConfig
	if err := json.Unmarshal(value, &cfg); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &cfg, nil
}

func channelKey(id int64) string {
	return channelKeyPrefix + strconv.FormatInt(id, 10) + ":config"
}
