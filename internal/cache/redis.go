package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/roomhold/config"
	"github.com/Domenick1991/roomhold/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache keeps the room type catalog. Inventory counters are never cached.
type RedisCache struct {
	client       *redis.Client
	roomTypesTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig) *RedisCache {
	return &RedisCache{
		client:       redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		roomTypesTTL: cfg.RoomTypesTTL,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetRoomTypes(ctx context.Context) ([]domain.RoomType, error) {
	data, err := c.client.Get(ctx, roomTypesKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return decodeRoomTypes(data)
}

func (c *RedisCache) SetRoomTypes(ctx context.Context, roomTypes []domain.RoomType) error {
	payload, err := encodeRoomTypes(roomTypes)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, roomTypesKey(), payload, c.roomTypesTTL).Err()
}

func (c *RedisCache) InvalidateRoomTypes(ctx context.Context) error {
	return c.client.Del(ctx, roomTypesKey()).Err()
}

type cachedRoomType struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	MaxGuests        int       `json:"max_guests"`
	DefaultAllotment int       `json:"default_allotment"`
	RateCents        int64     `json:"rate_cents"`
	Currency         string    `json:"currency"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func encodeRoomTypes(roomTypes []domain.RoomType) ([]byte, error) {
	out := make([]cachedRoomType, len(roomTypes))
	for i, rt := range roomTypes {
		out[i] = cachedRoomType(rt)
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode room types: %w", err)
	}
	return payload, nil
}

func decodeRoomTypes(data []byte) ([]domain.RoomType, error) {
	var cached []cachedRoomType
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("decode room types: %w", err)
	}
	out := make([]domain.RoomType, len(cached))
	for i, rt := range cached {
		out[i] = domain.RoomType(rt)
	}
	return out, nil
}

func roomTypesKey() string {
	return "cache:room_types"
}
