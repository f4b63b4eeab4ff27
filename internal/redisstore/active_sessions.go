package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ActiveSession is the cached record of an ongoing parking session, keyed
// by rfid for quick gate-side lookups. The durable truth lives in the slot
// table; this cache is best-effort only.
type ActiveSession struct {
	SlotNumber int       `json:"slot_number"`
	RiderID    int64     `json:"rider_id"`
	RiderName  string    `json:"rider_name"`
	RFID       string    `json:"rfid"`
	EntryTime  time.Time `json:"entry_time"`
}

// Store manages the active session cache.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns redis-backed store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) key(rfid string) string {
	return fmt.Sprintf("parking:session:%s", rfid)
}

// Save caches a session.
func (s *Store) Save(ctx context.Context, session ActiveSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(session.RFID), data, s.ttl).Err()
}

// Get returns the cached session for a tag, redis.Nil if absent.
func (s *Store) Get(ctx context.Context, rfid string) (*ActiveSession, error) {
	result, err := s.client.Get(ctx, s.key(rfid)).Result()
	if err != nil {
		return nil, err
	}
	var session ActiveSession
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes the cached session.
func (s *Store) Delete(ctx context.Context, rfid string) error {
	return s.client.Del(ctx, s.key(rfid)).Err()
}
