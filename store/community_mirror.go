package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/hivereader/hivereader/model"
	Logger "github.com/hivereader/hivereader/utils/log"
)

const (
	// mirrorSchemaVersion tags the stored envelope; bumping it discards
	// every previously stored copy on next load.
	mirrorSchemaVersion = 2

	// mirrorTTL is the absolute lifetime of one stored copy.
	mirrorTTL = 24 * time.Hour

	mirrorKey = "communities__list"
)

// mirrorEnvelope wraps the stored community list with the schema version and
// an absolute expiry so a stale or foreign copy is discarded wholesale, never
// partially trusted.
type mirrorEnvelope struct {
	Version   int                      `json:"version"`
	ExpiresAt time.Time                `json:"expires_at"`
	Records   []*model.CommunityRecord `json:"records"`
}

// CommunityMirror is the durable copy of the full community list, backed by
// redis. Implements community.Mirror.
type CommunityMirror struct {
	inner *redis.Client
	now   func() time.Time
}

// GetCommunityMirror connects to redis using the standard env configuration
// and pings it once to fail fast on misconfiguration.
func GetCommunityMirror() (*CommunityMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")),
		Password: os.Getenv("REDIS_PASSWD"),
		DB:       0, // use default DB
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, errors.Wrap(err, "fail to connect to redis")
	}
	return NewCommunityMirror(client), nil
}

// NewCommunityMirror wraps an existing redis client.
func NewCommunityMirror(client *redis.Client) *CommunityMirror {
	return &CommunityMirror{inner: client, now: time.Now}
}

// Load returns the mirrored list, or (nil, nil) when no trustworthy copy
// exists. A version mismatch or an expired envelope deletes the stored copy.
func (m *CommunityMirror) Load(ctx context.Context) ([]*model.CommunityRecord, error) {
	payload, err := m.inner.Get(ctx, mirrorKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "fail to read community mirror")
	}

	records, ok := decodeMirror([]byte(payload), m.now())
	if !ok {
		Logger.Log.Info("discarding stale or incompatible community mirror")
		m.inner.Del(ctx, mirrorKey)
		return nil, nil
	}
	return records, nil
}

// Store mirrors the list with the current schema version and a fresh expiry.
func (m *CommunityMirror) Store(ctx context.Context, records []*model.CommunityRecord) error {
	payload, err := encodeMirror(records, m.now())
	if err != nil {
		return err
	}
	// Redis-side TTL is a backstop; the envelope expiry is authoritative.
	if err := m.inner.Set(ctx, mirrorKey, payload, 2*mirrorTTL).Err(); err != nil {
		return errors.Wrap(err, "fail to write community mirror")
	}
	return nil
}

func encodeMirror(records []*model.CommunityRecord, now time.Time) ([]byte, error) {
	payload, err := json.Marshal(mirrorEnvelope{
		Version:   mirrorSchemaVersion,
		ExpiresAt: now.Add(mirrorTTL),
		Records:   records,
	})
	if err != nil {
		return nil, errors.Wrap(err, "fail to encode community mirror")
	}
	return payload, nil
}

func decodeMirror(payload []byte, now time.Time) ([]*model.CommunityRecord, bool) {
	var envelope mirrorEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, false
	}
	if envelope.Version != mirrorSchemaVersion {
		return nil, false
	}
	if !now.Before(envelope.ExpiresAt) {
		return nil, false
	}
	for _, record := range envelope.Records {
		record.BuildSearchIndex()
	}
	return envelope.Records, true
}
