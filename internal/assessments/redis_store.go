package assessments

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	redis "github.com/redis/go-redis/v9"

	"github.com/SkothaSec/project-mimir/internal/logger"
	"github.com/SkothaSec/project-mimir/pkg/models"
)

// RedisConfig configures Redis access for assessment persistence.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	Retention int64
}

// RedisStore keeps the most recent assessments in a Redis list, newest first.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	retention int64
}

// NewRedisStore constructs a Redis-backed assessment store. The client connects
// lazily, so an unreachable server surfaces on the first command; call Ping to
// check up front.
func NewRedisStore(cfg RedisConfig) *RedisStore {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return newRedisStore(client, cfg.KeyPrefix, cfg.Retention)
}

func newRedisStore(client *redis.Client, prefix string, retention int64) *RedisStore {
	if strings.TrimSpace(prefix) == "" {
		prefix = "mimir:assessments"
	}
	if retention <= 0 {
		retention = 500
	}
	return &RedisStore{client: client, prefix: strings.TrimSpace(prefix), retention: retention}
}

// Ping checks that Redis answers within five seconds.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return errors.WithHint(errors.Wrap(err, "ping redis assessment store"),
			"check results.redis.addr")
	}
	return nil
}

// Append stores one assessment and trims the list to the retention cap.
func (s *RedisStore) Append(ctx context.Context, record models.RawAlertRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "marshal assessment")
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.recordsKey(), string(payload))
	pipe.LTrim(ctx, s.recordsKey(), 0, s.retention-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "append assessment")
	}
	return nil
}

// Latest returns up to limit assessments, newest first. Entries that no longer
// decode are skipped.
func (s *RedisStore) Latest(ctx context.Context, limit int64) ([]models.RawAlertRecord, error) {
	if limit <= 0 {
		limit = 5
	}
	members, err := s.client.LRange(ctx, s.recordsKey(), 0, limit-1).Result()
	if err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "read assessments"),
			"check results.redis.addr")
	}

	records := make([]models.RawAlertRecord, 0, len(members))
	for i, member := range members {
		var rec models.RawAlertRecord
		if err := json.Unmarshal([]byte(member), &rec); err != nil {
			logger.Warnf("Skipping undecodable assessment at index %d: %v", i, err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close closes Redis resources.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) recordsKey() string {
	return s.prefix + ":records"
}
