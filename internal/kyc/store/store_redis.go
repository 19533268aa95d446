package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"veristage/internal/kyc/schema"
	"veristage/pkg/domain"
	"veristage/pkg/platform/sentinel"
)

// RedisSnapshotStore caches draft snapshots with a TTL so an interrupted
// session can be re-seeded after a process restart. It is a continuity
// cache, not the KYC system of record: self-service drafts are still only
// persisted upstream at terminal submission.
type RedisSnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSnapshotStore(client *redis.Client, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, ttl: ttl}
}

type snapshotRecord struct {
	AccountType string         `json:"account_type"`
	Fields      map[string]any `json:"fields"`
	SavedAt     time.Time      `json:"saved_at"`
}

func snapshotKey(applicantID domain.ApplicantID) string {
	return "veristage:draft:" + applicantID.String()
}

// SaveSnapshot stores the draft's current field values under the applicant
// key, refreshing the TTL.
func (s *RedisSnapshotStore) SaveSnapshot(ctx context.Context, applicantID domain.ApplicantID, accountType domain.AccountType, fields map[schema.FieldKey]any) error {
	record := snapshotRecord{
		AccountType: string(accountType),
		Fields:      make(map[string]any, len(fields)),
		SavedAt:     time.Now(),
	}
	for k, v := range fields {
		record.Fields[string(k)] = v
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal draft snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey(applicantID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save draft snapshot: %w", err)
	}
	return nil
}

// FindSnapshot returns the cached snapshot for the applicant, or
// sentinel.ErrNotFound when none exists or it has expired.
func (s *RedisSnapshotStore) FindSnapshot(ctx context.Context, applicantID domain.ApplicantID) (domain.AccountType, map[schema.FieldKey]any, error) {
	payload, err := s.client.Get(ctx, snapshotKey(applicantID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil, sentinel.ErrNotFound
		}
		return "", nil, fmt.Errorf("find draft snapshot: %w", err)
	}
	var record snapshotRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return "", nil, fmt.Errorf("decode draft snapshot: %w", err)
	}
	fields := make(map[schema.FieldKey]any, len(record.Fields))
	for k, v := range record.Fields {
		fields[schema.FieldKey(k)] = v
	}
	return domain.AccountType(record.AccountType), fields, nil
}

// DeleteSnapshot removes the cached snapshot, e.g. after terminal submission.
func (s *RedisSnapshotStore) DeleteSnapshot(ctx context.Context, applicantID domain.ApplicantID) error {
	if err := s.client.Del(ctx, snapshotKey(applicantID)).Err(); err != nil {
		return fmt.Errorf("delete draft snapshot: %w", err)
	}
	return nil
}
