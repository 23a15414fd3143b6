package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// NoticeRepository is a per-user inbox of short notices.
type NoticeRepository interface {
	Push(ctx context.Context, userID string, notice domain.Notice) error
	Drain(ctx context.Context, userID string) ([]domain.Notice, error)
}

type noticeRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
	max    int64
}

// NewNoticeRepository stores notices in Redis lists keyed by user.
// Inboxes expire after ttl and keep at most max entries.
func NewNoticeRepository(client redis.UniversalClient, ttl time.Duration, max int64) NoticeRepository {
	if max <= 0 {
		max = 50
	}
	return &noticeRepository{client: client, ttl: ttl, max: max}
}

func noticeKey(userID string) string {
	return "notices:" + userID
}

func (r *noticeRepository) Push(ctx context.Context, userID string, notice domain.Notice) error {
	payload, err := json.Marshal(notice)
	if err != nil {
		return err
	}
	key := noticeKey(userID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, -r.max, -1)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Drain returns and clears the inbox, oldest first.
func (r *noticeRepository) Drain(ctx context.Context, userID string) ([]domain.Notice, error) {
	key := noticeKey(userID)
	pipe := r.client.TxPipeline()
	values := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	notices := make([]domain.Notice, 0, len(values.Val()))
	for _, raw := range values.Val() {
		var notice domain.Notice
		if err := json.Unmarshal([]byte(raw), &notice); err != nil {
			continue
		}
		notices = append(notices, notice)
	}
	return notices, nil
}
