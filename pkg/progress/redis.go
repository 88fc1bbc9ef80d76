package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
)

// DefaultSnapshotTTL is how long the latest snapshot of a job is kept.
const DefaultSnapshotTTL = 24 * time.Hour

// RedisPublisher publishes snapshots on a per-job channel and keeps the
// latest one under a key, so a caller that disconnected can resume watching
// from another process.
type RedisPublisher struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ Publisher = (*RedisPublisher)(nil)

// NewRedisPublisher returns a publisher using client.
func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: "airdrop:progress:", ttl: DefaultSnapshotTTL}
}

// Channel returns the pub/sub channel of a job.
func (p *RedisPublisher) Channel(jobID string) string {
	return p.prefix + jobID
}

func (p *RedisPublisher) key(jobID string) string {
	return p.prefix + "latest:" + jobID
}

// Publish implements Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, snap core.Progress) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	pipe := p.client.Pipeline()
	pipe.Set(ctx, p.key(snap.JobID), raw, p.ttl)
	pipe.Publish(ctx, p.Channel(snap.JobID), raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish progress: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot of a job, or nil if none is stored.
func (p *RedisPublisher) Latest(ctx context.Context, jobID string) (*core.Progress, error) {
	raw, err := p.client.Get(ctx, p.key(jobID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	var snap core.Progress
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	return &snap, nil
}

// Watch streams snapshots of a job until ctx is done or the job completes.
// The returned channel is closed when watching stops.
func (p *RedisPublisher) Watch(ctx context.Context, jobID string) (<-chan core.Progress, error) {
	sub := p.client.Subscribe(ctx, p.Channel(jobID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe progress: %w", err)
	}

	out := make(chan core.Progress)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var snap core.Progress
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					continue
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
				if snap.Done() {
					return
				}
			}
		}
	}()
	return out, nil
}
