// Package verification re-runs provider verification for pending purchases
// through a delayed queue kept in a Redis sorted set.
package verification

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vtuhub/walletledger/pkg/logger"
	"github.com/vtuhub/walletledger/pkg/redis"
)

// QueueName is the sorted set holding due verification tasks.
const QueueName = "verification"

// Task asks for one verification attempt of a purchase order. Attempt is zero
// when the task came off the queue; the verifier then takes it from the order.
type Task struct {
	OrderID uuid.UUID
	Attempt int
}

// member keys the queue by order so each order has at most one queued task.
func (t Task) member() string {
	return t.OrderID.String()
}

// parseMember also accepts the older "<order id>:<attempt>" members.
func parseMember(member string) (Task, error) {
	id, attempt, withAttempt := strings.Cut(member, ":")
	orderID, err := uuid.Parse(id)
	if err != nil {
		return Task{}, fmt.Errorf("parse order id in %q: %w", member, err)
	}
	task := Task{OrderID: orderID}
	if withAttempt {
		if task.Attempt, err = strconv.Atoi(attempt); err != nil {
			return Task{}, fmt.Errorf("parse attempt in %q: %w", member, err)
		}
	}
	return task, nil
}

// Scheduler arranges for a task to run once after the given delay. Scheduling
// an order that is already queued keeps the earlier due time.
type Scheduler interface {
	Schedule(ctx context.Context, after time.Duration, task Task) error
}

// RedisScheduler scores tasks by their due time in milliseconds.
type RedisScheduler struct {
	store redis.SortedSetStore
	key   string
	logg  *logger.Logger
	now   func() time.Time
}

// NewRedisScheduler builds a scheduler over the verification queue.
func NewRedisScheduler(store redis.SortedSetStore, logg *logger.Logger) (*RedisScheduler, error) {
	if store == nil {
		return nil, errors.New("sorted set store required")
	}
	return &RedisScheduler{
		store: store,
		key:   store.QueueKey(QueueName),
		logg:  logg,
		now:   time.Now,
	}, nil
}

func (s *RedisScheduler) Schedule(ctx context.Context, after time.Duration, task Task) error {
	if task.OrderID == uuid.Nil {
		return errors.New("order id required")
	}
	if after < 0 {
		after = 0
	}
	due := s.now().Add(after)
	if err := s.store.ZAddLT(ctx, s.key, task.member(), float64(due.UnixMilli())); err != nil {
		return fmt.Errorf("enqueue verification: %w", err)
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"order_id": task.OrderID.String(),
			"attempt":  task.Attempt,
			"due_at":   due.UTC().Format(time.RFC3339),
		}), "verification scheduled")
	}
	return nil
}

// Claim removes and returns up to limit tasks that are due. A task removed by
// another worker first is skipped, so every task is claimed once.
func (s *RedisScheduler) Claim(ctx context.Context, limit int64) ([]Task, error) {
	members, err := s.store.ZRangeByScore(ctx, s.key, float64(s.now().UnixMilli()), limit)
	if err != nil {
		return nil, fmt.Errorf("read due verifications: %w", err)
	}
	tasks := make([]Task, 0, len(members))
	for _, member := range members {
		removed, err := s.store.ZRem(ctx, s.key, member)
		if err != nil {
			return tasks, fmt.Errorf("claim verification: %w", err)
		}
		if !removed {
			continue
		}
		task, err := parseMember(member)
		if err != nil {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "member", member), "dropping malformed verification task")
			}
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Pending reports the number of queued tasks.
func (s *RedisScheduler) Pending(ctx context.Context) (int64, error) {
	return s.store.ZCard(ctx, s.key)
}
