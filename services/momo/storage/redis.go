package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/brave-intl/momo-go/services/momo/model"
)

// ErrTooManyConflicts - an update kept losing the race against other writers
var ErrTooManyConflicts = errors.New("storage: too many concurrent updates")

const (
	redisKeyPrefix      = "momo:"
	redisMaxTxRetries   = 10
	redisIndexKey       = redisKeyPrefix + "transactions"
	redisUnsettledKey   = redisKeyPrefix + "unsettled"
	redisOrderKeyPrefix = redisKeyPrefix + "order:"
	redisTxKeyPrefix    = redisKeyPrefix + "transaction:"
)

// Redis is a Store on redis. Records are JSON values, sorted sets index them by creation time.
type Redis struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedis creates a Redis store on client.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client, now: time.Now}
}

// NewRedisFromURL connects to the redis at rawURL, such as redis://localhost:6379/0.
func NewRedisFromURL(rawURL string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewRedis(redis.NewClient(opts)), nil
}

func txKey(id uuid.UUID) string {
	return redisTxKeyPrefix + id.String()
}

func orderKey(orderID string) string {
	return redisOrderKeyPrefix + orderID
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func (r *Redis) Create(ctx context.Context, t *model.Transaction) error {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode transaction: %w", err)
	}

	key := txKey(t.ID)
	member := t.ID.String()

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return model.ErrTransactionExists
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, 0)
			pipe.ZAdd(ctx, redisIndexKey, redis.Z{Score: score(t.CreatedAt), Member: member})
			pipe.ZAdd(ctx, orderKey(t.OrderID), redis.Z{Score: score(t.CreatedAt), Member: member})
			if !t.IsTerminal() {
				pipe.ZAdd(ctx, redisUnsettledKey, redis.Z{Score: score(t.CreatedAt), Member: member})
			}
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrTransactionExists
	}

	return err
}

func (r *Redis) Get(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	return r.get(ctx, r.client, id)
}

type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *Redis) get(ctx context.Context, c redisGetter, id uuid.UUID) (*model.Transaction, error) {
	b, err := c.Get(ctx, txKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrTransactionNotFound
		}
		return nil, err
	}

	result := &model.Transaction{}
	if err := json.Unmarshal(b, result); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return result, nil
}

func (r *Redis) Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (*model.Transaction, error) {
	key := txKey(id)

	for i := 0; i < redisMaxTxRetries; i++ {
		var result *model.Transaction

		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := r.get(ctx, tx, id)
			if err != nil {
				return err
			}

			next, err := apply(current, fn, r.now().UTC())
			if err != nil {
				return err
			}

			b, err := json.Marshal(next)
			if err != nil {
				return fmt.Errorf("failed to encode transaction: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, b, 0)
				if next.IsTerminal() {
					pipe.ZRem(ctx, redisUnsettledKey, id.String())
				}
				return nil
			})
			if err != nil {
				return err
			}

			result = next
			return nil
		}, key)

		switch {
		case err == nil:
			return result, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		default:
			return nil, err
		}
	}

	return nil, ErrTooManyConflicts
}

func (r *Redis) List(ctx context.Context, f model.ListFilter) ([]model.Transaction, error) {
	f = f.Normalize()

	key := redisIndexKey
	if f.OrderID != "" {
		key = orderKey(f.OrderID)
	}

	// without a state filter the newest limit members are exactly the answer
	stop := int64(f.Limit - 1)
	if f.State != "" {
		stop = -1
	}

	ids, err := r.client.ZRevRange(ctx, key, 0, stop).Result()
	if err != nil {
		return nil, err
	}

	txs, err := r.load(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]model.Transaction, 0, len(txs))
	for i := range txs {
		if f.Matches(&txs[i]) {
			result = append(result, txs[i])
		}
		if len(result) == f.Limit {
			break
		}
	}
	return result, nil
}

func (r *Redis) ListUnsettled(ctx context.Context, createdBefore time.Time, limit int) ([]model.Transaction, error) {
	by := &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(createdBefore.UnixMilli(), 10),
	}
	if limit > 0 {
		by.Count = int64(limit)
	}

	ids, err := r.client.ZRangeByScore(ctx, redisUnsettledKey, by).Result()
	if err != nil {
		return nil, err
	}

	txs, err := r.load(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]model.Transaction, 0, len(txs))
	for i := range txs {
		if !txs[i].IsTerminal() {
			result = append(result, txs[i])
		}
	}
	return result, nil
}

// load reads the transactions for ids, keeping their order and skipping missing ones.
func (r *Redis) load(ctx context.Context, ids []string) ([]model.Transaction, error) {
	if len(ids) == 0 {
		return []model.Transaction{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, redisTxKeyPrefix+id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	result := make([]model.Transaction, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}

		var t model.Transaction
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			return nil, fmt.Errorf("failed to decode transaction: %w", err)
		}
		result = append(result, t)
	}
	return result, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
