package tables

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"gps-toll-system/logger"
)

// CachedSource keeps raw table text in Redis for a short TTL. Writes go to
// the wrapped source, bump the table's generation and drop the cached copy.
// A fill is stored only if no write bumped the generation while the text
// was being read, so a slow reader cannot cache a table older than a write.
type CachedSource struct {
	next Source
	rdb  *redis.Client
	ttl  time.Duration
	log  logger.ILogger
}

var _ ReadWriter = (*CachedSource)(nil)

var errStaleFill = errors.New("table changed during fill")

func NewCachedSource(next Source, rdb *redis.Client, ttl time.Duration, log logger.ILogger) *CachedSource {
	return &CachedSource{next: next, rdb: rdb, ttl: ttl, log: log}
}

func cacheKey(name string) string {
	return "table:" + name
}

func genKey(name string) string {
	return "table:" + name + ":gen"
}

func (s *CachedSource) Fetch(ctx context.Context, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	text, err := s.rdb.Get(ctx, cacheKey(name)).Result()
	if err == nil {
		return text, nil
	}
	if !errors.Is(err, redis.Nil) {
		// Cache trouble must not take the dashboard down.
		s.log.Warning("table cache read failed", logger.String("table", name), logger.Error(err))
	}

	gen, err := s.rdb.Get(ctx, genKey(name)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.log.Warning("table cache read failed", logger.String("table", name), logger.Error(err))
		return s.next.Fetch(ctx, name)
	}

	text, err = s.next.Fetch(ctx, name)
	if err != nil {
		return "", err
	}

	s.fill(ctx, name, gen, text)
	return text, nil
}

// fill caches text unless the generation moved away from gen.
func (s *CachedSource) fill(ctx context.Context, name, gen, text string) {
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey(name)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKey(name), text, s.ttl)
			return nil
		})
		return err
	}, genKey(name))

	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		s.log.Debug("table changed while reading, not caching", logger.String("table", name))
	default:
		s.log.Warning("table cache write failed", logger.String("table", name), logger.Error(err))
	}
}

func (s *CachedSource) writer() (Writer, error) {
	w, ok := s.next.(Writer)
	if !ok {
		return nil, ErrReadOnly
	}
	return w, nil
}

func (s *CachedSource) invalidate(ctx context.Context, name string) {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(name))
		pipe.Del(ctx, cacheKey(name))
		return nil
	})
	if err != nil {
		s.log.Warning("table cache invalidation failed", logger.String("table", name), logger.Error(err))
	}
}

func (s *CachedSource) AppendRow(ctx context.Context, name string, fields []string) error {
	w, err := s.writer()
	if err != nil {
		return err
	}
	defer s.invalidate(ctx, name)
	return w.AppendRow(ctx, name, fields)
}

func (s *CachedSource) UpdateRows(ctx context.Context, name string, update RowUpdater) (int, error) {
	w, err := s.writer()
	if err != nil {
		return 0, err
	}
	defer s.invalidate(ctx, name)
	return w.UpdateRows(ctx, name, update)
}
