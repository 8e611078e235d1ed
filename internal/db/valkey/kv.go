package valkey

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/bookrec/internal/db"
)

// Get returns the value at key, db.ErrKeyNotFound when it does not exist.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).AsBytes()
	if rueidis.IsRedisNil(err) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, &db.Error{Cmd: "GET", Key: key, Err: err}
	}
	return data, nil
}

// Put stores value at key, with EX when ttl is positive.
func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var cmd rueidis.Completed
	if ttl > 0 {
		cmd = s.client.B().Set().Key(key).Value(rueidis.BinaryString(value)).Ex(ttl).Build()
	} else {
		cmd = s.client.B().Set().Key(key).Value(rueidis.BinaryString(value)).Build()
	}
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return &db.Error{Cmd: "SET", Key: key, Err: err}
	}
	return nil
}

// Incr pipelines INCRBY with EXPIRE NX so the first increment fixes the expiry.
func (s *Store) Incr(ctx context.Context, key string, by int64, ttl time.Duration) (int64, error) {
	cmds := rueidis.Commands{s.client.B().Incrby().Key(key).Increment(by).Build()}
	if ttl > 0 {
		cmds = append(cmds, s.client.B().Expire().Key(key).Seconds(int64(ttl/time.Second)).Nx().Build())
	}

	res := s.client.DoMulti(ctx, cmds...)
	n, err := res[0].AsInt64()
	if err != nil {
		return 0, &db.Error{Cmd: "INCRBY", Key: key, Err: err}
	}
	if len(res) > 1 {
		if err := res[1].Error(); err != nil {
			return n, &db.Error{Cmd: "EXPIRE", Key: key, Err: err}
		}
	}
	return n, nil
}
