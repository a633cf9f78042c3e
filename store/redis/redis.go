// Package redis is a shared store.Store keeping one Redis list per fingerprint.
// RPUSH is atomic, so concurrent appends from any number of processes are
// serialized by the server; AppendAt runs as a Lua script for the same reason.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/samplecache/store"
)

var ErrNilClient = errors.New("redis store: nil client")

// appendAt pushes ARGV[2..] only when LLEN(KEYS[1]) == ARGV[1].
var appendAt = goredis.NewScript(`
local n = redis.call("LLEN", KEYS[1])
if n ~= tonumber(ARGV[1]) then
	return -1
end
for i = 2, #ARGV do
	redis.call("RPUSH", KEYS[1], ARGV[i])
end
return n + #ARGV - 1
`)

type Redis struct {
	rdb         goredis.UniversalClient
	ns          string
	closeClient bool
}

var (
	_ store.Store  = (*Redis)(nil)
	_ store.Loader = (*Redis)(nil)
	_ store.Lister = (*Redis)(nil)
)

type Config struct {
	Client      goredis.UniversalClient
	Namespace   string // key prefix; "" => "samples"
	CloseClient bool   // set true only if this store exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = "samples"
	}
	return &Redis{rdb: cfg.Client, ns: ns, closeClient: cfg.CloseClient}, nil
}

func (r *Redis) key(fp string) string { return "smp:" + r.ns + ":" + fp }

func (r *Redis) Len(ctx context.Context, fp string) (int, error) {
	n, err := r.rdb.LLen(ctx, r.key(fp)).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *Redis) Get(ctx context.Context, fp string, index int) (string, bool, error) {
	if index < 0 {
		return "", false, nil
	}
	v, err := r.rdb.LIndex(ctx, r.key(fp), int64(index)).Result()
	if err == goredis.Nil {
		return "", false, nil // miss
	}
	if err != nil {
		return "", false, err // transport/server error
	}
	return v, true, nil
}

func (r *Redis) Append(ctx context.Context, fp string, values []string) (int, error) {
	if len(values) == 0 {
		return r.Len(ctx, fp)
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	n, err := r.rdb.RPush(ctx, r.key(fp), args...).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *Redis) AppendAt(ctx context.Context, fp string, at int, values []string) (bool, error) {
	args := make([]any, 0, len(values)+1)
	args = append(args, at)
	for _, v := range values {
		args = append(args, v)
	}
	n, err := appendAt.Run(ctx, r.rdb, []string{r.key(fp)}, args...).Int64()
	if err != nil {
		return false, fmt.Errorf("redis store: append at %d: %w", at, err)
	}
	return n >= 0, nil
}

func (r *Redis) Load(ctx context.Context, fp string) ([]string, error) {
	return r.rdb.LRange(ctx, r.key(fp), 0, -1).Result()
}

// Keys scans the namespace. It is O(keyspace) and meant for tooling.
func (r *Redis) Keys(ctx context.Context) ([]string, error) {
	prefix := r.key("")
	var out []string
	iter := r.rdb.Scan(ctx, 0, prefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val()[len(prefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// Close releases the underlying redis client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (r *Redis) Close(context.Context) error {
	if r.closeClient {
		if err := r.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
