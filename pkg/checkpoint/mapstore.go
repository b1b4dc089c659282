package checkpoint

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// MapStore is an in-memory Client, for use in tests that don't want a
// real redis.
type MapStore struct {
	data map[string]string
}

var _ Client = (*MapStore)(nil)

// NewMapStore returns an empty MapStore.
func NewMapStore() *MapStore {
	return &MapStore{data: make(map[string]string)}
}

func (m *MapStore) Get(ctx context.Context, key string) *goredis.StringCmd {
	cmd := goredis.NewStringCmd(ctx, nil)
	val, ok := m.data[key]
	if !ok {
		cmd.SetErr(goredis.Nil)
	} else {
		cmd.SetVal(val)
	}
	return cmd
}

func (m *MapStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd {
	cmd := goredis.NewStatusCmd(ctx, nil)
	m.data[key] = value.(string)
	return cmd
}
