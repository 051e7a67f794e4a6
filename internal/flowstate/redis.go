// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package flowstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/riftlabs/riftmock/internal/value"
)

// RedisStore is the distributed flow-state backend, used when riftmock is
// run with multiple admin-plane instances sharing flow state. Grounded on
// the teacher's persistence/redis.go: the increment contract is applied
// through a single Lua EVAL so concurrent increments from different
// processes stay atomic, the same way RedisPersister.CommitBatch does for
// vector commits.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an existing go-redis client. prefix namespaces keys,
// defaulting to "riftmock:flow:" when empty.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "riftmock:flow:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) hashKey(flowID string) string {
	return s.prefix + flowID
}

func (s *RedisStore) Get(ctx context.Context, flowID, key string) (value.Value, bool, error) {
	raw, err := s.client.HGet(ctx, s.hashKey(flowID), key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("flowstate: redis hget flow=%s key=%s: %w", flowID, key, err)
	}
	v, err := value.Parse([]byte(raw))
	if err != nil {
		return nil, false, fmt.Errorf("flowstate: decode flow=%s key=%s: %w", flowID, key, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, flowID, key string, val value.Value, ttl time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("flowstate: encode flow=%s key=%s: %w", flowID, key, err)
	}
	hk := s.hashKey(flowID)
	if err := s.client.HSet(ctx, hk, key, raw).Err(); err != nil {
		return fmt.Errorf("flowstate: redis hset flow=%s key=%s: %w", flowID, key, err)
	}
	if ttl > 0 {
		s.client.Expire(ctx, hk, ttl)
	}
	return nil
}

// incrementLuaScript atomically adds ARGV[1] to the integer stored at field
// KEYS[2] inside hash KEYS[1], creating the field at 0 if absent, and applies
// ARGV[2] as the hash's TTL in seconds only if the hash did not already
// exist — mirroring RedisPersister's "set once, no-op if already applied"
// idempotency pattern, adapted here for first-write-wins TTL instead of a
// commit marker.
const incrementLuaScript = `
local hashKey = KEYS[1]
local field = KEYS[2]
local delta = tonumber(ARGV[1])
local ttlSeconds = tonumber(ARGV[2])
local existed = redis.call('EXISTS', hashKey)
local newVal = redis.call('HINCRBY', hashKey, field, delta)
if existed == 0 and ttlSeconds and ttlSeconds > 0 then
  redis.call('EXPIRE', hashKey, ttlSeconds)
end
return newVal
`

func (s *RedisStore) Increment(ctx context.Context, flowID, key string, delta int64, ttl time.Duration) (int64, error) {
	hk := s.hashKey(flowID)
	res, err := s.client.Eval(ctx, incrementLuaScript, []string{hk, key}, delta, int(ttl.Seconds())).Result()
	if err != nil {
		return 0, fmt.Errorf("flowstate: redis eval increment flow=%s key=%s: %w", flowID, key, err)
	}
	n, ok := res.(int64)
	if !ok {
		return 0, fmt.Errorf("flowstate: unexpected increment result type %T for flow=%s key=%s", res, flowID, key)
	}
	return n, nil
}

func (s *RedisStore) Delete(ctx context.Context, flowID string) error {
	if err := s.client.Del(ctx, s.hashKey(flowID)).Err(); err != nil {
		return fmt.Errorf("flowstate: redis del flow=%s: %w", flowID, err)
	}
	return nil
}
