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
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Options configures the backend a Build call constructs.
type Options struct {
	RedisAddr   string
	RedisDB     int
	RedisPrefix string
}

// Build constructs a Store for the given backend selector. Supported
// backends:
//   - "", "memory": in-process MemoryStore (default)
//   - "redis": RedisStore backed by a real client at opts.RedisAddr
//
// Grounded on the teacher's persistence.BuildPersister adapter switch
// (persistence/factory.go): an explicit selector string resolved to a
// concrete backend, erroring on anything unrecognized rather than silently
// falling back.
func Build(backend string, opts Options) (Store, error) {
	switch backend {
	case "", "memory":
		return Instrument(NewMemoryStore()), nil
	case "redis":
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("flowstate: redis backend requires a non-empty address")
		}
		client := redis.NewClient(&redis.Options{
			Addr: opts.RedisAddr,
			DB:   opts.RedisDB,
		})
		return Instrument(NewRedisStore(client, opts.RedisPrefix)), nil
	default:
		return nil, fmt.Errorf("flowstate: unknown backend %q", backend)
	}
}
