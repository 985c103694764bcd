// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/zeebo/blake3"
)

const (
	DefaultCacheSize = 128
	cacheKeyPrefix   = "pvrisk:"
)

// Cache is a two tier byte cache. Values are lz4 compressed and kept in an
// in-process LRU; when a redis client is configured they are also written to
// redis with a TTL so that multiple service instances share results.
type Cache struct {
	local *lru.Cache
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCache creates a cache holding at most size entries locally. rdb may be nil.
func NewCache(size int, rdb *redis.Client, ttl time.Duration) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	local, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{
		local: local,
		rdb:   rdb,
		ttl:   ttl,
	}, nil
}

// SetupCache creates a cache from the cache.* configuration keys
func SetupCache() (*Cache, error) {
	var rdb *redis.Client
	if viper.GetBool("cache.redis") {
		opt, err := redis.ParseURL(viper.GetString("cache.redis_url"))
		if err != nil {
			log.Error().Err(err).Msg("could not parse redis URL")
			return nil, err
		}
		rdb = redis.NewClient(opt)
	}

	ttl := time.Duration(viper.GetInt("cache.ttl")) * time.Second
	c, err := NewCache(viper.GetInt("cache.local_size"), rdb, ttl)
	if err != nil {
		log.Error().Err(err).Msg("could not create LRU cache")
		return nil, err
	}
	return c, nil
}

// CacheKey derives a content address for the concatenation of parts
func CacheKey(parts ...[]byte) string {
	h := blake3.New()
	for _, p := range parts {
		// the hasher never returns an error
		_, _ = h.Write(p)
		_, _ = h.Write([]byte{0})
	}
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Set stores val under key
func (c *Cache) Set(ctx context.Context, key string, val []byte) error {
	compressed, err := Compress(val)
	if err != nil {
		return err
	}
	c.local.Add(key, compressed)

	if c.rdb != nil {
		return c.rdb.Set(ctx, key, compressed, c.ttl).Err()
	}
	return nil
}

// Get returns the value stored under key. The second return value reports
// whether the key was found in either tier.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok := c.local.Get(key); ok {
		val, err := Decompress(v.([]byte))
		return val, err == nil, err
	}

	if c.rdb == nil {
		return nil, false, nil
	}

	compressed, err := c.rdb.GetEx(ctx, key, c.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		log.Warn().Err(err).Str("Key", key).Msg("redis lookup failed")
		return nil, false, err
	}

	c.local.Add(key, compressed)
	val, err := Decompress(compressed)
	return val, err == nil, err
}

// Len is the number of entries held locally
func (c *Cache) Len() int {
	return c.local.Len()
}

// Close releases the redis client if one is configured
func (c *Cache) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}
