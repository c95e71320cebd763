package main

import (
	"context"
	"time"

	"github.com/kochabx/rediskit/log"
	"github.com/kochabx/rediskit/store/redis"
)

// walkthrough 依次执行字符串、哈希、列表、删除和过期命令，每一步的结果记为 Debug 日志
func walkthrough(ctx context.Context, client *redis.Client, logger *log.Logger) error {
	if err := client.Open(ctx); err != nil {
		return err
	}

	ok, err := client.Set(ctx, "key", "bar")
	if err != nil {
		return err
	}
	logger.Debug().Bool("result", ok).Msg("set `key`")

	value, found, err := client.Get(ctx, "key")
	if err != nil {
		return err
	}
	logger.Debug().Str("value", value).Bool("found", found).Msg("get `key`")

	n, err := client.HSet(ctx, "hkey", "field0", "value0")
	if err != nil {
		return err
	}
	logger.Debug().Int64("result", n).Msg("hset `hkey`")

	if n, err = client.HSet(ctx, "hkey", "field0", "updated value0"); err != nil {
		return err
	}
	logger.Debug().Int64("result", n).Msg("hset `hkey` (update)")

	if value, found, err = client.HGet(ctx, "hkey", "field0"); err != nil {
		return err
	}
	logger.Debug().Str("value", value).Bool("found", found).Msg("hget `hkey`")

	for _, kv := range [][2]string{{"field1", "value1"}, {"field2", "value2"}} {
		if _, err := client.HSet(ctx, "hkey", kv[0], kv[1]); err != nil {
			return err
		}
	}

	all, err := client.HGetAll(ctx, "hkey")
	if err != nil {
		return err
	}
	logger.Debug().Interface("value", all).Msg("hgetall `hkey`")

	if n, err = client.HDel(ctx, "hkey", "field0", "field1", "field2"); err != nil {
		return err
	}
	logger.Debug().Int64("result", n).Msg("hdel `hkey` fields")

	if n, err = client.LPush(ctx, "list", "one", 2, "three", 4, "five"); err != nil {
		return err
	}
	logger.Debug().Int64("result", n).Msg("lpush `list`")

	items, err := client.LRange(ctx, "list", 0, -1)
	if err != nil {
		return err
	}
	logger.Debug().Strs("value", items).Msg("lrange `list`")

	if ok, err = client.LTrim(ctx, "list", 0, 2); err != nil {
		return err
	}
	logger.Debug().Bool("result", ok).Msg("ltrim `list`")

	if items, err = client.LRange(ctx, "list", 0, -1); err != nil {
		return err
	}
	logger.Debug().Strs("value", items).Msg("lrange `list`")

	for _, key := range []string{"key", "hkey", "list"} {
		if n, err = client.Delete(ctx, key); err != nil {
			return err
		}
		logger.Debug().Str("key", key).Int64("result", n).Msg("delete")
	}

	if ok, err = client.Set(ctx, "key", "bar", "PX", 100); err != nil {
		return err
	}
	logger.Debug().Bool("result", ok).Msg("set `key` expiring in 100ms")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(101 * time.Millisecond):
	}

	if value, found, err = client.Get(ctx, "key"); err != nil {
		return err
	}
	logger.Debug().Str("value", value).Bool("found", found).Msg("get expired `key`")

	_, err = client.Delete(ctx, "key")
	return err
}
