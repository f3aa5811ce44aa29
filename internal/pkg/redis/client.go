// Package redis 封装 go-redis 客户端，提供带超时的 KV 读写。
package redis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"orderflow/internal/pkg/errs"
)

// Client 对 go-redis UniversalClient 的薄封装，单地址时是普通客户端，多地址时是集群客户端。
type Client struct {
	client goredis.UniversalClient
}

// NewClient addrs 为逗号分隔的地址列表。
// 这里不做连通性检查：主存储不可用时服务仍需以降级模式启动。
func NewClient(addrs string) (*Client, error) {
	list := make([]string, 0)
	for _, a := range strings.Split(addrs, ",") {
		if a = strings.TrimSpace(a); a != "" {
			list = append(list, a)
		}
	}
	if len(list) == 0 {
		return nil, errors.New("redis: no address configured")
	}
	return NewClientWithOptions(&goredis.UniversalOptions{
		Addrs:        list,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		// 让每次调用都受 ctx deadline 约束，超时后立即返回而不是等待网络
		ContextTimeoutEnabled: true,
		MaxRetries:            1,
	}), nil
}

func NewClientWithOptions(opts *goredis.UniversalOptions) *Client {
	return &Client{client: goredis.NewUniversalClient(opts)}
}

// SetNX 仅在 key 不存在时写入，返回是否写入成功。
func (c *Client) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, errors.Wrapf(errs.ErrTransientStore, "setnx %s: %v", key, err)
	}
	return ok, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return errors.Wrapf(errs.ErrTransientStore, "ping: %v", err)
	}
	return nil
}

// Set 写入 key，ttl 为 0 表示不过期。
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.Wrapf(errs.ErrTransientStore, "set %s: %v", key, err)
	}
	return nil
}

// Get 读取 key，不存在时返回 errs.ErrNotFound。
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, errors.Wrapf(errs.ErrNotFound, "key %s", key)
		}
		return nil, errors.Wrapf(errs.ErrTransientStore, "get %s: %v", key, err)
	}
	return val, nil
}

// SetJSON 以 JSON 序列化 v 后写入。
func (c *Client) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshal value for %s", key)
	}
	return c.Set(ctx, key, data, ttl)
}

// GetJSON 读取并反序列化到 v。
func (c *Client) GetJSON(ctx context.Context, key string, v any) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "unmarshal value for %s", key)
	}
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
