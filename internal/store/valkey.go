package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyKV keeps values in a Valkey/Redis server under a key prefix.
type ValkeyKV struct {
	client valkey.Client
	prefix string
}

// NewValkeyKV wraps an existing client.
func NewValkeyKV(client valkey.Client, prefix string) *ValkeyKV {
	if prefix == "" {
		prefix = "voicept"
	}
	return &ValkeyKV{client: client, prefix: prefix}
}

// DialValkey connects to addr (host:port or a redis:// URL) and pings it.
func DialValkey(ctx context.Context, addr string) (valkey.Client, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(addr, "://") {
		opt, err = valkey.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse valkey url: %w", err)
		}
	} else {
		opt = valkey.ClientOption{InitAddress: []string{addr}}
	}

	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping: %w", err)
	}
	return client, nil
}

func (v *ValkeyKV) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := v.client.Do(ctx, v.client.B().Get().Key(v.key(key)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []byte(payload), nil
}

func (v *ValkeyKV) Set(ctx context.Context, key string, value []byte) error {
	return v.client.Do(ctx, v.client.B().Set().Key(v.key(key)).Value(string(value)).Build()).Error()
}

func (v *ValkeyKV) Remove(ctx context.Context, key string) error {
	return v.client.Do(ctx, v.client.B().Del().Key(v.key(key)).Build()).Error()
}

func (v *ValkeyKV) Close() error {
	v.client.Close()
	return nil
}

func (v *ValkeyKV) key(k string) string {
	return v.prefix + ":" + k
}
