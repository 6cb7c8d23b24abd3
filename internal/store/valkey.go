package store

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyConfig is passed in explicitly by the composition root; the store
// never reads the environment itself.
type ValkeyConfig struct {
	Address  string
	Password string
	UseTLS   bool
	SelectDB int
}

// ValkeyStore is the primary KeyValueStore backend.
type ValkeyStore struct {
	cfg    ValkeyConfig
	mu     sync.Mutex
	client valkey.Client
}

func NewValkeyStore(cfg ValkeyConfig) (*ValkeyStore, error) {
	client, err := dialValkey(cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("[ValkeyStore] Successfully connected to valkey",
		slog.String("address", cfg.Address))
	return &ValkeyStore{cfg: cfg, client: client}, nil
}

func dialValkey(cfg ValkeyConfig) (valkey.Client, error) {
	opts := valkey.ClientOption{
		InitAddress:      []string{cfg.Address},
		Password:         cfg.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         cfg.SelectDB,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyStore] failed to create client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyStore] failed to ping valkey: %w", err)
	}
	return client, nil
}

func (s *ValkeyStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.Close()
}

func (s *ValkeyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res := s.do(ctx, s.client.B().Get().Key(key).Build())
	if err := res.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("[ValkeyStore] GET %s: %w", key, err)
	}
	val, err := res.AsBytes()
	if err != nil {
		return nil, false, fmt.Errorf("[ValkeyStore] GET %s: %w", key, err)
	}
	return val, true, nil
}

func (s *ValkeyStore) Set(ctx context.Context, key string, value []byte) error {
	res := s.do(ctx, s.client.B().Set().Key(key).Value(string(value)).Build())
	if err := res.Error(); err != nil {
		return fmt.Errorf("[ValkeyStore] SET %s: %w", key, err)
	}
	return nil
}

func (s *ValkeyStore) Delete(ctx context.Context, key string) error {
	res := s.do(ctx, s.client.B().Del().Key(key).Build())
	if err := res.Error(); err != nil {
		return fmt.Errorf("[ValkeyStore] DEL %s: %w", key, err)
	}
	return nil
}

func (s *ValkeyStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		res := s.do(ctx, s.client.B().Scan().Cursor(cursor).Match(prefix+"*").Count(200).Build())
		if err := res.Error(); err != nil {
			return nil, fmt.Errorf("[ValkeyStore] SCAN %s*: %w", prefix, err)
		}
		entry, err := res.AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("[ValkeyStore] SCAN %s*: %w", prefix, err)
		}
		keys = append(keys, entry.Elements...)
		cursor = entry.Cursor
		if cursor == 0 {
			return keys, nil
		}
	}
}

// do executes a single command and recreates the client once on a
// connection-level failure.
func (s *ValkeyStore) do(ctx context.Context, cmd valkey.Completed) valkey.ValkeyResult {
	res := s.client.Do(ctx, cmd)
	if isConnectionError(res.Error()) {
		s.recreateClient()
	}
	return res
}

func (s *ValkeyStore) recreateClient() {
	s.mu.Lock()
	defer s.mu.Unlock()

	slog.Warn("[ValkeyStore] Attempting to recreate valkey client...")
	s.client.Close()

	client, err := dialValkey(s.cfg)
	if err != nil {
		slog.Error("[ValkeyStore] Recreate failed",
			slog.String("error", err.Error()))
		return
	}
	slog.Info("[ValkeyStore] Successfully reconnected to valkey")
	s.client = client
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
