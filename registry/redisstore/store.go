// Package redisstore provides a relayfsm.Registry that mirrors every
// committed state to a Redis key so a machine can resume after a restart.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/librescoot/relayfsm"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix is prepended to the machine name to form the Redis key
const DefaultPrefix = "relayfsm:state:"

// Codec converts states to and from their stored form
type Codec[S any] interface {
	Encode(state S) ([]byte, error)
	Decode(data []byte) (S, error)
}

// JSONCodec stores states as JSON. S must be a concrete type; interface
// state types need a Codec that knows how to pick the variant.
type JSONCodec[S any] struct{}

func (JSONCodec[S]) Encode(state S) ([]byte, error) { return json.Marshal(state) }

func (JSONCodec[S]) Decode(data []byte) (S, error) {
	var state S
	err := json.Unmarshal(data, &state)
	return state, err
}

type config struct {
	prefix  string
	ttl     time.Duration
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*config)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

// WithTTL sets the expiration of the stored state. Zero keeps it forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.ttl = ttl
	}
}

// WithTimeout bounds each write issued from Set.
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.timeout = timeout
	}
}

// WithLogger sets the logger used to report write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Registry keeps the current state in memory and writes every Set through
// to Redis. Get never touches the network.
type Registry[S any] struct {
	client backend.Cmdable
	closer func() error
	key    string
	codec  Codec[S]
	cfg    config

	mu    sync.RWMutex
	state S
}

var _ relayfsm.Registry[struct{}] = (*Registry[struct{}])(nil)

// New connects to the Redis server at address and stores the state of the
// machine called name.
func New[S any](address, password string, db int, name string, codec Codec[S], opts ...Option) *Registry[S] {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	r := NewFromClient(rdb, name, codec, opts...)
	r.closer = rdb.Close
	return r
}

// NewFromClient creates a registry on an existing client. Close does not
// close a client passed in here.
func NewFromClient[S any](client backend.Cmdable, name string, codec Codec[S], opts ...Option) *Registry[S] {
	cfg := config{
		prefix:  DefaultPrefix,
		timeout: 2 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Registry[S]{
		client: client,
		key:    cfg.prefix + name,
		codec:  codec,
		cfg:    cfg,
	}
}

// Key returns the Redis key the state is stored under.
func (r *Registry[S]) Key() string {
	return r.key
}

// Get implements relayfsm.Registry
func (r *Registry[S]) Get() S {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Set implements relayfsm.Registry. The in-memory value is always updated;
// a failed write is logged and the next Set tries again.
func (r *Registry[S]) Set(state S) {
	r.mu.Lock()
	r.state = state
	r.mu.Unlock()

	if err := r.save(state); err != nil {
		r.cfg.logger.Error("failed to persist state", "key", r.key, "error", err)
	}
}

func (r *Registry[S]) save(state S) error {
	data, err := r.codec.Encode(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.timeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key, data, r.cfg.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load reads the persisted state, making it the registry's current value.
// It returns fallback when nothing has been stored yet. The result is meant
// to be passed to Build as the initial state.
func (r *Registry[S]) Load(ctx context.Context, fallback S) (S, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err == backend.Nil {
		return fallback, nil
	}
	if err != nil {
		return fallback, fmt.Errorf("failed to get from redis: %w", err)
	}

	state, err := r.codec.Decode(data)
	if err != nil {
		return fallback, fmt.Errorf("failed to decode state: %w", err)
	}

	r.mu.Lock()
	r.state = state
	r.mu.Unlock()
	return state, nil
}

// Delete removes the persisted state.
func (r *Registry[S]) Delete(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

// Close releases the connection opened by New.
func (r *Registry[S]) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
