// Package di provides dependency injection container
package di

import (
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ssargent/pvpobserver/pkg/api" //nolint:depguard
	"github.com/ssargent/pvpobserver/pkg/cache"
	"github.com/ssargent/pvpobserver/pkg/config"
	"github.com/ssargent/pvpobserver/pkg/engine"
	"github.com/ssargent/pvpobserver/pkg/loader"
	"github.com/ssargent/pvpobserver/pkg/storage"
)

// Container holds all the dependencies for the application
type Container struct {
	config *config.Config
	logger *zap.Logger

	loader        *loader.Loader
	engine        *engine.Engine
	serverFactory api.ServerFactory

	mu      sync.Mutex
	archive *storage.MatchArchive
	cache   *cache.RedisWriter
}

// NewContainer creates a new dependency injection container. Nothing is
// opened until it is first requested.
func NewContainer(cfg *config.Config, logger *zap.Logger) *Container {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	l := loader.New(loader.Config{
		MaxBytes: cfg.Recovery.MaxUploadBytes,
		Timeout:  cfg.Recovery.FetchTimeout,
		Logger:   logger.Named("loader"),
	})
	return &Container{
		config:        cfg,
		logger:        logger,
		loader:        l,
		engine:        engine.New(engine.Config{Logger: logger.Named("engine"), Loader: l}),
		serverFactory: api.NewServerFactory(logger.Named("api")),
	}
}

// Config returns the configuration the container was built from
func (c *Container) Config() *config.Config {
	return c.config
}

// Loader returns the input loader
func (c *Container) Loader() *loader.Loader {
	return c.loader
}

// Engine returns the recovery engine
func (c *Container) Engine() *engine.Engine {
	return c.engine
}

// Archive opens the match archive on first use.
func (c *Container) Archive() (*storage.MatchArchive, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.archive != nil {
		return c.archive, nil
	}
	a, err := storage.NewMatchArchive(c.config.ArchivePath(), storage.Options{Logger: c.logger.Named("archive")})
	if err != nil {
		return nil, err
	}
	c.archive = a
	return a, nil
}

// Cache returns the Redis writer, or nil when no Redis address is
// configured.
func (c *Container) Cache() *cache.RedisWriter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache != nil || c.config.Redis.Addr == "" {
		return c.cache
	}
	client := redis.NewClient(&redis.Options{
		Addr:     c.config.Redis.Addr,
		Password: c.config.Redis.Password,
		DB:       c.config.Redis.DB,
	})
	c.cache = cache.NewRedisWriter(client, c.config.Redis.Prefix)
	return c.cache
}

// Backends assembles what the API server needs. The archive is only opened
// when archiving is enabled.
func (c *Container) Backends() (api.Backends, error) {
	b := api.Backends{
		Recoverer: c.engine,
		Loader:    c.loader,
	}
	if c.config.Recovery.Archive {
		a, err := c.Archive()
		if err != nil {
			return api.Backends{}, fmt.Errorf("failed to open archive: %w", err)
		}
		b.Archive = a
	}
	// A nil *RedisWriter must stay a nil interface.
	if w := c.Cache(); w != nil {
		b.Cache = w
	}
	return b, nil
}

// ServerConfig derives the API server settings
func (c *Container) ServerConfig() api.ServerConfig {
	return api.ServerConfig{
		Bind:           c.config.Bind,
		Port:           c.config.Port,
		APIKey:         c.config.Security.APIKey,
		AllowedOrigins: c.config.Security.AllowedOrigins,
		MaxUploadBytes: c.config.Recovery.MaxUploadBytes,
	}
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// Close releases whatever was opened
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.archive != nil {
		errs = append(errs, c.archive.Close())
		c.archive = nil
	}
	if c.cache != nil {
		errs = append(errs, c.cache.Close())
		c.cache = nil
	}
	return errors.Join(errs...)
}
