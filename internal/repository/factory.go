// Package repository provides data access layer for Digital Galaxy.
// This file contains the driver registry used to open repositories from configuration.
package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/prn-tf/digital-galaxy/internal/config"
)

// Repositories holds all repository instances.
type Repositories struct {
	User           UserRepository
	Product        ProductRepository
	PaymentRequest PaymentRequestRepository
	Chat           ChatRepository
	Notification   NotificationRepository
}

// DatabaseHealth is an interface for database health checks.
// This interface satisfies handler.DatabaseChecker for health endpoints.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error
}

// Store is an opened database together with its repositories.
type Store struct {
	Repos    *Repositories
	Database DatabaseHealth

	// Migrate applies the embedded schema.
	Migrate func(ctx context.Context) error

	// Version reports the applied schema version.
	Version func(ctx context.Context) (int, error)
}

// OpenFunc opens a store for one driver.
type OpenFunc func(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*Store, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]OpenFunc)
)

// Register makes a database driver available by name.
// It is called from the init function of each driver package.
func Register(name string, open OpenFunc) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if _, dup := drivers[name]; dup {
		panic("repository: Register called twice for driver " + name)
	}
	drivers[name] = open
}

// Drivers returns the names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Factory creates repositories based on configuration.
type Factory struct {
	cfg    config.DatabaseConfig
	logger zerolog.Logger
}

// NewFactory creates a new repository factory.
func NewFactory(cfg config.DatabaseConfig, logger zerolog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// Driver returns the configured database driver.
func (f *Factory) Driver() string {
	return f.cfg.Driver
}

// IsEmbedded returns true if using embedded database.
func (f *Factory) IsEmbedded() bool {
	return f.cfg.IsEmbedded()
}

// Open opens the configured driver.
func (f *Factory) Open(ctx context.Context) (*Store, error) {
	driversMu.RLock()
	open, ok := drivers[f.cfg.Driver]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown database driver %q (registered: %v)", f.cfg.Driver, Drivers())
	}

	store, err := open(ctx, f.cfg, f.logger)
	if err != nil {
		return nil, err
	}

	if f.cfg.AutoMigrate && store.Migrate != nil {
		if err := store.Migrate(ctx); err != nil {
			store.Database.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return store, nil
}
