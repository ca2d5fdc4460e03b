package server

import (
	"context"
	"fmt"

	"todo-notes/internal/config"
	"todo-notes/internal/database"
	"todo-notes/internal/repositories"
)

// Store is an open todo repository together with the connection behind it.
type Store struct {
	Driver string
	Repo   repositories.TodoRepository

	stats func() map[string]interface{}
	close func(ctx context.Context) error
}

// OpenStore connects the configured driver and brings its schema up to
// date: the collection validator for mongo, the goose migrations for the
// SQL drivers.
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		ms, err := database.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}

		repo := repositories.NewMongoTodoRepository(ms.Database.Collection(cfg.Mongo.Collection))
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = ms.Close(context.Background())
			return nil, err
		}

		return &Store{
			Driver: cfg.Store.Driver,
			Repo:   repo,
			close:  ms.Close,
		}, nil

	case config.StorePostgres, config.StoreSQLite:
		pool, err := database.NewDatabasePool(database.PoolConfigFromConfig(cfg))
		if err != nil {
			return nil, err
		}

		if err := pool.Migrate(ctx); err != nil {
			_ = pool.Close()
			return nil, err
		}

		return &Store{
			Driver: cfg.Store.Driver,
			Repo:   repositories.NewGormTodoRepository(pool.DB),
			stats:  pool.Stats,
			close:  func(context.Context) error { return pool.Close() },
		}, nil
	}

	return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}

func (s *Store) Health() error {
	return s.Repo.Health()
}

func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close(ctx)
}
