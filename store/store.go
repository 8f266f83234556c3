package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/redis/go-redis/v9"

	"todo-api/api"
)

// Store is the durable record keeper for todos.
type Store interface {
	FindAll(ctx context.Context) ([]api.Todo, error)
	// FindByID returns api.ErrNotFound when the id is unknown.
	FindByID(ctx context.Context, id int64) (api.Todo, error)
	// Save inserts when todo.ID is zero and upserts otherwise.
	Save(ctx context.Context, todo api.Todo) (api.Todo, error)
	// DeleteByID does not report an error for unknown ids.
	DeleteByID(ctx context.Context, id int64) error
}

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
	DriverMemory   = "memory"
)

// InitDB opens and pings a database for one of the SQL drivers.
func InitDB(ctx context.Context, driver, source string) (*sql.DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if source == "" {
		return nil, fmt.Errorf("DB_SOURCE is not set for driver %q", driver)
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == DriverSQLite {
		// sqlite allows one writer at a time
		db.SetMaxOpenConns(1)
	}

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Printf("Database connection successful (%s).", driver)
	return db, nil
}

// InitRedis builds a client for addr and checks that the server answers.
func InitRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis at %s: %w", addr, err)
	}
	log.Println("Redis connection successful.")

	return rdb, nil
}
