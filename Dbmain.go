package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"todo-api/config"
	"todo-api/service"
	"todo-api/store"
	"todo-api/web"
)

var version = "dev"

var configPath string

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "todo-api",
		Short:         "Task-list HTTP service",
		RunE:          runServe, // default action is serve
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the todos table if it does not exist",
		RunE:  runMigrate,
	})
	return rootCmd
}

// backend is the store plus whatever must be closed on shutdown.
type backend struct {
	store   store.Store
	closers []func() error
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			log.Printf("WARN: close failed: %v", err)
		}
	}
}

func setUpStore(ctx context.Context, cfg *config.Config) (*backend, error) {
	b := &backend{}

	if cfg.DB.Driver == store.DriverMemory {
		b.store = store.NewMemoryStore()
		log.Println("Using in-memory store; data is lost on exit.")
	} else {
		db, err := store.InitDB(ctx, cfg.DB.Driver, cfg.DB.Source)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)

		sqlStore := store.NewSQLStore(db, cfg.DB.Driver)
		if err := sqlStore.Migrate(ctx); err != nil {
			b.Close()
			return nil, err
		}
		log.Println("Database initialized and table created successfully.")
		b.store = sqlStore
	}

	if cfg.Redis.Addr != "" {
		rdb, err := store.InitRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, rdb.Close)
		b.store = store.NewCachedStore(b.store, rdb, cfg.Redis.TTL)
	}

	return b, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := setUpStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("could not initialize store: %w", err)
	}
	defer b.Close()

	gin.SetMode(gin.ReleaseMode)
	server := web.NewServer(service.NewTodoService(b.store), cfg.Server.RequestTimeout)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("todo-api %s listening on %s", version, cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.DB.Driver == store.DriverMemory {
		return fmt.Errorf("nothing to migrate for the %s driver", store.DriverMemory)
	}

	db, err := store.InitDB(cmd.Context(), cfg.DB.Driver, cfg.DB.Source)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.NewSQLStore(db, cfg.DB.Driver).Migrate(cmd.Context()); err != nil {
		return err
	}
	log.Println("todos table is ready.")
	return nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Printf("FATAL: %v", err)
		os.Exit(1)
	}
}
