package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"todo-api/api"
)

const DefaultRequestTimeout = 3 * time.Second

// TodoService is what the handlers need from the service layer.
type TodoService interface {
	FindAll(ctx context.Context) ([]api.Todo, error)
	FindByID(ctx context.Context, id int64) (api.Todo, error)
	Create(ctx context.Context, todo api.Todo) (api.Todo, error)
	Update(ctx context.Context, id int64, todo api.Todo) (api.Todo, error)
	Delete(ctx context.Context, id int64) error
}

// Server exposes a TodoService over HTTP.
type Server struct {
	todos   TodoService
	router  *gin.Engine
	timeout time.Duration
}

// NewServer builds the router. A non-positive timeout means DefaultRequestTimeout.
func NewServer(todos TodoService, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), requestID())

	s := &Server{
		todos:   todos,
		router:  router,
		timeout: timeout,
	}

	router.GET("/healthz", s.handleHealth)

	group := router.Group("/api/todos")
	{
		group.GET("", s.handleList)
		group.POST("", s.handleCreate)
		group.GET("/:id", s.handleGet)
		group.PUT("/:id", s.handleUpdate)
		group.DELETE("/:id", s.handleDelete)
	}

	return s
}

// Handler returns the router for use with an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}
