package service

import (
	"context"
	"fmt"

	"todo-api/api"
	"todo-api/store"
)

// TodoService is the only place that knows how an update is applied.
type TodoService struct {
	store store.Store
}

func NewTodoService(s store.Store) *TodoService {
	return &TodoService{store: s}
}

func (s *TodoService) FindAll(ctx context.Context) ([]api.Todo, error) {
	return s.store.FindAll(ctx)
}

func (s *TodoService) FindByID(ctx context.Context, id int64) (api.Todo, error) {
	return s.store.FindByID(ctx, id)
}

// Create persists todo as a new record. Any id on the input is ignored.
func (s *TodoService) Create(ctx context.Context, todo api.Todo) (api.Todo, error) {
	todo.ID = 0
	return s.store.Save(ctx, todo)
}

// Update replaces title and completed on the todo with the given id.
// It returns api.ErrNotFound, and writes nothing, if there is no such todo.
func (s *TodoService) Update(ctx context.Context, id int64, todo api.Todo) (api.Todo, error) {
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		return api.Todo{}, fmt.Errorf("update todo %d: %w", id, err)
	}
	return s.store.Save(ctx, Merge(existing, todo))
}

// Delete removes the todo if it exists.
func (s *TodoService) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteByID(ctx, id)
}

// Merge returns existing with title and completed taken from update.
func Merge(existing, update api.Todo) api.Todo {
	existing.Title = update.Title
	existing.Completed = update.Completed
	return existing
}
