package store

import (
	"context"
	"sort"
	"sync"

	"todo-api/api"
)

// MemoryStore is a process-local Store. Nothing survives a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	todos  map[int64]api.Todo
	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{todos: make(map[int64]api.Todo)}
}

func (m *MemoryStore) FindAll(ctx context.Context) ([]api.Todo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	todos := make([]api.Todo, 0, len(m.todos))
	for _, t := range m.todos {
		todos = append(todos, t)
	}
	sort.Slice(todos, func(i, j int) bool { return todos[i].ID < todos[j].ID })
	return todos, nil
}

func (m *MemoryStore) FindByID(ctx context.Context, id int64) (api.Todo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.todos[id]
	if !ok {
		return api.Todo{}, api.ErrNotFound
	}
	return t, nil
}

func (m *MemoryStore) Save(ctx context.Context, todo api.Todo) (api.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if todo.ID == 0 {
		m.nextID++
		todo.ID = m.nextID
	} else if todo.ID > m.nextID {
		m.nextID = todo.ID
	}
	m.todos[todo.ID] = todo
	return todo, nil
}

func (m *MemoryStore) DeleteByID(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.todos, id)
	return nil
}
