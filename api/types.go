package api

import "errors"

// ErrNotFound is returned when no todo exists for the requested id.
var ErrNotFound = errors.New("todo not found")

type Todo struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}
