package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"todo-api/api"
)

const maxBodySize = 1 << 20 // 1MB

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleList(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()

	todos, err := s.todos.FindAll(ctx)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if todos == nil {
		todos = []api.Todo{}
	}

	c.JSON(http.StatusOK, todos)
}

func (s *Server) handleGet(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()

	todo, err := s.todos.FindByID(ctx, id)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, todo)
}

func (s *Server) handleCreate(c *gin.Context) {
	todo, ok := decodeTodo(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()

	created, err := s.todos.Create(ctx, todo)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, created)
}

func (s *Server) handleUpdate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	todo, ok := decodeTodo(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()

	updated, err := s.todos.Update(ctx, id, todo)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDelete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()

	if err := s.todos.Delete(ctx, id); err != nil {
		s.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// parseID reads the :id path parameter and answers 400 when it is not an integer.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Todo ID"})
		return 0, false
	}
	return id, true
}

// decodeTodo answers 400 unless the body is exactly one JSON object.
func decodeTodo(c *gin.Context) (api.Todo, bool) {
	todo, err := readTodo(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed todo: " + err.Error()})
		return api.Todo{}, false
	}
	return todo, true
}

func readTodo(r io.Reader) (api.Todo, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return api.Todo{}, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return api.Todo{}, errors.New("body must be a JSON object")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	var todo api.Todo
	if err := dec.Decode(&todo); err != nil {
		return api.Todo{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return api.Todo{}, errors.New("unexpected data after JSON object")
	}
	return todo, nil
}

func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, api.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Todo not found"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Request timed out"})
	default:
		log.Printf("ERROR: %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
	}
}
