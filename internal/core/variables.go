// Package core holds the small abstractions shared across the oracle:
// clocks, scenario variables and test helpers.
package core

import "context"

// Variables provides named values for payload templates.
type Variables interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MapVariables is a simple map-based Variables implementation.
type MapVariables struct {
	data map[string]any
}

func NewVariables() *MapVariables {
	return &MapVariables{data: make(map[string]any)}
}

// VariablesFrom copies m into a new MapVariables.
func VariablesFrom(m map[string]string) *MapVariables {
	v := NewVariables()
	for k, val := range m {
		v.Set(k, val)
	}
	return v
}

func (v *MapVariables) Get(key string) (any, bool) {
	val, ok := v.data[key]
	return val, ok
}

func (v *MapVariables) Set(key string, value any) {
	v.data[key] = value
}

type contextKey string

const runIDContextKey contextKey = "runID"

func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDContextKey, runID)
}

func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDContextKey).(string); ok {
		return id
	}
	return ""
}
