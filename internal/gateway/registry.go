package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/data-api-gateway/internal/upstream"
)

// Invocation describes one completed tool call.
type Invocation struct {
	Tool           string          `json:"tool"`
	Args           Args            `json:"args,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	Duration       time.Duration   `json:"duration"`
	UpstreamStatus int             `json:"upstream_status,omitempty"`
	Error          string          `json:"error,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
}

// OK reports whether the call succeeded.
func (i Invocation) OK() bool { return i.Error == "" }

// Observer is told about every invocation after it completes.
type Observer interface {
	Observe(ctx context.Context, inv Invocation)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, inv Invocation)

func (f ObserverFunc) Observe(ctx context.Context, inv Invocation) { f(ctx, inv) }

// ErrUnknownTool is returned by Invoke for names that were never registered.
var ErrUnknownTool = errors.New("unknown tool")

// Registry maps tool names to their definitions.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]Tool
	observers []Observer
}

// NewRegistry returns a registry with the given tools pre-registered.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool. Names are unique.
func (r *Registry) Register(t Tool) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return errors.New("tool name is required")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %q has no handler", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("duplicate tool %q", t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// Observe appends observers notified after each invocation.
func (r *Registry) Observe(obs ...Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range obs {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	if r == nil {
		return Tool{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[strings.TrimSpace(name)]
	return t, ok
}

// All returns every tool sorted by name.
func (r *Registry) All() []Tool {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invoke validates args and runs the named tool.
func (r *Registry) Invoke(ctx context.Context, name string, args Args) (json.RawMessage, error) {
	t, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTool, name)
	}
	if args == nil {
		args = Args{}
	}
	if err := t.validate(args); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := t.Handler(ctx, args)

	inv := Invocation{
		Tool:      t.Name,
		Args:      args,
		StartedAt: start.UTC(),
		Duration:  time.Since(start),
		Result:    result,
	}
	if err != nil {
		inv.Error = err.Error()
		var upErr *upstream.Error
		if errors.As(err, &upErr) {
			inv.UpstreamStatus = upErr.StatusCode
		}
	}
	r.notify(ctx, inv)

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Registry) notify(ctx context.Context, inv Invocation) {
	r.mu.RLock()
	obs := make([]Observer, len(r.observers))
	copy(obs, r.observers)
	r.mu.RUnlock()

	for _, o := range obs {
		o.Observe(ctx, inv)
	}
}
