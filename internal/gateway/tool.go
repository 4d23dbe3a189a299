package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParamKind is the JSON type a tool argument binds to.
type ParamKind string

const (
	KindString  ParamKind = "string"
	KindInteger ParamKind = "integer"
	KindNumber  ParamKind = "number"
)

// Param declares one tool argument.
type Param struct {
	Name        string
	Kind        ParamKind
	Required    bool
	Description string
}

// Handler executes a tool against already-bound arguments.
type Handler func(ctx context.Context, args Args) (json.RawMessage, error)

// Tool is a named operation exposed to the calling runtime.
type Tool struct {
	Name        string
	Description string
	Params      []Param
	Handler     Handler
}

// Args holds the raw arguments of one invocation as decoded from JSON.
type Args map[string]any

// String returns the string argument name. Missing arguments yield "".
func (a Args) String(name string) (string, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", name, v)
	}
	return s, nil
}

// Int returns the integer argument name. Integral floats are accepted since
// JSON numbers decode to float64.
func (a Args) Int(name string) (int, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		// float64(math.MaxInt) rounds up to 2^63, which is itself out of range.
		if n != math.Trunc(n) || n < float64(math.MinInt) || n >= float64(math.MaxInt) {
			return 0, fmt.Errorf("argument %q must be an integer, got %v", name, n)
		}
		return int(n), nil
	case json.Number:
		i, err := strconv.Atoi(n.String())
		if err != nil {
			return 0, fmt.Errorf("argument %q must be an integer: %w", name, err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("argument %q must be an integer, got %T", name, v)
	}
}

// Float returns the numeric argument name.
func (a Args) Float(name string) (float64, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("argument %q must be a number: %w", name, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("argument %q must be a number, got %T", name, v)
	}
}

// validate checks required arguments are present and every declared argument
// has the declared kind.
func (t Tool) validate(args Args) error {
	var missing []string
	for _, p := range t.Params {
		v, ok := args[p.Name]
		if !ok || v == nil {
			if p.Required {
				missing = append(missing, p.Name)
			}
			continue
		}
		var err error
		switch p.Kind {
		case KindString:
			_, err = args.String(p.Name)
		case KindInteger:
			_, err = args.Int(p.Name)
		case KindNumber:
			_, err = args.Float(p.Name)
		}
		if err != nil {
			return fmt.Errorf("tool %s: %w", t.Name, err)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("tool %s: missing required arguments: %s", t.Name, strings.Join(missing, ", "))
	}
	return nil
}
