package problem

import (
	"context"
	"iter"
	"strings"
	"sync"
	"unicode"

	"sregrade/pkg/errors"
	"sregrade/pkg/utils/logger"

	"go.uber.org/zap"
)

// NoopPrefix starts the id of every "no fault injected" control problem.
const NoopPrefix = "noop_"

// Factory builds a fresh Problem. It must not touch infrastructure.
type Factory func() (*Problem, error)

// Registry maps problem ids to factories, in registration order.
type Registry struct {
	mu        sync.RWMutex
	ids       []string
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under id. Ids are unique.
func (r *Registry) Register(id string, factory Factory) error {
	if id == "" || factory == nil {
		return errors.ValidationError("problem_id", "id and factory are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[id]; ok {
		return errors.Newf(errors.ProblemAlreadyExists, "Problem ID %s is already registered", id).WithDetail("problem_id", id)
	}
	r.ids = append(r.ids, id)
	r.factories[id] = factory
	return nil
}

// MustRegister is Register for static catalogs; it panics on a duplicate id.
func (r *Registry) MustRegister(id string, factory Factory) {
	if err := r.Register(id, factory); err != nil {
		panic(err)
	}
}

// GetProblemInstance builds a fresh Problem for id.
func (r *Registry) GetProblemInstance(id string) (*Problem, error) {
	r.mu.RLock()
	factory, ok := r.factories[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.UnknownProblemError(id)
	}
	p, err := factory()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ProblemCreateFailed, "create problem %s: %v", id, err).WithDetail("problem_id", id)
	}
	return p, nil
}

// GetProblemIDs yields registered ids containing filter, in registration order.
// The sequence can be ranged over any number of times and never calls a factory.
func (r *Registry) GetProblemIDs(filter string) iter.Seq[string] {
	return func(yield func(string) bool) {
		r.mu.RLock()
		ids := append([]string(nil), r.ids...)
		r.mu.RUnlock()
		for _, id := range ids {
			if filter != "" && !strings.Contains(id, filter) {
				continue
			}
			if !yield(id) {
				return
			}
		}
	}
}

// GetProblemCount returns the number of ids matching filter.
func (r *Registry) GetProblemCount(filter string) int {
	n := 0
	for range r.GetProblemIDs(filter) {
		n++
	}
	return n
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[id]
	return ok
}

// GetMatchingNoopID returns the control problem id for app, "noop_<app name in snake case>".
func (r *Registry) GetMatchingNoopID(app Application) (string, bool) {
	if app == nil {
		return "", false
	}
	id := NoopPrefix + SnakeCase(app.AppName())
	if !r.Has(id) {
		logger.Warn(context.Background(), "no matching noop problem",
			zap.String("app_name", app.AppName()), zap.String("noop_id", id))
		return "", false
	}
	return id, true
}

// IsNoop reports whether id names a control problem.
func IsNoop(id string) bool {
	return strings.HasPrefix(id, NoopPrefix)
}

// SnakeCase turns "HotelReservation", "Hotel Reservation" and "hotel-reservation" into "hotel_reservation".
func SnakeCase(name string) string {
	var b strings.Builder
	runes := []rune(strings.TrimSpace(name))
	for i, r := range runes {
		switch {
		case r == ' ' || r == '-' || r == '_' || r == '.':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
		case unicode.IsUpper(r):
			if i > 0 && b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
