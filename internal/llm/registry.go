package llm

import (
	"context"
	"fmt"

	"gora/internal/logging"

	"go.uber.org/zap"
)

// Registry is the set of model ids available for the current credential and
// the single selected one.
type Registry struct {
	models   []string
	selected string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Refresh re-enumerates models from the client. The preferred id is selected
// when listed, otherwise the first enumerated model. On failure the registry
// is emptied so no turn can be dispatched against a stale list.
func (r *Registry) Refresh(ctx context.Context, client Client, preferred string) error {
	r.models = nil
	r.selected = ""

	models, err := client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("refresh models: %w", err)
	}
	if len(models) == 0 {
		return ErrNoModels
	}

	r.models = models
	r.selected = models[0]
	if preferred != "" {
		if err := r.Select(preferred); err != nil {
			logging.Get(logging.CategoryAPI).Warn("preferred model not available",
				zap.String("model", preferred), zap.String("fallback", r.selected))
		}
	}
	return nil
}

// Select makes id the current model. Both "models/x" and "x" are accepted.
func (r *Registry) Select(id string) error {
	for _, m := range r.models {
		if m == id || m == "models/"+id {
			r.selected = m
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownModel, id)
}

// Selected returns the current model id, or "" when none.
func (r *Registry) Selected() string {
	return r.selected
}

// Models returns a copy of the enumerated ids.
func (r *Registry) Models() []string {
	out := make([]string, len(r.models))
	copy(out, r.models)
	return out
}

// Clear forgets the enumerated models, e.g. after the credential is dropped.
func (r *Registry) Clear() {
	r.models = nil
	r.selected = ""
}
