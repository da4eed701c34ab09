package pipeline

import "fmt"

// Registry holds every known Step by its StepID.
type Registry struct {
	steps map[string]Step
}

// NewRegistry builds a Registry from a set of steps. Duplicate step ids
// are a configuration error.
func NewRegistry(steps ...Step) (*Registry, error) {
	reg := &Registry{steps: make(map[string]Step, len(steps))}
	for _, s := range steps {
		if _, exists := reg.steps[s.StepID()]; exists {
			return nil, fmt.Errorf("pipeline: duplicate step id %q", s.StepID())
		}
		reg.steps[s.StepID()] = s
	}
	return reg, nil
}

// Get returns a registered step by id.
func (r *Registry) Get(id string) (Step, bool) {
	s, ok := r.steps[id]
	return s, ok
}

// Resolve computes the dependency closure of the requested step ids and
// returns them in a valid topological execution order (dependencies
// before dependents). A step_id in requested that isn't registered, or a
// declared dependency that isn't registered, is a configuration error
// detected here rather than at run time.
func Resolve(reg *Registry, requested []string) ([]Step, error) {
	closure := make(map[string]bool, len(requested))
	for _, id := range requested {
		if _, ok := reg.Get(id); !ok {
			return nil, fmt.Errorf("pipeline: requested step %q is not registered", id)
		}
		closure[id] = true
	}

	// Repeat until stable: each pass can discover deps-of-deps.
	for {
		added := false
		for id := range closure {
			step, _ := reg.Get(id)
			for _, dep := range step.DependsOn() {
				depStep, ok := reg.Get(dep)
				if !ok {
					return nil, fmt.Errorf("pipeline: step %q depends on unregistered step %q", id, dep)
				}
				if !closure[dep] {
					closure[dep] = true
					added = true
				}
				_ = depStep
			}
		}
		if !added {
			break
		}
	}

	visited := make(map[string]bool, len(closure))
	inStack := make(map[string]bool, len(closure))
	var order []Step

	var visit func(id string) error
	visit = func(id string) error {
		if visited[id] {
			return nil
		}
		if inStack[id] {
			return fmt.Errorf("pipeline: dependency cycle detected at step %q", id)
		}
		inStack[id] = true
		step, _ := reg.Get(id)
		for _, dep := range step.DependsOn() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		inStack[id] = false
		visited[id] = true
		order = append(order, step)
		return nil
	}

	// Visit in a deterministic order (the caller's requested order first,
	// then whatever the closure pulled in) so results are stable run to
	// run given the same request.
	var ids []string
	seen := make(map[string]bool)
	for _, id := range requested {
		ids = append(ids, id)
		seen[id] = true
	}
	for id := range closure {
		if !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}

	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}
