package engine

import (
	"moche.dev/moche/internal/config"
	"moche.dev/moche/internal/document"
	mocheerrors "moche.dev/moche/internal/errors"
)

type visitState int

const (
	unvisited visitState = iota
	inProgress
	done
)

// ComputeActionOrder returns requested and their transitive dependencies, each
// once and after everything it depends on. Requested order and declared
// dependency order are preserved where the graph allows.
func ComputeActionOrder(actions *document.Map[string, *config.Action], requested []string) ([]*config.Action, error) {
	state := make(map[string]visitState)
	var order []*config.Action

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case inProgress:
			return mocheerrors.NewCircularDependencyError("action", name)
		}
		action, ok := actions.Get(name)
		if !ok {
			return mocheerrors.NewNotFoundError("action", name)
		}
		state[name] = inProgress
		for _, dep := range action.Dependency {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = done
		order = append(order, action)
		return nil
	}

	for _, name := range requested {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
