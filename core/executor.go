package assistant

import (
	"context"
	"errors"

	"github.com/pantrypal/assistant-core/core/assist"
)

var ErrNoActionExecutor = errors.New("no action executor configured")

// actionRunner is the executor facade used to handle optional client
// wiring.
type actionRunner struct {
	client ActionExecutor
}

func (a *actionRunner) set(client ActionExecutor) {
	if a != nil {
		a.client = client
	}
}

func (a *actionRunner) isConfigured() bool {
	return a != nil && a.client != nil
}

func (a *actionRunner) execute(ctx context.Context, action assist.ProposedAction) error {
	if !a.isConfigured() {
		return ErrNoActionExecutor
	}

	return a.client.Execute(ctx, action)
}
