package assistant

import (
	"context"
	"errors"

	"github.com/pantrypal/assistant-core/core/assist"
)

var ErrNoInferenceClient = errors.New("no inference client configured")

// inferenceRunner is the inference facade used to handle optional client
// wiring.
type inferenceRunner struct {
	client InferenceClient
}

func (i *inferenceRunner) set(client InferenceClient) {
	if i != nil {
		i.client = client
	}
}

func (i *inferenceRunner) isConfigured() bool {
	return i != nil && i.client != nil
}

func (i *inferenceRunner) infer(ctx context.Context, utterance string, history []assist.Message) (*assist.Response, error) {
	if !i.isConfigured() {
		return nil, ErrNoInferenceClient
	}

	return i.client.Infer(ctx, utterance, history)
}
