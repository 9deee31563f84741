package assistant

import (
	"context"

	"github.com/pantrypal/assistant-core/core/audio"
)

// audioInput is the input facade used to normalize microphone behavior
// across capture clients.
type audioInput struct {
	client AudioInput

	// onAudio receives every captured chunk.
	onAudio func(audio []byte)
}

func (a *audioInput) set(client AudioInput) {
	if a != nil {
		a.client = client
	}
}

func (a *audioInput) isConfigured() bool {
	return a != nil && a.client != nil
}

// start begins streaming microphone audio. Stream-driven clients block in
// StartCapture, so it always runs on its own goroutine.
func (a *audioInput) start(ctx context.Context) {
	if !a.isConfigured() {
		return
	}

	go func() {
		if err := a.client.StartCapture(ctx, a.onAudio); err != nil {
			logger.Warn("audio capture stopped", "error", err)
		}
	}()
}

func (a *audioInput) stop() {
	if !a.isConfigured() {
		return
	}

	if stopper, ok := a.client.(interface{ StopCapture() error }); ok {
		if err := stopper.StopCapture(); err != nil {
			logger.Warn("failed to stop audio capture", "error", err)
		}
	}
}

func (a *audioInput) encodingInfo() audio.EncodingInfo {
	if !a.isConfigured() {
		return audio.EncodingInfo{}
	}

	if provider, ok := a.client.(interface{ EncodingInfo() audio.EncodingInfo }); ok {
		return provider.EncodingInfo()
	}
	return audio.EncodingInfo{}
}
