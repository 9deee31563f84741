// Package portaudio provides an alternative microphone capture client for
// platforms where the miniaudio backend misbehaves.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gordonklaus/portaudio"
	"github.com/pantrypal/assistant-core/core/audio"
)

type Client struct {
	bufferSize int
	stream     *portaudio.Stream

	in []int16
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, audio.DefaultSampleRate, bufferSize, in)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}

	return &Client{
		bufferSize: bufferSize,
		stream:     stream,
		in:         in,
	}, nil
}

// StartCapture reads microphone frames until the context is cancelled.
// It blocks; run it on its own goroutine.
func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start portaudio stream: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return c.stream.Stop()
		default:
			if err := c.stream.Read(); err != nil {
				return fmt.Errorf("failed to read from portaudio stream: %w", err)
			}

			audioBuffer := bytes.Buffer{}
			binary.Write(&audioBuffer, binary.LittleEndian, c.in)
			onAudio(audioBuffer.Bytes())
		}
	}
}

func (c *Client) Close() {
	c.stream.Close()
	portaudio.Terminate()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}
