package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/pantrypal/assistant-core/core/audio"
	"github.com/pantrypal/assistant-core/core/speechcapture"
)

// CaptureClient streams microphone audio to the Deepgram live-listen API
// for one utterance at a time. Each StartCapture opens a fresh websocket;
// the session ends after the single final transcript, after StopCapture, or
// when the context is cancelled.
type CaptureClient struct {
	connMu    sync.Mutex
	conn      *websocket.Conn
	lastMsgTs time.Time

	accumulatedTranscript string
	unendedSegment        bool
	finalSent             bool
	closedOnce            sync.Once

	options speechcapture.CaptureOptions
}

func NewCaptureClient() *CaptureClient {
	return &CaptureClient{}
}

func (c *CaptureClient) StartCapture(ctx context.Context, opts ...speechcapture.CaptureOption) error {
	options := speechcapture.CaptureOptions{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range opts {
		opt(&options)
	}

	formatName, sampleRate, err := listenParams(options.EncodingInfo)
	if err != nil {
		return fmt.Errorf("invalid encoding: %w", err)
	}

	conn, err := connectWebsocket(connectionOptions{
		sampleRate: sampleRate,
		encoding:   formatName,

		detectSpeechStart: options.SpeechStartedCallback != nil,
		interimResults:    options.InterimTranscriptionCallback != nil,
	})
	if err != nil {
		return fmt.Errorf("failed to open websocket: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.lastMsgTs = time.Now()
	c.connMu.Unlock()
	c.accumulatedTranscript = ""
	c.unendedSegment = false
	c.finalSent = false
	c.closedOnce = sync.Once{}
	c.options = options

	go func() {
		<-ctx.Done()
		c.closeConn()
	}()
	go c.readAndProcessMessages(ctx, conn)

	return nil
}

type connectionOptions struct {
	sampleRate int
	encoding   string

	detectSpeechStart bool
	interimResults    bool
}

// listenParams validates a capture encoding against what the live-listen
// endpoint accepts and maps it to its query-parameter values. The audio
// package's format names are already the names the endpoint expects.
func listenParams(encoding audio.EncodingInfo) (formatName string, sampleRate int, err error) {
	switch encoding.SampleRate {
	case 8000, 16000, 24000, 32000, 48000:
		sampleRate = encoding.SampleRate
	default:
		return "", 0, fmt.Errorf("unsupported sample rate %d", encoding.SampleRate)
	}

	switch encoding.Format {
	case audio.EncodingLinear16:
	case audio.EncodingALaw, audio.EncodingMulaw:
		if sampleRate != 8000 {
			return "", 0, fmt.Errorf("%s capture requires an 8kHz sample rate", encoding.Format.Name())
		}
	default:
		return "", 0, fmt.Errorf("unsupported encoding %q", encoding.Format.Name())
	}

	return encoding.Format.Name(), sampleRate, nil
}

func connectWebsocket(options connectionOptions) (*websocket.Conn, error) {
	apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
	if !ok {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	listenUrl, _ := url.Parse("wss://api.deepgram.com/v1/listen")
	queryParams := listenUrl.Query()
	queryParams.Set("encoding", options.encoding)
	queryParams.Set("sample_rate", strconv.Itoa(options.sampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", "nova-3")
	queryParams.Set("language", "en-US")
	queryParams.Set("smart_format", "true")
	queryParams.Set("utterance_end_ms", "1000")
	queryParams.Set("interim_results", "true")
	queryParams.Set("endpointing", "300")
	if options.detectSpeechStart {
		queryParams.Set("vad_events", "true")
	}

	listenUrl.RawQuery = queryParams.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(listenUrl.String(),
		http.Header{"Authorization": {"Token " + apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, err
}

func (c *CaptureClient) SendAudio(audio []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("capture session is not open")
	}

	c.lastMsgTs = time.Now()
	if err := c.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

// StopCapture asks Deepgram to flush buffered audio. Remaining transcripts
// arrive before the server closes the stream.
func (c *CaptureClient) StopCapture() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		if err := c.conn.WriteJSON(struct {
			Type string `json:"type"`
		}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
			return fmt.Errorf("failed to flush deepgram buffer through websocket: %w", err)
		}
	}
	return nil
}

func (c *CaptureClient) closeConn() {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *CaptureClient) sendSilence(audio []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return nil
	}

	if err := c.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

func (c *CaptureClient) sendKeepAlive() {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return
	}

	if err := c.conn.WriteJSON(
		struct {
			Type string `json:"type"`
		}{
			Type: "KeepAlive",
		}); err != nil {
		log.Println("Failed to write to deepgram client", "error", err)
	}
}

func (c *CaptureClient) readAndProcessMessages(ctx context.Context, conn *websocket.Conn) {
	silenceCtx, silenceCancel := context.WithCancel(ctx)
	defer silenceCancel()

	go c.generateSilence(silenceCtx, c.options.EncodingInfo)

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if err.Error() != "websocket: close 1000 (normal)" &&
				ctx.Err() == nil && c.options.ErrorCallback != nil && !c.finalSent {
				c.options.ErrorCallback(fmt.Errorf("capture stream failed: %w", err))
			}

			c.closeConn()
			conn.Close()

			// The stream may close while an utterance is still buffered,
			// e.g. an explicit StopCapture before a speech-final event.
			if ctx.Err() == nil {
				c.flushFinal()
			}
			c.invokeClosed()
			return
		}
		if msgType != websocket.BinaryMessage {
			c.processMessage(msg)
		}
	}
}

func (c *CaptureClient) processMessage(msg []byte) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		log.Println("Failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			log.Println("Failed to unmarshal deepgram message", err)
			return
		}

		if len(msgResp.Channel.Alternatives) == 0 {
			return
		}
		transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)

		if msgResp.IsFinal {
			if len(transcript) > 0 {
				c.accumulatedTranscript += " " + transcript
				if c.options.SegmentTranscriptionCallback != nil {
					c.options.SegmentTranscriptionCallback(transcript)
				}
			}
			if msgResp.SpeechFinal {
				c.endUtterance()
			}
		} else if len(transcript) > 0 && c.options.InterimTranscriptionCallback != nil {
			c.options.InterimTranscriptionCallback(transcript)
		}

	case api.TypeUtteranceEndResponse:
		var msgResp api.UtteranceEndResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			log.Println("Failed to unmarshal deepgram message", err)
			return
		}

		if c.unendedSegment {
			c.endUtterance()
		}

	case api.TypeSpeechStartedResponse:
		var msgResp api.SpeechStartedResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			log.Println("Failed to unmarshal deepgram message", err)
			return
		}

		c.unendedSegment = true
		if c.options.SpeechStartedCallback != nil {
			c.options.SpeechStartedCallback()
		}
	}
}

// endUtterance finishes the capture session after the first complete
// utterance: it emits the final transcript and asks the server to close.
func (c *CaptureClient) endUtterance() {
	c.unendedSegment = false
	c.flushFinal()
	if err := c.StopCapture(); err != nil {
		log.Println("Failed to close deepgram stream", err)
	}
}

func (c *CaptureClient) flushFinal() {
	if c.finalSent {
		return
	}

	fullTranscript := strings.TrimSpace(c.accumulatedTranscript)
	c.accumulatedTranscript = ""
	if len(fullTranscript) == 0 {
		return
	}

	c.finalSent = true
	if c.options.TranscriptionCallback != nil {
		c.options.TranscriptionCallback(fullTranscript)
	}
}

func (c *CaptureClient) invokeClosed() {
	c.closedOnce.Do(func() {
		if c.options.ClosedCallback != nil {
			c.options.ClosedCallback()
		}
	})
}

func (c *CaptureClient) generateSilence(ctx context.Context, encoding audio.EncodingInfo) {
	type silenceGeneratorState string
	const (
		silenceGeneratorStateWaiting   silenceGeneratorState = "waiting"
		silenceGeneratorStateSilence   silenceGeneratorState = "silence"
		silenceGeneratorStateKeepAlive silenceGeneratorState = "keepAlive"
	)

	const durationMs = 50
	const millisecondsPerSecond = 1000
	ticker := time.NewTicker(durationMs * time.Millisecond)

	chunk := make([]byte, encoding.SampleRate*encoding.Format.ByteSize()*durationMs/millisecondsPerSecond)
	for i := range chunk {
		chunk[i] = encoding.SilenceValue()
	}

	var state = silenceGeneratorStateWaiting
	var firstSilenceTime time.Time
	var lastKeepAliveTime time.Time
	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			return
		case <-ticker.C:
			c.connMu.Lock()
			sinceLastMsg := time.Since(c.lastMsgTs)
			c.connMu.Unlock()

			switch state {
			case silenceGeneratorStateWaiting:
				if sinceLastMsg.Milliseconds() > 50 {
					state = silenceGeneratorStateSilence
					firstSilenceTime = time.Now()
					continue
				}

			case silenceGeneratorStateSilence:
				if sinceLastMsg.Milliseconds() < 50 {
					state = silenceGeneratorStateWaiting
					continue
				}
				if time.Since(firstSilenceTime).Milliseconds() >= 1000 {
					state = silenceGeneratorStateKeepAlive
					lastKeepAliveTime = time.Now()
					continue
				}

				if err := c.sendSilence(chunk); err != nil {
					log.Println("Sending silence audio error", err)
				}

			case silenceGeneratorStateKeepAlive:
				if sinceLastMsg.Milliseconds() < 50 {
					state = silenceGeneratorStateWaiting
					continue
				}

				if time.Since(lastKeepAliveTime).Seconds() >= 5 {
					lastKeepAliveTime = time.Now()
					c.sendKeepAlive()
				}
			}
		}
	}
}
