package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pantrypal/assistant-core/core/assist"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	url = "https://api.groq.com/openai/v1/chat/completions"

	defaultModel = "llama-3.3-70b-versatile"

	defaultInstructions = "You are the voice assistant of a pantry and " +
		"shopping-list app. Answer briefly. When the user asks you to change " +
		"their pantry or shopping list, do not apply the change yourself: " +
		"respond with kind \"confirm_action\", the action name and params, " +
		"and a short confirmation question in confirm_label. Otherwise " +
		"respond with kind \"answer\". Use kind \"error\" only when you " +
		"cannot interpret the request at all."
)

// assistantReply is the JSON-schema-constrained shape the model responds
// with. It is flattened into the tagged assist.Response after decoding.
type assistantReply struct {
	Kind         string            `json:"kind" jsonschema:"enum=answer,enum=confirm_action,enum=error"`
	Text         string            `json:"text"`
	Action       string            `json:"action,omitempty"`
	Params       map[string]string `json:"params,omitempty"`
	ConfirmLabel string            `json:"confirm_label,omitempty"`
}

// Client is a structured-output inference client over the Groq
// chat-completions API.
type Client struct {
	apiKey       string
	model        string
	instructions string

	httpClient *http.Client
}

type ClientOption func(*Client)

func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

func WithInstructions(instructions string) ClientOption {
	return func(c *Client) { c.instructions = instructions }
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		apiKey:       apiKey,
		model:        defaultModel,
		instructions: defaultInstructions,
		httpClient:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Infer sends the utterance plus dialogue history and decodes the schema
// constrained reply into a response variant. Transport and decode failures
// are returned as errors; a reply of kind "error" comes back as a
// well-formed error response instead.
func (c *Client) Infer(ctx context.Context, utterance string, history []assist.Message) (*assist.Response, error) {
	ctx, span := tracer.Start(ctx, "infer assistant response",
		trace.WithAttributes(attribute.Int("history.length", len(history))),
	)
	defer span.End()

	messages := toMessages(c.instructions, history)
	messages = append(messages, message{
		Role:    messageRoleUser,
		Content: utterance,
	})

	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(assistantReply{})

	reqBody := schemaRequestBody{
		Model:    c.model,
		Messages: messages,
		ResponseFormat: &chatResponseFormat{
			Type: "json_schema",
			JSONSchema: &outputJSONSchema{
				Name:   "assistant_reply",
				Schema: *schema,
				Strict: true,
			},
		},
	}

	span.SetAttributes(attribute.String("request.model", c.model))

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		err = fmt.Errorf("error marshalling JSON: %w", err)
		span.RecordError(err)
		span.SetAttributes(attribute.String("error", err.Error()))
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		err = fmt.Errorf("error creating HTTP request: %w", err)
		span.RecordError(err)
		span.SetAttributes(attribute.String("error", err.Error()))
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("error sending request: %w", err)
		span.RecordError(err)
		span.SetAttributes(attribute.String("error", err.Error()))
		return nil, err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		if errorBody, readErr := io.ReadAll(resp.Body); readErr == nil {
			span.SetAttributes(attribute.String("response.error", string(errorBody)))
		}

		err := fmt.Errorf("non-OK HTTP status: %s", resp.Status)
		span.RecordError(err)
		span.SetAttributes(attribute.String("error", err.Error()))
		return nil, err
	}

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("error reading response body: %w", err)
		span.RecordError(err)
		span.SetAttributes(attribute.String("error", err.Error()))
		return nil, err
	}

	var responseBody schemaResponseBody
	if err := json.Unmarshal(respBodyBytes, &responseBody); err != nil {
		err = fmt.Errorf("error unmarshalling response body: %w", err)
		span.RecordError(err)
		span.SetAttributes(attribute.String("error", err.Error()))
		return nil, err
	}
	if len(responseBody.Choices) == 0 {
		err := fmt.Errorf("response contained no choices")
		span.RecordError(err)
		span.SetAttributes(attribute.String("error", err.Error()))
		return nil, err
	}

	content := responseBody.Choices[0].Message.Content
	split := strings.Split(content, "```")
	if len(split) > 1 {
		content = split[1]
	}

	var reply assistantReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		err = fmt.Errorf("error unmarshalling reply: %w", err)
		span.RecordError(err)
		span.SetAttributes(attribute.String("error", err.Error()))
		return nil, err
	}

	response, err := toResponse(reply)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error", err.Error()))
		return nil, err
	}

	span.SetAttributes(attribute.String("response.kind", string(response.Kind())))
	return response, nil
}

func toResponse(reply assistantReply) (*assist.Response, error) {
	switch reply.Kind {
	case string(assist.ResponseAnswer):
		response := assist.NewAnswer(reply.Text)
		return &response, nil

	case string(assist.ResponseConfirmAction):
		if reply.Action == "" {
			return nil, fmt.Errorf("confirm_action reply is missing an action name")
		}

		label := reply.ConfirmLabel
		if label == "" {
			label = reply.Text
		}
		response := assist.NewConfirmAction(reply.Text, assist.ProposedAction{
			Name:         reply.Action,
			Params:       reply.Params,
			ConfirmLabel: label,
		})
		return &response, nil

	case string(assist.ResponseError):
		response := assist.NewErrorResponse(reply.Text)
		return &response, nil
	}

	return nil, fmt.Errorf("unknown reply kind: %q", reply.Kind)
}

type schemaRequestBody struct {
	Model          string              `json:"model"`
	Messages       []message           `json:"messages"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *outputJSONSchema `json:"json_schema,omitempty"`
}

type outputJSONSchema struct {
	Name string `json:"name"`
	// Schema constrains the generated content to the reflected reply
	// shape.
	Schema jsonschema.Schema `json:"schema"`
	Strict bool              `json:"strict"`
}

type schemaResponseBody struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role,omitempty"`
			Content string `json:"content,omitempty"`
		} `json:"message"`
	} `json:"choices"`
}
