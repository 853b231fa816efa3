// Package client performs the single network call of a generation: it
// sends the built prompt to the Gemini generateContent API and returns
// the cleaned candidate script text, classifying every failure into the
// taxonomy the session controller reports to the user.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"google.golang.org/genai"

	"automodel/internal/llm/prompt"
)

// Generator is the narrow interface the session controller depends on,
// so tests can substitute a fake for the remote service.
type Generator interface {
	GenerateCode(ctx context.Context, req prompt.Request) (string, error)
}

type RequestErrorKind int

const (
	KindAuthorization RequestErrorKind = iota + 1
	KindConnection
	KindTransport
	KindResponseParse
	KindResponseEmpty
)

// RequestError is a typed network-half failure with a human-readable
// reason suitable for the transcript.
type RequestError struct {
	Kind   RequestErrorKind
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	switch e.Kind {
	case KindAuthorization:
		return fmt.Sprintf("API error (HTTP %d): %v. Please check your API key and its permissions for the Gemini API.", e.Status, e.Err)
	case KindConnection:
		return "network connection error: could not reach the Gemini API. Please check your internet connection."
	case KindResponseParse:
		return fmt.Sprintf("failed to parse the API response: %v", e.Err)
	case KindResponseEmpty:
		return "no modeling code was generated by the API. Please check the description or the API response structure."
	default:
		return fmt.Sprintf("general network or API error: %v", e.Err)
	}
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

type GeminiOptions struct {
	Model string
}

// GeminiClient talks to the Gemini generateContent endpoint through the
// official SDK. One client is reused across requests.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey string, opts GeminiOptions) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API key is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return &GeminiClient{client: c, model: model}, nil
}

// GenerateCode builds the prompt for the request, performs the network
// call and returns the fence-stripped candidate text.
func (c *GeminiClient) GenerateCode(ctx context.Context, req prompt.Request) (string, error) {
	contents, err := prompt.Build(req)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", classify(err)
	}

	text, err := candidateText(resp)
	if err != nil {
		return "", err
	}
	return StripCodeFence(text), nil
}

// classify maps a transport error onto the failure taxonomy.
func classify(err error) *RequestError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code >= 400 && apiErr.Code < 500 {
			return &RequestError{Kind: KindAuthorization, Status: apiErr.Code, Err: err}
		}
		return &RequestError{Kind: KindTransport, Status: apiErr.Code, Err: err}
	}
	var jsonSyntax *json.SyntaxError
	var jsonType *json.UnmarshalTypeError
	if errors.As(err, &jsonSyntax) || errors.As(err, &jsonType) {
		return &RequestError{Kind: KindResponseParse, Err: err}
	}
	var urlErr *url.Error
	var opErr *net.OpError
	if errors.As(err, &urlErr) || errors.As(err, &opErr) {
		return &RequestError{Kind: KindConnection, Err: err}
	}
	return &RequestError{Kind: KindTransport, Err: err}
}

// candidateText extracts the first candidate's text content.
func candidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", &RequestError{Kind: KindResponseEmpty}
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", &RequestError{Kind: KindResponseEmpty}
	}
	var b strings.Builder
	for _, part := range content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", &RequestError{Kind: KindResponseEmpty}
	}
	return b.String(), nil
}

// StripCodeFence removes a surrounding markdown code fence (with optional
// language tag) and outer whitespace from the candidate text. Text
// without fences is returned trimmed.
func StripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "```") {
		if idx := strings.IndexByte(t, '\n'); idx >= 0 {
			t = t[idx+1:]
		} else {
			t = strings.TrimPrefix(t, "```")
		}
		t = strings.TrimSpace(t)
	}
	if strings.HasSuffix(t, "```") {
		t = strings.TrimSuffix(t, "```")
		t = strings.TrimSpace(t)
	}
	return t
}
