package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 60 * time.Second

// ErrNoAPIKey is returned when no key is configured.
var ErrNoAPIKey = errors.New("OPENAI_API_KEY is not configured")

// Completer turns a prompt into model text.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// OpenAI is a Completer backed by the OpenAI Responses API.
type OpenAI struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// Option configures an OpenAI completer.
type Option func(*openAIOptions)

type openAIOptions struct {
	baseURL string
	model   string
	timeout time.Duration
}

// WithBaseURL points the client at a different endpoint (used by tests).
func WithBaseURL(url string) Option {
	return func(o *openAIOptions) { o.baseURL = url }
}

// WithModel selects the model.
func WithModel(model string) Option {
	return func(o *openAIOptions) { o.model = model }
}

// WithTimeout bounds every call.
func WithTimeout(d time.Duration) Option {
	return func(o *openAIOptions) { o.timeout = d }
}

// NewOpenAI builds a completer. It fails when apiKey is empty.
func NewOpenAI(apiKey string, opts ...Option) (*OpenAI, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoAPIKey
	}
	o := openAIOptions{model: "gpt-4o-mini", timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(2)}
	if o.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(o.baseURL))
	}
	return &OpenAI{
		client:  openai.NewClient(reqOpts...),
		model:   o.model,
		timeout: o.timeout,
	}, nil
}

// Complete sends prompt as a single user turn and returns the output text.
func (c *OpenAI) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(c.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(prompt),
		},
	}
	if maxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(maxTokens))
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("model call timed out after %s", c.timeout)
		}
		return "", fmt.Errorf("model call: %w", err)
	}
	return strings.TrimSpace(resp.OutputText()), nil
}

// AskJSON completes prompt and decodes the answer as JSON into T.
// Transport errors are returned; malformed output is the Unparseable branch.
func AskJSON[T any](ctx context.Context, c Completer, prompt string, maxTokens int) (Result[T], error) {
	text, err := c.Complete(ctx, prompt, maxTokens)
	if err != nil {
		return Unparseable[T](""), err
	}
	return DecodeJSON[T](text), nil
}
