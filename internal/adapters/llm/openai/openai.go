package openai

import (
	"context"
	"errors"
	"net/http"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/reportbot/internal/adapters/llm"
)

const DefaultModel = "openrouter/auto"

type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	Referer    string
	Title      string
	HTTPClient *http.Client
}

type API struct {
	client     *openai.Client
	model      string
	parameters llm.GenerationParameters
}

func NewOpenAI(opts Options, parameters llm.GenerationParameters) *API {
	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	transport := httpClient.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	config.HTTPClient = &http.Client{
		Transport: &attributionTransport{base: transport, referer: opts.Referer, title: opts.Title},
		Timeout:   httpClient.Timeout,
	}

	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	return &API{
		client:     openai.NewClientWithConfig(config),
		model:      model,
		parameters: parameters,
	}
}

func (o *API) ChatCompletion(ctx context.Context, messages []llm.ChatCompletionMessage) (llm.ChatCompletionResponse, error) {
	openaiMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    openaiMessages,
		Temperature: o.parameters.Temperature,
		MaxTokens:   o.parameters.MaxOutputTokens,
	})
	if err != nil {
		return llm.ChatCompletionResponse{}, mapError(err)
	}

	res := llm.ChatCompletionResponse{}
	for _, choice := range resp.Choices {
		res.Choices = append(res.Choices, llm.ChatCompletionChoice{
			Message: llm.ChatCompletionMessage{
				Role:    choice.Message.Role,
				Content: choice.Message.Content,
			},
		})
	}
	log.WithField("object", "OpenAI").WithField("choices", len(res.Choices)).Trace("completion received")
	return res, nil
}

func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &llm.StatusError{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &llm.StatusError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return err
}

// attributionTransport adds the OpenRouter attribution headers.
type attributionTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.referer == "" && t.title == "" {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	if t.referer != "" {
		req.Header.Set("HTTP-Referer", t.referer)
	}
	if t.title != "" {
		req.Header.Set("X-Title", t.title)
	}
	return t.base.RoundTrip(req)
}
