package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/iamwavecut/reportbot/internal/adapters/llm"
)

const DefaultModel = "gemini-2.5-flash-lite"

type API struct {
	client *genai.Client
	model  string
	params llm.GenerationParameters
}

func NewGemini(ctx context.Context, apiKey, model string, params llm.GenerationParameters) (*API, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &API{client: client, model: model, params: params}, nil
}

func (g *API) Close() error {
	return g.client.Close()
}

// ChatCompletion folds system messages into the system instruction and sends the rest as one turn.
func (g *API) ChatCompletion(ctx context.Context, messages []llm.ChatCompletionMessage) (llm.ChatCompletionResponse, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(g.params.Temperature)
	if g.params.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(g.params.MaxOutputTokens))
	}
	model.SafetySettings = permissiveSafety()

	var system, user []string
	for _, msg := range messages {
		if msg.Role == llm.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		user = append(user, msg.Content)
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(strings.Join(user, "\n\n")))
	if err != nil {
		return llm.ChatCompletionResponse{}, mapError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return llm.ChatCompletionResponse{}, nil
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		fmt.Fprintf(&b, "%v", part)
	}
	log.WithField("object", "Gemini").Trace("completion received")
	return llm.ChatCompletionResponse{
		Choices: []llm.ChatCompletionChoice{{Message: llm.ChatCompletionMessage{Role: llm.RoleAssistant, Content: b.String()}}},
	}, nil
}

func mapError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return &llm.StatusError{StatusCode: apiErr.Code, Err: err}
	}
	return err
}

// Moderation needs to see the abusive text it judges.
func permissiveSafety() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, &genai.SafetySetting{Category: c, Threshold: genai.HarmBlockNone})
	}
	return settings
}
