package oracle

import (
	"context"
	"strings"

	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/models"
	"github.com/sashabaranov/go-openai"
)

// MaxTokens bounds the length of a suspect reply.
const MaxTokens = 256

var ErrBlocked = errors.NewSentinel("oracle reply blocked by safety filter")

// OpenAI answers with the chat completions API.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey string, model string) *OpenAI {
	return NewOpenAIWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewOpenAIWithConfig allows pointing the client at another base URL, e.g. a local proxy.
func NewOpenAIWithConfig(cfg openai.ClientConfig, model string) *OpenAI {
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (o *OpenAI) Reply(ctx context.Context, req Request) (string, error) {
	system, err := renderPrompt("persona", req)
	if err != nil {
		return "", err
	}
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system}, //nolint:exhaustruct // this is better for readability
	}
	for _, line := range recentHistory(req.History) {
		role := openai.ChatMessageRoleAssistant
		if line.Speaker == models.SpeakerDetective {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: line.Text}) //nolint:exhaustruct
	}
	messages = append(messages, openai.ChatCompletionMessage{ //nolint:exhaustruct // this is better for readability
		Role:    openai.ChatMessageRoleUser,
		Content: req.Question,
	})

	completion, err := o.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:     o.model,
			MaxTokens: MaxTokens,
			Messages:  messages,
		},
	)
	if err != nil {
		return "", errors.Wrap(err, "create chat completion")
	}
	if len(completion.Choices) == 0 {
		return "", errors.Wrap(ErrEmptyReply, "no choices")
	}
	choice := completion.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", errors.Wrap(ErrBlocked, "content filter")
	}
	return strings.TrimSpace(choice.Message.Content), nil
}
