package oracle

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/myrjola/casebook/internal/errors"
	"google.golang.org/api/option"
)

// Gemini answers with a single-shot prompt containing the persona and the recent transcript.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGemini(ctx context.Context, apiKey string, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrap(err, "create gemini client")
	}
	m := client.GenerativeModel(model)
	m.SetMaxOutputTokens(MaxTokens)
	return &Gemini{
		client: client,
		model:  m,
	}, nil
}

func (g *Gemini) Close() error {
	if err := g.client.Close(); err != nil {
		return errors.Wrap(err, "close gemini client")
	}
	return nil
}

func (g *Gemini) Reply(ctx context.Context, req Request) (string, error) {
	prompt, err := renderPrompt("transcript", req)
	if err != nil {
		return "", err
	}
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", errors.Wrap(err, "generate content")
	}
	return textFromResponse(resp)
}

// textFromResponse extracts the reply text and maps blocked or empty responses to errors.
func textFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.Wrap(ErrEmptyReply, "nil response")
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", errors.Wrap(ErrBlocked, "prompt blocked")
	}
	if len(resp.Candidates) == 0 {
		return "", errors.Wrap(ErrEmptyReply, "no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", errors.Wrap(ErrBlocked, "candidate blocked")
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.Wrap(ErrEmptyReply, "no content parts")
	}
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	reply := strings.TrimSpace(sb.String())
	if reply == "" {
		return "", errors.Wrap(ErrEmptyReply, "no text parts")
	}
	return reply, nil
}
