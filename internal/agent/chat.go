package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/notterun/internal/logging"
	"github.com/ppiankov/notterun/internal/provider"
)

// FinalMarker starts the line that carries the agent's answer.
const FinalMarker = "FINAL ANSWER:"

const systemPrompt = `You are a task-completion agent. Work on the user's task step by step.
Each reply is one step. Think briefly, then either continue working or finish.
When you have the answer, reply with a line starting with "` + FinalMarker + `" followed by the answer.`

const continuePrompt = "Continue with the next step. Reply with a line starting with \"" + FinalMarker + "\" once you have the answer."

// ChatAgent drives a chat completion model through a bounded number of
// steps until it produces a final answer.
type ChatAgent struct {
	client   *openai.Client
	model    string
	maxSteps int
}

// NewChat is the default Factory.
func NewChat(opts Options) (Agent, error) {
	return NewChatAgent(opts)
}

// NewChatAgent validates opts and builds a client for the provider endpoint.
func NewChatAgent(opts Options) (*ChatAgent, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, opts.Model)
	}
	if opts.Credential.Empty() {
		return nil, fmt.Errorf("%w: %s is not set", ErrMissingCredential, opts.Credential.Variable)
	}
	if opts.MaxSteps <= 0 {
		return nil, fmt.Errorf("step budget must be positive, got %d", opts.MaxSteps)
	}

	cfg := openai.DefaultConfig(opts.Credential.Key)
	cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	model := opts.APIModel
	if model == "" {
		model = provider.APIModel(opts.Model)
	}
	return &ChatAgent{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		maxSteps: opts.MaxSteps,
	}, nil
}

// Run sends the task and keeps the conversation going until the model
// answers or the step budget is spent. An exhausted budget is not an
// error: the outcome is unsuccessful and carries the last reply.
func (a *ChatAgent) Run(ctx context.Context, task string) (*Outcome, error) {
	log := logging.Component("agent")
	start := time.Now()

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: task},
	}

	var last string
	for step := 1; step <= a.maxSteps; step++ {
		resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    a.model,
			Messages: messages,
		})
		if err != nil {
			return nil, fmt.Errorf("step %d: chat completion: %w", step, err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("step %d: no choices in response", step)
		}

		reply := resp.Choices[0].Message.Content
		log.Debug().Str("model", a.model).Int("step", step).Int("chars", len(reply)).Msg("agent step")

		if answer, ok := ParseFinal(reply); ok {
			return &Outcome{Success: true, Duration: time.Since(start), Answer: answer, Steps: step}, nil
		}
		last = strings.TrimSpace(reply)
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: continuePrompt},
		)
	}

	return &Outcome{Success: false, Duration: time.Since(start), Answer: last, Steps: a.maxSteps}, nil
}

// ParseFinal extracts the answer following FinalMarker. The marker must
// start a line; everything after it, including later lines, is the answer.
func ParseFinal(reply string) (string, bool) {
	lines := strings.Split(reply, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(strings.TrimSpace(line), "*#> ")
		rest, ok := cutPrefixFold(trimmed, FinalMarker)
		if !ok {
			continue
		}
		parts := append([]string{strings.TrimLeft(rest, "* ")}, lines[i+1:]...)
		return strings.TrimSpace(strings.Join(parts, "\n")), true
	}
	return "", false
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}
