package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
	openrouterx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/pkg/openrouter"
)

// OpenAIModel implements contract.ChatModel over the OpenAI-compatible
// completion endpoint (OpenRouter in production).
type OpenAIModel struct {
	client      *openaisdk.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIModel builds a role-bound chat model from the resolved config.
func NewOpenAIModel(cfg openrouterx.Config) (*OpenAIModel, error) {
	client := openrouterx.NewClient(cfg)
	if client == nil {
		return nil, fmt.Errorf("%w: openrouter client requires an api key", contractx.ErrValidation)
	}
	return &OpenAIModel{
		client:      client,
		model:       strings.TrimSpace(cfg.Model),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxCompletionToken,
	}, nil
}

func (m *OpenAIModel) Complete(ctx context.Context, messages []contractx.Message, tools []contractx.ToolDefinition) (*contractx.ModelReply, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model:       m.model,
		Messages:    toParams(messages),
		Temperature: openaisdk.Float(float64(m.temperature)),
	}
	if m.maxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(int64(m.maxTokens))
	}
	if len(tools) > 0 {
		params.Tools = toToolParams(tools)
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: completion returned no choices", contractx.ErrModelInvoke)
	}

	choice := resp.Choices[0].Message
	reply := &contractx.ModelReply{Content: choice.Content}

	for _, call := range choice.ToolCalls {
		name := strings.TrimSpace(call.Function.Name)
		if name == "" {
			continue
		}
		args := map[string]any{}
		if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, name, err)
			}
		}
		reply.ToolCalls = append(reply.ToolCalls, contractx.ToolCall{
			ID:   call.ID,
			Name: name,
			Args: args,
		})
	}

	return reply, nil
}

func toParams(messages []contractx.Message) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case contractx.RoleSystem:
			out = append(out, openaisdk.SystemMessage(msg.Content))
		case contractx.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, openaisdk.AssistantMessage(msg.Content))
				continue
			}
			assistant := openaisdk.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				assistant.Content.OfString = openaisdk.String(msg.Content)
			}
			for _, call := range msg.ToolCalls {
				rawArgs, err := json.Marshal(call.Args)
				if err != nil {
					rawArgs = []byte("{}")
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openaisdk.ChatCompletionMessageToolCallParam{
					ID: call.ID,
					Function: openaisdk.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: string(rawArgs),
					},
				})
			}
			out = append(out, openaisdk.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case contractx.RoleTool:
			out = append(out, openaisdk.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			out = append(out, openaisdk.UserMessage(msg.Content))
		}
	}
	return out
}

func toToolParams(tools []contractx.ToolDefinition) []openaisdk.ChatCompletionToolParam {
	out := make([]openaisdk.ChatCompletionToolParam, 0, len(tools))
	for _, def := range tools {
		out = append(out, openaisdk.ChatCompletionToolParam{
			Function: openaisdk.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openaisdk.String(def.Description),
				Parameters:  openaisdk.FunctionParameters(def.Parameters),
			},
		})
	}
	return out
}
