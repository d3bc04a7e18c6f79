// Package router classifies the latest user utterance into one of the fixed
// conversation intents.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
)

const (
	classifyTimeout     = 10 * time.Second
	fallbackConfidence  = 0.3
	historyWindowTurns  = 4
	maxUtteranceLogSize = 50
)

var fencedJSONPattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// Router wraps a small classification model. It has no side effects and
// never propagates a failure: anything that goes wrong degrades to GENERAL.
type Router struct {
	model        contractx.ChatModel
	systemPrompt string
}

func New(model contractx.ChatModel, systemPrompt string) (*Router, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: router model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, contractx.ErrPromptMissing
	}
	return &Router{model: model, systemPrompt: systemPrompt}, nil
}

// Classify returns the intent for the latest utterance given a short summary
// of the recent turns. The zero-value fallback is {GENERAL, 0.3}.
func (r *Router) Classify(ctx context.Context, utterance, historySummary string) contractx.IntentResult {
	fallback := contractx.IntentResult{
		Intent:     contractx.IntentGeneral,
		Confidence: fallbackConfidence,
	}
	if strings.TrimSpace(utterance) == "" {
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	prompt := "Mensaje del cliente: " + utterance
	if strings.TrimSpace(historySummary) != "" {
		prompt = "Contexto reciente:\n" + historySummary + "\n\n" + prompt
	}

	start := time.Now()
	reply, err := r.model.Complete(ctx, []contractx.Message{
		{Role: contractx.RoleSystem, Content: r.systemPrompt},
		{Role: contractx.RoleUser, Content: prompt},
	}, nil)
	if err != nil {
		log.Warn().Err(err).Str("utterance", truncate(utterance, maxUtteranceLogSize)).
			Msg("intent classification failed, defaulting to GENERAL")
		return fallback
	}

	result, err := parseResult(reply.Content)
	if err != nil {
		log.Warn().Err(err).Str("content", truncate(reply.Content, 120)).
			Msg("unparseable classifier output, defaulting to GENERAL")
		return fallback
	}

	log.Debug().
		Str("intent", string(result.Intent)).
		Float64("confidence", result.Confidence).
		Dur("latency", time.Since(start)).
		Msg("intent classified")
	return result
}

func parseResult(content string) (contractx.IntentResult, error) {
	content = strings.TrimSpace(content)
	if matches := fencedJSONPattern.FindStringSubmatch(content); len(matches) > 1 {
		content = matches[1]
	}

	var raw struct {
		Intent        string            `json:"intent"`
		Confidence    float64           `json:"confidence"`
		ExtractedInfo map[string]string `json:"extracted_info"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return contractx.IntentResult{}, fmt.Errorf("%w: %v", contractx.ErrSchemaViolation, err)
	}

	confidence := raw.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = fallbackConfidence
	}

	return contractx.IntentResult{
		Intent:        contractx.ParseIntent(raw.Intent),
		Confidence:    confidence,
		ExtractedInfo: raw.ExtractedInfo,
	}, nil
}

// SummarizeHistory renders the last few turns as the short textual context
// the classifier prompt expects.
func SummarizeHistory(turns []contractx.Turn) string {
	if len(turns) == 0 {
		return ""
	}

	start := len(turns) - 1 - historyWindowTurns
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	for _, turn := range turns[start : len(turns)-1] {
		switch turn.Role {
		case contractx.RoleUser:
			fmt.Fprintf(&b, "cliente: %s\n", truncate(turn.Content, 120))
		case contractx.RoleAssistant:
			fmt.Fprintf(&b, "asistente: %s\n", truncate(turn.Content, 120))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
