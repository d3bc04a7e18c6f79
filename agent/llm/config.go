package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
	openrouterx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/pkg/openrouter"
)

// ModelRole selects which model a call goes to. The agent model drives the
// tool loop; the router and feedback models are small and cheap.
type ModelRole string

const (
	RoleAgent    ModelRole = "agent"
	RoleRouter   ModelRole = "router"
	RoleFeedback ModelRole = "feedback"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	RouterModel         string  `envconfig:"ROUTER_MODEL" split_words:"true"`
	FeedbackModel       string  `envconfig:"FEEDBACK_MODEL" split_words:"true"`
	RouterTemperature   float32 `envconfig:"ROUTER_TEMPERATURE" split_words:"true" default:"-1"`
	FeedbackTemperature float32 `envconfig:"FEEDBACK_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterFor resolves the client config for a role, falling back to the
// default model/temperature when no role override is set.
func (c Config) OpenRouterFor(role ModelRole) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature
	maxTokens := c.MaxCompletionToken

	switch role {
	case RoleRouter:
		if v := strings.TrimSpace(c.RouterModel); v != "" {
			modelName = v
		}
		if c.RouterTemperature >= 0 {
			temp = c.RouterTemperature
		}
		// Classification needs a strict, tiny reply.
		maxTokens = 200
	case RoleFeedback:
		if v := strings.TrimSpace(c.FeedbackModel); v != "" {
			modelName = v
		}
		if c.FeedbackTemperature >= 0 {
			temp = c.FeedbackTemperature
		}
		maxTokens = 100
	}

	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: maxTokens,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
