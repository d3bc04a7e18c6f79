package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
	llmx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/llm"
	providerx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/provider"
	sessionx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/session"
	bookingdbx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/pkg/bookingdb"
	configx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/pkg/config"
	logx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/pkg/logger"
)

type AppConfig struct {
	BusinessID string `envconfig:"BUSINESS_ID" required:"true"`
	SessionID  string `envconfig:"SESSION_ID"`
	RedisAddr  string `envconfig:"REDIS_ADDR"`
}

func main() {
	logCfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*logCfg)

	appCfg := configx.MustNew[AppConfig]("")
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	dbCfg := configx.MustNew[bookingdbx.Config]("BOOKING_DB")

	sessionID := appCfg.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	var store sessionx.Store
	if appCfg.RedisAddr != "" {
		redisCfg := configx.MustNew[sessionx.RedisConfig]("REDIS")
		redisStore, err := sessionx.NewRedisStore(*redisCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		store = redisStore
	} else {
		store = sessionx.NewMemoryStore()
	}

	db := bookingdbx.NewDB(*dbCfg)
	defer db.Close()

	factory, err := providerx.NewFactory(providerx.Deps{
		Models: *llmCfg,
		Repo:   bookingdbx.NewRepository(db),
		Store:  store,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build provider factory")
	}

	key := providerx.Key{
		Kind:       providerx.KindOpenRouter,
		BusinessID: appCfg.BusinessID,
		SessionID:  sessionID,
	}
	agent, err := factory.Get(key)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build provider")
	}

	log.Info().Str("business_id", appCfg.BusinessID).Str("session_id", sessionID).
		Msg("agent ready, type a message (Ctrl-D to exit)")

	ctx := context.Background()
	var turns []contractx.Turn
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Print("> ")
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			fmt.Print("> ")
			continue
		}
		turns = append(turns, contractx.Turn{Role: contractx.RoleUser, Content: text})

		events, err := agent.StreamResponse(ctx, turns, contractx.ResponseOptions{})
		if err != nil {
			log.Error().Err(err).Msg("stream failed")
			fmt.Print("> ")
			continue
		}

		var reply strings.Builder
		ended := false
		for ev := range events {
			switch ev.Type {
			case contractx.EventChunk:
				fmt.Print(ev.Content)
				reply.WriteString(ev.Content)
			case contractx.EventFeedback:
				if ev.Feedback != nil {
					fmt.Printf("\n[%s] %s\n", ev.Feedback.Type, ev.Feedback.Message)
				}
			case contractx.EventToolStart:
				log.Debug().Str("tool", ev.ToolName).Msg("tool started")
			case contractx.EventToolEnd:
				log.Debug().Str("tool", ev.ToolName).Bool("success", ev.Success).Msg("tool finished")
			case contractx.EventSessionEnd:
				ended = true
			case contractx.EventError:
				fmt.Printf("\n(error: %s)\n", ev.Error)
			}
		}
		fmt.Println()

		if reply.Len() > 0 {
			turns = append(turns, contractx.Turn{Role: contractx.RoleAssistant, Content: reply.String()})
		}
		if ended {
			if err := agent.CloseSession(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to close session")
			}
			factory.Evict(key)
			return
		}
		fmt.Print("> ")
	}
}
