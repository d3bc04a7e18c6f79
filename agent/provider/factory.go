package provider

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
)

// Key identifies one cached provider instance. Comparing the struct directly
// avoids the collision risk of concatenated string keys.
type Key struct {
	Kind       Kind
	BusinessID string
	SessionID  string
}

func (k Key) validate() error {
	if k.Kind == "" || k.BusinessID == "" || k.SessionID == "" {
		return fmt.Errorf("%w: kind, business id and session id are all required", contractx.ErrValidation)
	}
	return nil
}

// Constructor builds a provider for one key.
type Constructor func(deps Deps, key Key) (contractx.Provider, error)

var (
	constructorsMu sync.RWMutex
	constructors   = map[Kind]Constructor{
		KindOpenRouter: newOpenRouterProvider,
	}
)

// Register installs a constructor for a kind, replacing any previous one.
func Register(kind Kind, ctor Constructor) {
	constructorsMu.Lock()
	defer constructorsMu.Unlock()
	constructors[kind] = ctor
}

func constructorFor(kind Kind) (Constructor, bool) {
	constructorsMu.RLock()
	defer constructorsMu.RUnlock()
	ctor, ok := constructors[kind]
	return ctor, ok
}

// Factory hands out providers, building each (kind, business, session)
// instance once and reusing it on later calls.
type Factory struct {
	deps Deps

	mu    sync.Mutex
	cache map[Key]contractx.Provider
}

func NewFactory(deps Deps) (*Factory, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &Factory{
		deps:  deps,
		cache: make(map[Key]contractx.Provider),
	}, nil
}

// Get returns the cached provider for the key, constructing it on first use.
func (f *Factory) Get(key Key) (contractx.Provider, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.cache[key]; ok {
		return p, nil
	}

	ctor, ok := constructorFor(key.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", contractx.ErrUnknownProvider, key.Kind)
	}

	p, err := ctor(f.deps, key)
	if err != nil {
		return nil, err
	}
	f.cache[key] = p

	log.Debug().Str("kind", string(key.Kind)).Str("business_id", key.BusinessID).
		Str("session_id", key.SessionID).Msg("provider instance created")
	return p, nil
}

// Evict drops the cached instance for a key, typically after CloseSession.
func (f *Factory) Evict(key Key) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cache, key)
}
