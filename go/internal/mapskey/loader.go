// Package mapskey resolves the maps API key once per process.
package mapskey

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

const EnvKey = "GOOGLE_MAPS_API_KEY"

var ErrEmptyKey = errors.New("maps api key is empty")

type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateReady         State = "ready"
	StateFailed        State = "failed"
)

// Fetcher asks the backend for the key.
type Fetcher interface {
	MapsKey(ctx context.Context) (string, error)
}

// Loader moves Uninitialized -> Loading -> Ready | Failed. Concurrent callers share one
// in-flight load; a failed load may be retried by calling Load again.
type Loader struct {
	lookupEnv func(string) (string, bool)

	mu       sync.Mutex
	state    State
	key      string
	err      error
	inflight chan struct{}
}

func NewLoader() *Loader {
	return &Loader{lookupEnv: os.LookupEnv, state: StateUninitialized}
}

var (
	defaultOnce   sync.Once
	defaultLoader *Loader
)

// Default returns the process-wide loader.
func Default() *Loader {
	defaultOnce.Do(func() {
		defaultLoader = NewLoader()
	})
	return defaultLoader
}

func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Key returns the key if it has been loaded.
func (l *Loader) Key() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.key, l.state == StateReady
}

// Load returns the key, resolving it from the environment or from fetcher on first use.
func (l *Loader) Load(ctx context.Context, fetcher Fetcher) (string, error) {
	l.mu.Lock()
	switch l.state {
	case StateReady:
		key := l.key
		l.mu.Unlock()
		return key, nil
	case StateLoading:
		wait := l.inflight
		l.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.state == StateReady {
			return l.key, nil
		}
		return "", l.err
	}

	l.state = StateLoading
	l.inflight = make(chan struct{})
	done := l.inflight
	l.mu.Unlock()

	key, err := l.resolve(ctx, fetcher)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.state = StateFailed
		l.err = err
		log.Warn().Err(err).Msg("failed to load maps api key")
	} else {
		l.state = StateReady
		l.key = key
		l.err = nil
		log.Debug().Msg("maps api key loaded")
	}
	close(done)
	return key, err
}

func (l *Loader) resolve(ctx context.Context, fetcher Fetcher) (string, error) {
	if v, ok := l.lookupEnv(EnvKey); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), nil
	}
	if fetcher == nil {
		return "", fmt.Errorf("%s not set and no backend configured", EnvKey)
	}
	key, err := fetcher.MapsKey(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch maps api key: %w", err)
	}
	if strings.TrimSpace(key) == "" {
		return "", ErrEmptyKey
	}
	return key, nil
}
