package config

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Source is the live configuration handle the rest of the process
// reads through. Reload swaps in a freshly loaded, freshly validated
// Config atomically — readers never observe a partially-updated
// document, and never block on a writer.
type Source struct {
	path string
	cur  atomic.Pointer[Config]
	log  zerolog.Logger
}

// NewSource loads path once and returns a Source backed by it.
func NewSource(path string, log zerolog.Logger) (*Source, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Source{path: path, log: log}
	s.cur.Store(c)
	return s, nil
}

// Current returns the presently active configuration.
func (s *Source) Current() *Config {
	return s.cur.Load()
}

// Reload re-reads and re-validates the backing file and, only on
// success, swaps it in. A bad edit to the file on disk never takes a
// running process down — the prior, known-good Config keeps serving
// until Reload succeeds.
func (s *Source) Reload() error {
	c, err := Load(s.path)
	if err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("config reload failed, keeping prior config")
		return err
	}
	s.cur.Store(c)
	s.log.Info().Str("path", s.path).Msg("config reloaded")
	return nil
}
