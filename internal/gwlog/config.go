// Package gwlog provides structured logging with per-component level
// filtering and redaction of sensitive fields (audio payloads, bearer
// tokens). It is modeled on the teacher repository's runtime/logger
// package, trimmed to what the gateway needs: no package-level globals,
// so tests can construct independent loggers in the same process.
package gwlog

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// ModuleConfig manages per-component logging configuration. Component
// names use dot notation (e.g. "gateway.session") where more specific
// names override less specific ones.
type ModuleConfig struct {
	mu           sync.RWMutex
	defaultLevel slog.Level
	modules      map[string]slog.Level
	sortedKeys   []string // longest (most specific) first
}

// NewModuleConfig creates a ModuleConfig with the given default level.
func NewModuleConfig(defaultLevel slog.Level) *ModuleConfig {
	return &ModuleConfig{
		defaultLevel: defaultLevel,
		modules:      make(map[string]slog.Level),
	}
}

// SetModuleLevel sets the log level for a specific component.
func (m *ModuleConfig) SetModuleLevel(component string, level slog.Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modules[component] = level
	m.updateSortedKeys()
}

// SetDefaultLevel sets the default log level used when no component
// (or ancestor) has an explicit level configured.
func (m *ModuleConfig) SetDefaultLevel(level slog.Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultLevel = level
}

// LevelFor returns the effective level for the given component, walking
// up the dot-separated hierarchy until a match is found.
func (m *ModuleConfig) LevelFor(component string) slog.Level {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if level, ok := m.modules[component]; ok {
		return level
	}
	for _, key := range m.sortedKeys {
		if strings.HasPrefix(component, key+".") {
			return m.modules[key]
		}
	}
	return m.defaultLevel
}

// updateSortedKeys must be called with mu held.
func (m *ModuleConfig) updateSortedKeys() {
	keys := make([]string, 0, len(m.modules))
	for k := range m.modules {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	m.sortedKeys = keys
}
