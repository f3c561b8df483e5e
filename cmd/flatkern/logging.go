package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// SlogManager is a [slog.Handler] fanning records out to a set of named
// handlers, which can be swapped while the kernel runs (the console gives
// way to the monitor and comes back when it exits).
type SlogManager struct {
	sync.RWMutex
	handlers map[string]slog.Handler
	attrs    []slog.Attr
	groups   []string
}

// NewSlogManager returns a pointer to a new, empty [SlogManager].
func NewSlogManager() *SlogManager {
	return &SlogManager{
		handlers: make(map[string]slog.Handler),
	}
}

func (m *SlogManager) Enabled(ctx context.Context, level slog.Level) bool {
	m.RLock()
	defer m.RUnlock()

	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

// Handle passes r to every handler enabled for its level. Handler errors
// are joined; one failing sink does not starve the others.
func (m *SlogManager) Handle(ctx context.Context, r slog.Record) error {
	m.RLock()
	defer m.RUnlock()

	var errs []error

	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}

		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (m *SlogManager) WithAttrs(attrs []slog.Attr) slog.Handler {
	m.RLock()
	defer m.RUnlock()

	derived := m.derive()
	derived.attrs = append(derived.attrs, attrs...)

	for name, h := range m.handlers {
		derived.handlers[name] = h.WithAttrs(attrs)
	}

	return derived
}

func (m *SlogManager) WithGroup(name string) slog.Handler {
	m.RLock()
	defer m.RUnlock()

	derived := m.derive()
	derived.groups = append(derived.groups, name)

	for handlerName, h := range m.handlers {
		derived.handlers[handlerName] = h.WithGroup(name)
	}

	return derived
}

func (m *SlogManager) derive() *SlogManager {
	return &SlogManager{
		handlers: make(map[string]slog.Handler, len(m.handlers)),
		attrs:    append([]slog.Attr(nil), m.attrs...),
		groups:   append([]string(nil), m.groups...),
	}
}

// AddHandler installs handler under name, replacing a previous one. The
// attributes and groups of the manager are applied to it.
func (m *SlogManager) AddHandler(name string, handler slog.Handler) {
	m.Lock()
	defer m.Unlock()

	h := handler
	if len(m.attrs) > 0 {
		h = h.WithAttrs(m.attrs)
	}

	for _, group := range m.groups {
		h = h.WithGroup(group)
	}

	m.handlers[name] = h
}

func (m *SlogManager) RemoveHandler(name string) {
	m.Lock()
	defer m.Unlock()

	delete(m.handlers, name)
}
