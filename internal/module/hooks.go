// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package module

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/olegiv/newsroom/internal/model"
)

// Hook names fired by the core services.
const (
	HookArticleAfterSave    = model.HookArticleAfterSave
	HookArticleAfterDelete  = model.HookArticleAfterDelete
	HookArticleBeforeRender = model.HookArticleBeforeRender
	HookSectionAfterSave    = model.HookSectionAfterSave
)

// HookFunc handles one hook call. It receives the current data and returns
// the data passed to the next handler. Returning an error stops the chain.
type HookFunc func(ctx context.Context, data any) (any, error)

// HookHandler wraps a HookFunc with metadata.
type HookHandler struct {
	Name     string   // for logs
	Module   string   // owning module; handlers of inactive modules are skipped
	Priority int      // lower runs first
	Fn       HookFunc // the handler
}

// IsModuleActiveFunc reports whether a module is active.
type IsModuleActiveFunc func(moduleName string) bool

// HookRegistry is a publish/subscribe registry of named hooks. It is safe
// for concurrent use and satisfies service.Hooks.
type HookRegistry struct {
	hooks          map[string][]HookHandler
	logger         *slog.Logger
	isModuleActive IsModuleActiveFunc
	mu             sync.RWMutex
}

// NewHookRegistry creates a new hook registry. All modules count as active
// until SetIsModuleActive is called.
func NewHookRegistry(logger *slog.Logger) *HookRegistry {
	return &HookRegistry{
		hooks:          make(map[string][]HookHandler),
		logger:         logger,
		isModuleActive: func(string) bool { return true },
	}
}

// SetIsModuleActive sets the callback used to skip inactive modules.
func (h *HookRegistry) SetIsModuleActive(fn IsModuleActiveFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isModuleActive = fn
}

// Register adds a handler. Handlers with equal priority run in
// registration order.
func (h *HookRegistry) Register(hookName string, handler HookHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()

	handlers := append(h.hooks[hookName], handler)
	sort.SliceStable(handlers, func(i, j int) bool { return handlers[i].Priority < handlers[j].Priority })
	h.hooks[hookName] = handlers

	h.logger.Debug("hook registered",
		"hook", hookName,
		"handler", handler.Name,
		"module", handler.Module,
		"priority", handler.Priority,
	)
}

// RegisterFunc registers fn with priority 0.
func (h *HookRegistry) RegisterFunc(hookName, handlerName, moduleName string, fn HookFunc) {
	h.Register(hookName, HookHandler{Name: handlerName, Module: moduleName, Fn: fn})
}

// Call runs the handlers of hookName in priority order, threading data
// through them. It stops at the first error.
func (h *HookRegistry) Call(ctx context.Context, hookName string, data any) (any, error) {
	h.mu.RLock()
	handlers := h.hooks[hookName]
	isModuleActive := h.isModuleActive
	h.mu.RUnlock()

	if len(handlers) == 0 {
		return data, nil
	}

	current := data
	for _, handler := range handlers {
		if !isModuleActive(handler.Module) {
			continue
		}
		result, err := handler.Fn(ctx, current)
		if err != nil {
			h.logger.Error("hook handler error",
				"hook", hookName,
				"handler", handler.Name,
				"module", handler.Module,
				"error", err,
			)
			return nil, fmt.Errorf("hook %s handler %s: %w", hookName, handler.Name, err)
		}
		current = result
	}
	return current, nil
}

// HasHandlers reports whether any handler is registered for hookName.
func (h *HookRegistry) HasHandlers(hookName string) bool {
	return h.HandlerCount(hookName) > 0
}

// HandlerCount returns the number of handlers registered for hookName.
func (h *HookRegistry) HandlerCount(hookName string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.hooks[hookName])
}

// HookInfo describes a hook and its handlers in call order.
type HookInfo struct {
	Name     string            `json:"name"`
	Handlers []HookHandlerInfo `json:"handlers"`
}

// HookHandlerInfo describes one handler.
type HookHandlerInfo struct {
	Name     string `json:"name"`
	Module   string `json:"module"`
	Priority int    `json:"priority"`
}

// ListHookInfo returns every hook with handlers, sorted by name.
func (h *HookRegistry) ListHookInfo() []HookInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]HookInfo, 0, len(h.hooks))
	for name, handlers := range h.hooks {
		if len(handlers) == 0 {
			continue
		}
		info := HookInfo{Name: name, Handlers: make([]HookHandlerInfo, len(handlers))}
		for i, hd := range handlers {
			info.Handlers[i] = HookHandlerInfo{Name: hd.Name, Module: hd.Module, Priority: hd.Priority}
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// UnregisterAll removes every handler registered by moduleName.
func (h *HookRegistry) UnregisterAll(moduleName string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for name, handlers := range h.hooks {
		kept := handlers[:0:0]
		for _, hd := range handlers {
			if hd.Module != moduleName {
				kept = append(kept, hd)
			}
		}
		h.hooks[name] = kept
	}
	h.logger.Debug("all hooks unregistered for module", "module", moduleName)
}
