// Package tools dispatches provider-requested tool invocations to registered
// handlers. The dispatcher owns the invocation status lifecycle; handlers only
// produce a result string or an error.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/stoewer/go-strcase"

	"github.com/hirebot-dev/hirebot/pkg/chat/config"
	apperrors "github.com/hirebot-dev/hirebot/pkg/chat/errors"
	"github.com/hirebot-dev/hirebot/pkg/chat/models"
	"github.com/hirebot-dev/hirebot/pkg/chat/providers"
)

// Handler defines the interface for tool handlers
type Handler interface {
	Name() string
	Description() string
	// Parameters returns the JSON schema for the handler's arguments.
	Parameters() map[string]interface{}
	Run(ctx context.Context, args map[string]interface{}) (string, error)
}

// BaseHandler provides common functionality for handlers
type BaseHandler struct {
	name        string
	description string
	parameters  map[string]interface{}
}

// NewBaseHandler creates a new BaseHandler
func NewBaseHandler(name, description string, parameters map[string]interface{}) BaseHandler {
	if parameters == nil {
		parameters = map[string]interface{}{"type": "object"}
	}
	return BaseHandler{
		name:        name,
		description: description,
		parameters:  parameters,
	}
}

// Name returns the handler name
func (b *BaseHandler) Name() string { return b.name }

// Description returns the handler description
func (b *BaseHandler) Description() string { return b.description }

// Parameters returns the handler's argument schema
func (b *BaseHandler) Parameters() map[string]interface{} { return b.parameters }

// Dispatcher routes tool invocations to registered handlers. Handler ids are
// normalized to snake_case at registration and lookup, so "currentTime" and
// "current_time" address the same handler.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]Handler),
	}
}

// NewDispatcherFromConfig builds a dispatcher with the builtin handlers plus
// one HTTP handler per configured tool.
func NewDispatcherFromConfig(cfg *config.Config) (*Dispatcher, error) {
	d := NewDispatcher()
	if err := d.Register(NewCurrentTimeHandler()); err != nil {
		return nil, err
	}
	for _, tc := range cfg.Tools {
		if err := d.Register(NewHTTPHandler(tc)); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Register adds a handler. Registering a second handler under the same
// normalized id fails.
func (d *Dispatcher) Register(h Handler) error {
	id := strcase.SnakeCase(h.Name())

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[id]; exists {
		return apperrors.New(apperrors.ErrCodeInvalidInput,
			fmt.Sprintf("tool %q already registered", id), nil)
	}
	d.handlers[id] = h
	return nil
}

// Definitions returns the registered tools in the shape providers consume,
// sorted by name for stable request payloads.
func (d *Dispatcher) Definitions() []providers.ToolDefinition {
	d.mu.RLock()
	defer d.mu.RUnlock()

	defs := make([]providers.ToolDefinition, 0, len(d.handlers))
	for id, h := range d.handlers {
		defs = append(defs, providers.ToolDefinition{
			Name:        id,
			Description: h.Description(),
			Parameters:  h.Parameters(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute runs the invocation through its handler, moving the status
// pending -> running -> completed|failed. The returned invocation is the
// input, mutated. A non-nil error is returned only when no handler is
// registered for the invocation's name; handler failures are recorded on the
// invocation itself.
func (d *Dispatcher) Execute(ctx context.Context, inv *models.ToolInvocation) (*models.ToolInvocation, error) {
	id := strcase.SnakeCase(inv.Name)

	d.mu.RLock()
	h, ok := d.handlers[id]
	d.mu.RUnlock()
	if !ok {
		return inv, apperrors.New(apperrors.ErrCodeUnknownTool,
			fmt.Sprintf("no handler registered for tool %q", inv.Name), nil)
	}

	if err := inv.Transition(models.StatusRunning); err != nil {
		return inv, err
	}

	if err := validateArgs(h.Parameters(), inv.Arguments); err != nil {
		inv.Error = err.Error()
		_ = inv.Transition(models.StatusFailed)
		return inv, nil
	}

	result, err := d.run(ctx, h, inv.Arguments)
	if err != nil {
		inv.Error = err.Error()
		_ = inv.Transition(models.StatusFailed)
		return inv, nil
	}

	inv.Result = result
	_ = inv.Transition(models.StatusCompleted)
	return inv, nil
}

// run invokes the handler, converting a panic into an error so one broken
// handler cannot take down an exchange.
func (d *Dispatcher) run(ctx context.Context, h Handler, args map[string]interface{}) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.New(apperrors.ErrCodeToolExecution,
				fmt.Sprintf("tool %q panicked: %v", h.Name(), r), nil)
		}
	}()
	return h.Run(ctx, args)
}

// validateArgs checks the schema's required properties against the supplied
// arguments, collecting every missing one.
func validateArgs(schema, args map[string]interface{}) error {
	required, ok := schema["required"].([]string)
	if !ok {
		// JSON-decoded schemas carry []interface{} instead.
		raw, ok := schema["required"].([]interface{})
		if !ok {
			return nil
		}
		for _, r := range raw {
			if s, ok := r.(string); ok {
				required = append(required, s)
			}
		}
	}

	var result *multierror.Error
	for _, name := range required {
		if _, present := args[name]; !present {
			result = multierror.Append(result, fmt.Errorf("missing required argument %q", name))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "invalid tool arguments", err)
	}
	return nil
}
