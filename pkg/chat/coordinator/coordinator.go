// Package coordinator runs message exchanges: it appends the user's message,
// calls the session's provider, persists the assistant response (streamed or
// not) and dispatches any requested tools. One exchange runs at a time per
// session; concurrent senders to the same session queue on its lock.
package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-multierror"

	"github.com/hirebot-dev/hirebot/pkg/chat/config"
	apperrors "github.com/hirebot-dev/hirebot/pkg/chat/errors"
	"github.com/hirebot-dev/hirebot/pkg/chat/models"
	"github.com/hirebot-dev/hirebot/pkg/chat/providers"
	"github.com/hirebot-dev/hirebot/pkg/chat/store"
	"github.com/hirebot-dev/hirebot/pkg/chat/tools"
)

// Options controls a single exchange.
type Options struct {
	// Stream asks the provider for incremental fragments.
	Stream bool
	// OnFragment is called with each fragment as it arrives, in order. It is
	// an in-memory view only; persistence happens once at stream end.
	OnFragment func(content string)
}

// Outcome is the result of a completed exchange.
type Outcome struct {
	// UserMessage is the persisted user message. Set even when the exchange
	// fails after the append.
	UserMessage *models.Message
	// AssistantMessage is the persisted assistant response, nil when the
	// provider produced nothing before a cancellation.
	AssistantMessage *models.Message
	// ToolResults are the persisted tool messages, in dispatch order.
	ToolResults []*models.Message
	// Truncated reports that the caller cancelled mid-stream and the
	// assistant message holds partial content.
	Truncated bool
}

// Coordinator wires the store, provider registry, credentials and tool
// dispatcher into the exchange flow.
type Coordinator struct {
	store      store.Store
	registry   *providers.Registry
	creds      *config.Credentials
	dispatcher *tools.Dispatcher
	log        logr.Logger
	metrics    *Metrics

	mu       sync.Mutex
	sessions map[string]*sessionState
}

// New creates a Coordinator. A nil metrics gets an unexported registry.
func New(st store.Store, registry *providers.Registry, creds *config.Credentials, dispatcher *tools.Dispatcher, log logr.Logger, metrics *Metrics) *Coordinator {
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &Coordinator{
		store:      st,
		registry:   registry,
		creds:      creds,
		dispatcher: dispatcher,
		log:        log,
		metrics:    metrics,
		sessions:   make(map[string]*sessionState),
	}
}

// sessionFor returns the session's exchange state, creating it on first use.
func (c *Coordinator) sessionFor(sessionID string) *sessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.sessions[sessionID]
	if !ok {
		st = newSessionState()
		c.sessions[sessionID] = st
	}
	return st
}

// ReleaseSession drops the session's exchange state after the session has
// been deleted from the store. A sender racing the delete fails its session
// lookup before ever touching exchange state, so dropping here is safe.
func (c *Coordinator) ReleaseSession(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, sessionID)
}

// SendUserMessage runs one full exchange. The user message is persisted
// before the provider is consulted and stays persisted regardless of later
// failures. Tool handler failures are recorded in history and aggregated into
// the returned error alongside a non-nil Outcome.
func (c *Coordinator) SendUserMessage(ctx context.Context, sessionID, text string, opts Options) (*Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "message text is empty", nil)
	}

	sess, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st := c.sessionFor(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.advance(stateSending)
	defer func() {
		if st.state != stateIdle {
			st.advance(stateIdle)
		}
	}()

	userMsg, err := c.store.AppendMessage(ctx, sessionID, models.NewMessage(sessionID, models.RoleUser, text))
	if err != nil {
		c.count(sess.Provider, "store_error")
		return nil, err
	}
	outcome := &Outcome{UserMessage: userMsg}

	if !c.creds.IsConfigured(sess.Provider) {
		c.count(sess.Provider, "not_configured")
		return outcome, apperrors.New(apperrors.ErrCodeProviderNotConfigured,
			fmt.Sprintf("provider %q is not configured", sess.Provider), nil)
	}

	provider, err := c.registry.Get(sess.Provider)
	if err != nil {
		c.count(sess.Provider, "not_configured")
		return outcome, apperrors.New(apperrors.ErrCodeProviderNotConfigured,
			fmt.Sprintf("provider %q has no transport", sess.Provider), err)
	}

	history, err := c.store.ListMessages(ctx, sessionID)
	if err != nil {
		c.count(sess.Provider, "store_error")
		return outcome, err
	}

	request := providers.Request{Messages: history}
	if provider.SupportsTools() {
		request.Tools = c.dispatcher.Definitions()
	}

	st.advance(stateAwaiting)

	var (
		content   string
		toolCalls []*models.ToolInvocation
		truncated bool
	)
	if opts.Stream {
		content, toolCalls, truncated, err = c.consumeStream(ctx, st, provider, request, opts.OnFragment)
	} else {
		var resp *providers.Response
		resp, err = provider.Chat(ctx, request)
		if resp != nil {
			content = resp.Content
			toolCalls = resp.ToolCalls
		}
	}
	if err != nil {
		// Partial streamed content is finalized as truncated before the
		// provider error is surfaced, so history matches what the caller saw.
		if content != "" {
			if msg, appendErr := c.appendAssistant(ctx, sessionID, content, true); appendErr == nil {
				outcome.AssistantMessage = msg
				outcome.Truncated = true
			}
		}
		c.count(sess.Provider, "provider_error")
		c.log.Error(err, "exchange failed", "session", sessionID, "provider", sess.Provider)
		return outcome, err
	}

	if truncated {
		c.metrics.cancellations.Inc()
		if content != "" {
			msg, appendErr := c.appendAssistant(ctx, sessionID, content, true)
			if appendErr != nil {
				c.count(sess.Provider, "store_error")
				return outcome, appendErr
			}
			outcome.AssistantMessage = msg
		}
		outcome.Truncated = true
		c.count(sess.Provider, "cancelled")
		c.log.V(1).Info("exchange cancelled", "session", sessionID, "fragments_persisted", content != "")
		return outcome, nil
	}

	// A pure tool-call turn carries no assistant text; persist nothing for it.
	if content != "" || len(toolCalls) == 0 {
		assistantMsg, err := c.appendAssistant(ctx, sessionID, content, false)
		if err != nil {
			c.count(sess.Provider, "store_error")
			return outcome, err
		}
		outcome.AssistantMessage = assistantMsg
	}

	var toolErrs *multierror.Error
	if len(toolCalls) > 0 {
		st.advance(stateToolDispatch)
		outcome.ToolResults, toolErrs = c.dispatchTools(ctx, sessionID, toolCalls)
	}

	if err := toolErrs.ErrorOrNil(); err != nil {
		c.count(sess.Provider, "tool_failed")
		return outcome, apperrors.New(apperrors.ErrCodeToolExecution, "one or more tools failed", err)
	}

	c.count(sess.Provider, "ok")
	return outcome, nil
}

// consumeStream drains the provider's stream, buffering fragments in arrival
// order. Caller cancellation stops consumption and reports truncation; the
// provider closing the chunk channel ends the stream normally.
func (c *Coordinator) consumeStream(ctx context.Context, st *sessionState, provider providers.Provider, request providers.Request, onFragment func(string)) (string, []*models.ToolInvocation, bool, error) {
	chunks, errs := provider.ChatStream(ctx, request)
	st.advance(stateStreaming)

	var (
		buf       strings.Builder
		toolCalls []*models.ToolInvocation
	)
	apply := func(chunk providers.StreamChunk) {
		if chunk.Content != "" {
			buf.WriteString(chunk.Content)
			c.metrics.fragments.Inc()
			if onFragment != nil {
				onFragment(chunk.Content)
			}
		}
		if len(chunk.ToolCalls) > 0 {
			toolCalls = append(toolCalls, chunk.ToolCalls...)
		}
	}
	// drain applies fragments already buffered ahead of a failure so the
	// persisted partial matches everything the provider actually sent.
	drain := func() {
		for {
			select {
			case chunk, ok := <-chunks:
				if !ok {
					return
				}
				apply(chunk)
			default:
				return
			}
		}
	}

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return buf.String(), toolCalls, false, nil
			}
			apply(chunk)
		case err, ok := <-errs:
			if !ok || err == nil {
				// A closed error channel just means no failure; disable the
				// case and keep consuming fragments.
				errs = nil
				continue
			}
			drain()
			if ctx.Err() != nil {
				return buf.String(), toolCalls, true, nil
			}
			return buf.String(), toolCalls, false, err
		case <-ctx.Done():
			drain()
			return buf.String(), toolCalls, true, nil
		}
	}
}

// appendAssistant persists the assistant message. The append context is
// detached from the caller's so a cancelled stream can still finalize.
func (c *Coordinator) appendAssistant(ctx context.Context, sessionID, content string, truncated bool) (*models.Message, error) {
	msg := models.NewMessage(sessionID, models.RoleAssistant, content)
	msg.Truncated = truncated
	return c.store.AppendMessage(context.WithoutCancel(ctx), sessionID, msg)
}

// dispatchTools runs the provider's tool calls sequentially in provider
// order. Every dispatched invocation produces a persisted tool message,
// completed or failed; unknown tools produce no message at all. Dispatch is
// not cancellable: handlers run to completion on a detached context and their
// results always reach history, even if the caller has gone away.
func (c *Coordinator) dispatchTools(ctx context.Context, sessionID string, toolCalls []*models.ToolInvocation) ([]*models.Message, *multierror.Error) {
	ctx = context.WithoutCancel(ctx)

	var (
		results  []*models.Message
		toolErrs *multierror.Error
	)
	for _, inv := range toolCalls {
		executed, err := c.dispatcher.Execute(ctx, inv)
		if err != nil {
			c.metrics.toolDispatch.WithLabelValues("unknown").Inc()
			toolErrs = multierror.Append(toolErrs, err)
			continue
		}
		c.metrics.toolDispatch.WithLabelValues(string(executed.Status)).Inc()

		content := executed.Result
		if executed.Status == models.StatusFailed {
			content = executed.Error
			toolErrs = multierror.Append(toolErrs, apperrors.New(apperrors.ErrCodeToolExecution,
				fmt.Sprintf("tool %q failed: %s", executed.Name, executed.Error), nil))
		}

		msg := models.NewMessage(sessionID, models.RoleTool, content)
		msg.ToolCall = executed
		stored, err := c.store.AppendMessage(ctx, sessionID, msg)
		if err != nil {
			toolErrs = multierror.Append(toolErrs, err)
			continue
		}
		results = append(results, stored)
	}
	return results, toolErrs
}

func (c *Coordinator) count(provider, outcome string) {
	c.metrics.exchanges.WithLabelValues(provider, outcome).Inc()
}
