package coordinator

import (
	"fmt"
	"sync"
)

// exchangeState tracks where a session's current exchange stands. The state
// is internal to this package; its only job is to guarantee that fragments
// and tool results from one exchange are fully applied before the next
// exchange for the same session starts.
type exchangeState string

const (
	stateIdle         exchangeState = "idle"
	stateSending      exchangeState = "sending"
	stateAwaiting     exchangeState = "awaiting"
	stateStreaming    exchangeState = "streaming"
	stateToolDispatch exchangeState = "tool_dispatch"
)

var stateTransitions = map[exchangeState]map[exchangeState]bool{
	stateIdle:         {stateSending: true},
	stateSending:      {stateAwaiting: true, stateIdle: true},
	stateAwaiting:     {stateStreaming: true, stateToolDispatch: true, stateIdle: true},
	stateStreaming:    {stateToolDispatch: true, stateIdle: true},
	stateToolDispatch: {stateIdle: true},
}

// sessionState serializes exchanges for one session. The mutex is held for
// the whole exchange, so concurrent senders to the same session queue up.
type sessionState struct {
	mu    sync.Mutex
	state exchangeState
}

func newSessionState() *sessionState {
	return &sessionState{state: stateIdle}
}

func (s *sessionState) advance(next exchangeState) {
	if !stateTransitions[s.state][next] {
		panic(fmt.Sprintf("illegal exchange transition %s -> %s", s.state, next))
	}
	s.state = next
}
