package bot

import "sync"

// conversationState is the per-chat step of the menu flow.
type conversationState int

const (
	stateIdle conversationState = iota
	stateAwaitingQuestion
	stateAwaitingOrder
	stateAwaitingPhone
)

// stateStore keeps per-chat conversation state in memory. State survives
// only as long as the process; a restart drops users back to the menu,
// which is acceptable for this flow.
type stateStore struct {
	mu     sync.Mutex
	states map[int64]conversationState
}

func newStateStore() *stateStore {
	return &stateStore{states: map[int64]conversationState{}}
}

func (s *stateStore) get(chatID int64) conversationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[chatID]
}

func (s *stateStore) set(chatID int64, state conversationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state == stateIdle {
		delete(s.states, chatID)
		return
	}
	s.states[chatID] = state
}

func (s *stateStore) clear(chatID int64) {
	s.set(chatID, stateIdle)
}
