// Package session keeps the recent dialogue of each conversation.
package session

import (
	"slices"
	"sync"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	DefaultWindow = 5
)

type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store holds a bounded window of turns per conversation. Appending past the
// window drops the oldest turn.
type Store struct {
	mu      sync.Mutex
	window  int
	history map[string][]Turn
}

// NewStore returns a store keeping the last window turns per conversation.
// A window below zero is treated as zero.
func NewStore(window int) *Store {
	return &Store{
		window:  max(window, 0),
		history: make(map[string][]Turn),
	}
}

func (s *Store) Append(conversationID string, turns ...Turn) {
	if s.window == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	h := append(s.history[conversationID], turns...)
	if over := len(h) - s.window; over > 0 {
		h = slices.Clone(h[over:])
	}
	s.history[conversationID] = h
}

// Recent returns a copy of the conversation's turns, oldest first.
func (s *Store) Recent(conversationID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history[conversationID])
}

func (s *Store) Reset(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, conversationID)
}
