package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Chinu7077/Talk-to-Chinu/internal/model"
	"github.com/Chinu7077/Talk-to-Chinu/internal/storage"
	"github.com/Chinu7077/Talk-to-Chinu/pkg/logger"
)

const titleMaxLen = 50

// SessionService owns the session collection and the current-session
// pointer. The in-memory state is authoritative; storage is hydrated once at
// construction and rewritten wholesale, best-effort, after every mutation.
// A persistence failure is logged and never blocks the conversation.
type SessionService struct {
	store storage.Store

	mu        sync.RWMutex
	sessions  []*model.Session // most-recently-created first
	byID      map[string]*model.Session
	currentID string

	now func() time.Time

	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

func NewSessionService(store storage.Store) *SessionService {
	s := &SessionService{
		store:       store,
		byID:        make(map[string]*model.Session),
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	sessions, err := store.Load()
	if err != nil {
		logger.Errorf("Failed to load sessions, starting empty: %v", err)
		sessions = nil
	}
	for _, session := range sessions {
		s.sessions = append(s.sessions, session)
		s.byID[session.ID] = session
	}
	logger.Infof("Session store hydrated with %d sessions", len(s.sessions))

	return s
}

// CreateSession allocates an empty session, puts it at the head of the
// listing and makes it current.
func (s *SessionService) CreateSession() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.createLocked()
	s.persistLocked()
	return session.Clone()
}

func (s *SessionService) createLocked() *model.Session {
	now := s.now()
	session := &model.Session{
		ID:        fmt.Sprintf("%d", now.UnixNano()),
		Title:     model.DefaultTitle,
		Messages:  []model.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.sessions = append([]*model.Session{session}, s.sessions...)
	s.byID[session.ID] = session
	s.currentID = session.ID
	return session
}

// UpdateSessionMessages replaces a session's messages wholesale. Used for
// "clear chat". Unknown ids are a caller error and ignored.
func (s *SessionService) UpdateSessionMessages(sessionID string, messages []model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byID[sessionID]
	if !ok {
		return
	}

	session.Messages = make([]model.Message, len(messages))
	copy(session.Messages, messages)
	session.UpdatedAt = s.now()
	if len(session.Messages) > 0 {
		session.Title = deriveTitle(session.Messages[0].Text)
	} else {
		session.Title = model.DefaultTitle
	}

	s.persistLocked()
}

// DeleteSession removes the session; when it was current, the current
// pointer is cleared and callers must cope with the no-session state.
func (s *SessionService) DeleteSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[sessionID]; !ok {
		return storage.ErrSessionNotFound
	}

	delete(s.byID, sessionID)
	for i, session := range s.sessions {
		if session.ID == sessionID {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			break
		}
	}
	if s.currentID == sessionID {
		s.currentID = ""
	}

	s.persistLocked()
	return nil
}

// SetCurrentSession repoints the current pointer. The id is validated since
// the HTTP surface, unlike a trusted UI, can pass arbitrary values.
func (s *SessionService) SetCurrentSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[sessionID]; !ok {
		return storage.ErrSessionNotFound
	}
	s.currentID = sessionID
	return nil
}

func (s *SessionService) CurrentSessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentID
}

func (s *SessionService) GetCurrentSession() *model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentID == "" {
		return nil
	}
	if session, ok := s.byID[s.currentID]; ok {
		return session.Clone()
	}
	return nil
}

func (s *SessionService) GetSession(sessionID string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.byID[sessionID]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}
	return session.Clone(), nil
}

// ListSessions returns the collection most-recently-created first.
func (s *SessionService) ListSessions() []*model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Session, len(s.sessions))
	for i, session := range s.sessions {
		out[i] = session.Clone()
	}
	return out
}

// AppendMessage appends to the current session, creating one first when
// none is active; the triggering message lands in the fresh session in the
// same step. Returns the id of the session the message landed in.
func (s *SessionService) AppendMessage(message model.Message) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byID[s.currentID]
	if !ok {
		session = s.createLocked()
	}

	s.appendLocked(session, message)
	s.persistLocked()
	return session.ID
}

// AppendMessageTo appends to an explicit session id, so an in-flight AI
// reply lands in the session it was requested for even after the user
// switched conversations.
func (s *SessionService) AppendMessageTo(sessionID string, message model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byID[sessionID]
	if !ok {
		return storage.ErrSessionNotFound
	}

	s.appendLocked(session, message)
	s.persistLocked()
	return nil
}

func (s *SessionService) appendLocked(session *model.Session, message model.Message) {
	first := len(session.Messages) == 0
	session.Messages = append(session.Messages, message)
	session.UpdatedAt = s.now()
	if first {
		session.Title = deriveTitle(message.Text)
	}
}

// SearchSessions matches query case-insensitively against titles and message
// texts, preserving listing order. An empty query matches everything.
func (s *SessionService) SearchSessions(query string) []*model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	var out []*model.Session
	for _, session := range s.sessions {
		if sessionMatches(session, needle) {
			out = append(out, session.Clone())
		}
	}
	return out
}

func sessionMatches(session *model.Session, needle string) bool {
	if strings.Contains(strings.ToLower(session.Title), needle) {
		return true
	}
	for _, msg := range session.Messages {
		if strings.Contains(strings.ToLower(msg.Text), needle) {
			return true
		}
	}
	return false
}

// StartCleanup deletes sessions idle longer than ttl, checked every
// interval. No-op when ttl is zero.
func (s *SessionService) StartCleanup(ttl, interval time.Duration) {
	if ttl <= 0 || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.cleanupExpired(ttl)
			case <-s.stopCleanup:
				return
			}
		}
	}()
}

func (s *SessionService) cleanupExpired(ttl time.Duration) {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.sessions[:0]
	removed := 0
	for _, session := range s.sessions {
		if session.UpdatedAt.Before(cutoff) {
			delete(s.byID, session.ID)
			if s.currentID == session.ID {
				s.currentID = ""
			}
			removed++
			continue
		}
		kept = append(kept, session)
	}
	s.sessions = kept

	if removed > 0 {
		logger.Infof("Cleaned up %d expired sessions", removed)
		s.persistLocked()
	}
}

func (s *SessionService) Stop() {
	s.cleanupOnce.Do(func() { close(s.stopCleanup) })
}

func (s *SessionService) persistLocked() {
	if err := s.store.Save(s.sessions); err != nil {
		logger.Errorf("Failed to persist sessions: %v", err)
	}
}

func deriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) > titleMaxLen {
		runes = runes[:titleMaxLen]
	}
	return string(runes) + "..."
}
