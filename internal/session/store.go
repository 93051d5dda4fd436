// Package session keeps one product list view per browser session.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/abgdnv/catalogadmin/internal/listview"
	"github.com/google/uuid"
)

// CookieName is the cookie carrying the session id.
const CookieName = "admin_session"

// Session is the state of one browser session.
type Session struct {
	ID    string
	View  *listview.View
	Flash *Flash

	lastSeen time.Time
	loadOnce sync.Once
}

// Ensure loads the view the first time a page of this session needs the records. Load
// failures end up in the flash; later refreshes go through Reload.
func (s *Session) Ensure(ctx context.Context) {
	s.loadOnce.Do(func() {
		if !s.View.Loaded() {
			_ = s.View.Load(ctx)
		}
	})
}

// DefaultMaxSessions caps the store when no limit is configured.
const DefaultMaxSessions = 1000

// Store holds the sessions in memory. Sessions idle for longer than the TTL are dropped;
// when the store is full the least recently used session makes room for a new one.
type Store struct {
	api         listview.ProductAPI
	pageSize    int
	ttl         time.Duration
	maxSessions int
	logger      *slog.Logger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty store holding at most maxSessions sessions (DefaultMaxSessions
// when not positive). Views it creates use api and start with pageSize rows.
func NewStore(api listview.ProductAPI, pageSize int, ttl time.Duration, maxSessions int, logger *slog.Logger) *Store {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Store{
		api:         api,
		pageSize:    pageSize,
		ttl:         ttl,
		maxSessions: maxSessions,
		logger:      logger.With("component", "session"),
		now:         time.Now,
		sessions:    make(map[string]*Session),
	}
}

// Get returns the session with the given id. An unknown or expired id gets a new session
// under a new id. The view of a new session is empty until Ensure is called.
func (s *Store) Get(ctx context.Context, id string) *Session {
	s.mu.Lock()
	now := s.now()
	if sess, ok := s.sessions[id]; ok && !s.expired(sess, now) {
		sess.lastSeen = now
		s.mu.Unlock()
		return sess
	}
	delete(s.sessions, id)
	evicted := s.makeRoomLocked(now)
	flash := &Flash{}
	sess := &Session{
		ID:       uuid.NewString(),
		View:     listview.New(s.api, flash, s.pageSize, s.logger),
		Flash:    flash,
		lastSeen: now,
	}
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	if evicted != "" {
		s.logger.WarnContext(ctx, "Session limit reached, least recently used session dropped", "session_id", evicted)
	}
	s.logger.DebugContext(ctx, "Session created", "session_id", sess.ID)
	return sess
}

// makeRoomLocked drops expired sessions and, if the store is still full, the least
// recently used one, whose id it returns.
func (s *Store) makeRoomLocked(now time.Time) string {
	if len(s.sessions) < s.maxSessions {
		return ""
	}
	var oldest *Session
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			continue
		}
		if oldest == nil || sess.lastSeen.Before(oldest.lastSeen) {
			oldest = sess
		}
	}
	if len(s.sessions) < s.maxSessions || oldest == nil {
		return ""
	}
	delete(s.sessions, oldest.ID)
	return oldest.ID
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.InfoContext(ctx, "Expired sessions removed", "count", n)
			}
		}
	}
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.lastSeen) > s.ttl
}
