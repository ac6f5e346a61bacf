package session

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CookieName is the cookie carrying the session id.
const CookieName = "tracker_session"

type Config struct {
	MaxSize       int
	TTL           time.Duration
	DefaultBudget decimal.Decimal
}

// Store keeps sessions in an LRU with a sliding TTL: every successful
// lookup pushes the expiry forward.
type Store struct {
	mu            sync.Mutex
	maxSize       int
	ttl           time.Duration
	defaultBudget decimal.Decimal
	items         map[string]*list.Element
	lru           *list.List
	now           func() time.Time

	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

type item struct {
	sess      *Session
	expiresAt time.Time
}

// NewStore creates an empty session store.
func NewStore(cfg Config) *Store {
	if cfg.MaxSize < 1 {
		cfg.MaxSize = 1
	}
	return &Store{
		maxSize:       cfg.MaxSize,
		ttl:           cfg.TTL,
		defaultBudget: cfg.DefaultBudget,
		items:         make(map[string]*list.Element),
		lru:           list.New(),
		now:           time.Now,
	}
}

// Get returns a live session and refreshes its expiry.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[id]
	if !ok {
		return nil, false
	}
	it := elem.Value.(*item)
	now := s.now()
	if now.After(it.expiresAt) {
		s.removeElement(elem)
		return nil, false
	}
	it.expiresAt = now.Add(s.ttl)
	s.lru.MoveToFront(elem)
	return it.sess, true
}

// Create starts a new session with a random id and the default budget.
func (s *Store) Create() *Session {
	sess := newSession(uuid.NewString(), s.defaultBudget)

	s.mu.Lock()
	defer s.mu.Unlock()

	elem := s.lru.PushFront(&item{sess: sess, expiresAt: s.now().Add(s.ttl)})
	s.items[sess.ID] = elem
	if s.lru.Len() > s.maxSize {
		if oldest := s.lru.Back(); oldest != nil {
			s.removeElement(oldest)
		}
	}
	return sess
}

// Resolve returns the session for id, creating a fresh one when id is
// unknown or expired. created reports whether a new cookie must be set.
func (s *Store) Resolve(id string) (sess *Session, created bool) {
	if id != "" {
		if sess, ok := s.Get(id); ok {
			return sess, false
		}
	}
	return s.Create(), true
}

func (s *Store) removeElement(elem *list.Element) {
	it := elem.Value.(*item)
	delete(s.items, it.sess.ID)
	s.lru.Remove(elem)
}

// CleanExpired removes all expired sessions and returns how many went.
func (s *Store) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var toRemove []*list.Element
	for elem := s.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*item).expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		s.removeElement(elem)
	}
	return len(toRemove)
}

// Size returns the number of sessions held, expired ones included.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// StartCleanup runs CleanExpired every interval until Stop is called.
// onClean, when set, receives the number removed by each sweep.
func (s *Store) StartCleanup(interval time.Duration, onClean func(int)) {
	s.mu.Lock()
	if s.stopCleanup != nil {
		s.mu.Unlock()
		return
	}
	s.stopCleanup = make(chan struct{})
	s.cleanupDone = make(chan struct{})
	stop, done := s.stopCleanup, s.cleanupDone
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := s.CleanExpired(); onClean != nil {
					onClean(n)
				}
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts the cleanup goroutine and waits for it to exit.
func (s *Store) Stop() {
	s.mu.Lock()
	stop, done := s.stopCleanup, s.cleanupDone
	s.stopCleanup = nil
	s.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
}
