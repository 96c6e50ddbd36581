// internal/session/store.go
//
// Medcost – per-browser form sessions.
//
// Context
//   Each browser gets its own Submission Controller so one visitor's busy
//   flag, values, and result never leak into another's.  Controllers live in
//   memory only, keyed by a random session ID carried in a cookie.  Nothing
//   is persisted; a restart or eviction simply starts the visitor over with
//   default values.
//
// Workflow
//   •  Ensure reads the cookie and returns the live Controller, or mints a
//      new ID and Controller.  IDs are only ever minted here, so a client
//      cannot choose its own.
//   •  The evictor (evictor.go) drops idle sessions and trims by LRU when
//      the map outgrows MaxEntries.
//
//------------------------------------------------------------------------------

package session

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/medcost/internal/controller"
	"github.com/yanizio/medcost/internal/metrics"
)

// Static defaults.  Override through config.
const (
	IdleTTL       = 30 * time.Minute
	MaxEntries    = 10000
	EvictInterval = time.Minute
)

// ErrNotFound is returned by Get for unknown IDs.
var ErrNotFound = errors.New("session not found")

// Factory builds a fresh Controller for a new session.
type Factory func() *controller.Controller

type entry struct {
	ctrl     *controller.Controller
	lastSeen int64 // UnixNano
}

// Store holds live sessions in a sync.Map and evicts them on idle TTL or
// LRU pressure.
type Store struct {
	newCtrl    Factory
	log        *zap.SugaredLogger
	m          sync.Map
	idleTTL    time.Duration
	maxEntries int
	secure     bool

	stop     chan struct{}
	stopOnce sync.Once
}

// Options tunes a Store.  Zero values select the package defaults.
type Options struct {
	IdleTTL       time.Duration
	MaxEntries    int
	EvictInterval time.Duration
	SecureCookie  bool
	Logger        *zap.SugaredLogger
}

// New constructs a Store and starts the background evictor.  Call Close to
// stop it.
func New(f Factory, opt Options) *Store {
	s := &Store{
		newCtrl:    f,
		log:        opt.Logger,
		idleTTL:    opt.IdleTTL,
		maxEntries: opt.MaxEntries,
		secure:     opt.SecureCookie,
		stop:       make(chan struct{}),
	}
	if s.idleTTL <= 0 {
		s.idleTTL = IdleTTL
	}
	if s.maxEntries <= 0 {
		s.maxEntries = MaxEntries
	}
	if s.log == nil {
		s.log = zap.S()
	}
	every := opt.EvictInterval
	if every <= 0 {
		every = EvictInterval
	}
	go s.evictLoop(every)
	return s
}

// Close stops the evictor.  Live sessions stay readable.
func (s *Store) Close() { s.stopOnce.Do(func() { close(s.stop) }) }

// Len reports the number of live sessions.
func (s *Store) Len() int {
	n := 0
	s.m.Range(func(_, _ any) bool { n++; return true })
	return n
}

// Get returns the Controller for id and refreshes its idle clock.
func (s *Store) Get(id string) (*controller.Controller, error) {
	if v, ok := s.m.Load(id); ok {
		ent := v.(*entry)
		atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())
		return ent.ctrl, nil
	}
	return nil, ErrNotFound
}

// Ensure returns the caller's Controller.  A request with no cookie, or with
// an ID the store does not hold, gets a freshly minted ID and Controller.
func (s *Store) Ensure(w http.ResponseWriter, r *http.Request) *controller.Controller {
	if id, ok := sessionID(r); ok {
		if c, err := s.Get(id); err == nil {
			return c
		}
		// Evicted or planted IDs are never adopted.
		s.log.Debugw("unknown session cookie replaced")
	}
	return s.create(w, r, uuid.NewString())
}

func (s *Store) create(w http.ResponseWriter, r *http.Request, id string) *controller.Controller {
	ent := &entry{ctrl: s.newCtrl(), lastSeen: time.Now().UnixNano()}
	s.m.Store(id, ent)
	metrics.ActiveSessions.Inc()
	s.log.Debugw("session created", "session", id)
	setCookie(w, r, id, s.secure)
	return ent.ctrl
}
