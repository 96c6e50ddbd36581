// evictor.go houses the eviction loop for Store.  Every interval it scans
// the map and removes:
//
//   - sessions idle longer than idleTTL
//   - least-recently-used sessions when the map exceeds maxEntries
//
// Sessions with a request in flight are never evicted, so a settling
// request always has a Controller to land in.
package session

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/yanizio/medcost/internal/metrics"
)

func (s *Store) evictLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-t.C:
			s.evict(now)
		}
	}
}

func (s *Store) evict(now time.Time) {
	var count int

	// ----------------------------------------------------------------
	// Idle eviction pass
	// ----------------------------------------------------------------
	s.m.Range(func(key, value any) bool {
		count++
		ent := value.(*entry)
		idle := time.Duration(now.UnixNano() - atomic.LoadInt64(&ent.lastSeen))
		if idle > s.idleTTL && !ent.ctrl.State().Busy {
			s.drop(key, "idle", idle)
			count--
		}
		return true
	})

	// ----------------------------------------------------------------
	// LRU eviction pass
	// ----------------------------------------------------------------
	if s.maxEntries > 0 && count > s.maxEntries {
		type kv struct {
			key string
			at  int64
		}
		var all []kv
		s.m.Range(func(key, value any) bool {
			ent := value.(*entry)
			if !ent.ctrl.State().Busy {
				all = append(all, kv{key: key.(string), at: atomic.LoadInt64(&ent.lastSeen)})
			}
			return true
		})
		sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })
		for i := 0; i < count-s.maxEntries && i < len(all); i++ {
			s.drop(all[i].key, "lru", 0)
		}
	}
}

func (s *Store) drop(key any, reason string, idle time.Duration) {
	if _, loaded := s.m.LoadAndDelete(key); !loaded {
		return
	}
	s.log.Debugw("session evicted", "session", key, "reason", reason, "idle", idle.Truncate(time.Second))
	metrics.SessionEvictTotal.Inc()
	metrics.ActiveSessions.Dec()
}
