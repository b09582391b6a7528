package httpgw

import (
	"sync"
	"time"

	"github.com/brasswatch/streamconnector/internal/backend"
)

const evictAfterTicks = 15
const sweepInterval = 1 * time.Second

// entry is one pooled backend connection (§3). inUse is a try-lock: the
// eviction sweep only ever removes an entry it can acquire non-blockingly,
// so it never races a request holding it.
type entry struct {
	bridge        *backend.Bridge
	lastUseTicks  int
	inUse         sync.Mutex
}

func (e *entry) connected() bool {
	return e.bridge != nil && e.bridge.Connected()
}

// Pool is the keyed set of pooled HTTP backend connections shared by every
// proxied request, plus the lazily-started idle-eviction sweep.
type Pool struct {
	mutex   sync.Mutex
	entries map[string]*entry

	sweepOnce sync.Once
}

// NewPool returns an empty pool. The eviction sweep starts on first use.
func NewPool() *Pool {
	return &Pool{entries: make(map[string]*entry)}
}

// acquire returns the pool entry for fingerprint, dialing a fresh backend
// connection under tag's socket if none exists yet or the existing entry's
// bridge holds no connection (as after detach). A backend connection that
// the backend closed or that failed is not detected here and is reused.
// The entry's inUse gate is NOT held on return — the caller must lock it
// before touching the backend socket.
func (p *Pool) acquire(fingerprint string, tag Tag) (*entry, error) {
	p.mutex.Lock()

	e, found := p.entries[fingerprint]
	if !found || !e.connected() {
		b, err := backend.Dial(httpBackendPath(tag))
		if err != nil {
			p.mutex.Unlock()
			return nil, err
		}
		e = &entry{bridge: b}
		p.entries[fingerprint] = e
	}

	p.ensureSweepStarted()
	p.mutex.Unlock()

	return e, nil
}

// evict drops the pool entry for fingerprint, closing its socket, if its
// inUse gate can be acquired non-blockingly (the redis admin "evict"
// command, §4.3 addendum).
func (p *Pool) evict(fingerprint string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	e, found := p.entries[fingerprint]
	if !found {
		return
	}
	if !e.inUse.TryLock() {
		return
	}
	defer e.inUse.Unlock()

	if e.bridge != nil {
		e.bridge.Close() //nolint:errcheck
	}
	delete(p.entries, fingerprint)
}

// detach replaces fingerprint's socket with a fresh, already-closed one so
// the next sweep observes it as stale and removes it, while the caller
// keeps the original connection it just took ownership of (§4.3 step 5,
// the unknown-length streaming path).
func (p *Pool) detach(fingerprint string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	e, found := p.entries[fingerprint]
	if !found {
		return
	}
	e.bridge = &backend.Bridge{}
}

func (p *Pool) ensureSweepStarted() {
	p.sweepOnce.Do(func() {
		go p.sweep()
	})
}

// sweep is the idle-eviction worker (§4.4, §9 design note): it collects
// evictable keys in one pass under the pool mutex, then erases them in a
// second pass — never mutating the map mid-range, unlike the mistserver
// original's iterator-invalidating restart-at-begin() pattern.
func (p *Pool) sweep() {
	for {
		time.Sleep(sweepInterval)

		p.mutex.Lock()
		if len(p.entries) == 0 {
			p.mutex.Unlock()
			p.sweepOnce = sync.Once{}
			return
		}

		var stale []string
		for key, e := range p.entries {
			if !e.connected() {
				stale = append(stale, key)
				continue
			}
			e.lastUseTicks++
			if e.lastUseTicks > evictAfterTicks {
				stale = append(stale, key)
			}
		}

		for _, key := range stale {
			e := p.entries[key]
			if !e.inUse.TryLock() {
				continue
			}
			if e.bridge != nil {
				e.bridge.Close() //nolint:errcheck
			}
			delete(p.entries, key)
			e.inUse.Unlock()
		}
		p.mutex.Unlock()
	}
}

func httpBackendPath(tag Tag) string {
	return "/tmp/mist/http_" + string(tag)
}
