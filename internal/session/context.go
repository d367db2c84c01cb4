package session

import (
	"sync"
	"sync/atomic"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/model"
)

// Context holds the current recording session and site state
type Context struct {
	mu      sync.RWMutex
	Session *model.Session
	Site    *model.Site
	tick    atomic.Uint64
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		Session: &model.Session{SessionName: "No session active"},
		Site:    &model.Site{SiteName: "No site loaded"},
	}
}

// GetSession returns the current session
func (sc *Context) GetSession() *model.Session {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.Session
}

// GetSite returns the current site
func (sc *Context) GetSite() *model.Site {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.Site
}

// SetSession sets the current session and site
func (sc *Context) SetSession(session *model.Session, site *model.Site) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.Session = session
	sc.Site = site
}

// SetTick records the most recent simulator clock tick
func (sc *Context) SetTick(tick uint64) {
	sc.tick.Store(tick)
}

// GetTick returns the most recent simulator clock tick
func (sc *Context) GetTick() uint64 {
	return sc.tick.Load()
}
