package netpool

import (
	"context"
	"sync"
)

// PoolGroup holds one [Pool] per [Key].
type PoolGroup struct {
	sync.RWMutex
	pools map[Key]*Pool

	opt Options
}

func NewGroup(opt Options) *PoolGroup {
	return &PoolGroup{pools: map[Key]*Pool{}, opt: opt}
}

func (g *PoolGroup) Pool(key Key) *Pool {
	g.RLock()
	p, ok := g.pools[key]
	g.RUnlock()
	if ok {
		return p
	}
	g.Lock()
	defer g.Unlock()
	if p, ok = g.pools[key]; !ok {
		p = NewPool(key, g.opt)
		g.pools[key] = p
	}
	return p
}

func (g *PoolGroup) Connect(ctx context.Context, key Key, dial DialFunc) (*Conn, error) {
	return g.Pool(key).Connect(ctx, dial)
}

func (g *PoolGroup) ConnectFresh(ctx context.Context, key Key, dial DialFunc) (*Conn, error) {
	return g.Pool(key).ConnectFresh(ctx, dial)
}

func (g *PoolGroup) CloseIdle() {
	g.RLock()
	defer g.RUnlock()
	for _, p := range g.pools {
		p.CloseIdle()
	}
}
