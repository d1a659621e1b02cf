package netpool

import (
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/frankli0324/go-h1/utils/nettools"
)

// Key identifies connections that are interchangeable: same origin reached
// through the same proxy.
type Key struct {
	Scheme, Host, Port string
	// Proxy is empty for direct connections.
	Proxy string
}

func (k Key) String() string {
	s := k.Scheme + "://" + net.JoinHostPort(k.Host, k.Port)
	if k.Proxy != "" {
		s += " via " + k.Proxy
	}
	return s
}

type DialFunc func(ctx context.Context) (net.Conn, error)

type Options struct {
	// MaxConnsPerHost bounds connections checked out at once, 0 is unlimited.
	MaxConnsPerHost int
	// MaxIdlePerHost bounds connections kept for reuse, 0 disables reuse.
	MaxIdlePerHost int
	// IdleTimeout is the freshness window. Connections idle for longer are
	// dropped when next encountered, 0 keeps them forever.
	IdleTimeout time.Duration
	// Probe tells whether an idle connection is still usable, it defaults
	// to nettools.Alive.
	Probe  func(*Conn) bool
	Logger *zap.Logger
}

func defaultProbe(c *Conn) bool { return nettools.Alive(c.Conn, c.Reader) }

type Pool struct {
	key        Key
	connTicket chan struct{}

	mu   sync.Mutex
	idle []*Conn

	maxIdle         int
	maxIdleDuration time.Duration
	probe           func(*Conn) bool
	log             *zap.Logger
	now             func() time.Time
}

func NewPool(key Key, opt Options) *Pool {
	p := &Pool{
		key:             key,
		maxIdle:         opt.MaxIdlePerHost,
		maxIdleDuration: opt.IdleTimeout,
		probe:           opt.Probe,
		log:             opt.Logger,
		now:             time.Now,
	}
	if opt.MaxConnsPerHost > 0 {
		p.connTicket = make(chan struct{}, opt.MaxConnsPerHost)
	}
	if p.probe == nil {
		p.probe = defaultProbe
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	return p
}

// Connect hands out a fresh, live idle connection if there is one and dials
// otherwise.
func (p *Pool) Connect(ctx context.Context, dial DialFunc) (*Conn, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	for c := p.popIdle(); c != nil; c = p.popIdle() {
		if idle := p.now().Sub(c.lastIdle); p.maxIdleDuration > 0 && idle > p.maxIdleDuration {
			p.log.Debug("netpool: dropping stale connection", zap.Stringer("key", p.key), zap.Duration("idle", idle))
			c.Conn.Close()
			continue
		}
		if !p.probe(c) {
			p.log.Debug("netpool: dropping dead connection", zap.Stringer("key", p.key))
			c.Conn.Close()
			continue
		}
		c.reused = true
		c.state.Store(stateActive)
		return c, nil
	}
	return p.dial(ctx, dial)
}

// ConnectFresh always dials, leaving idle connections alone.
func (p *Pool) ConnectFresh(ctx context.Context, dial DialFunc) (*Conn, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	return p.dial(ctx, dial)
}

func (p *Pool) dial(ctx context.Context, dial DialFunc) (*Conn, error) {
	nc, err := dial(ctx)
	if err != nil {
		p.free()
		return nil, err
	}
	return newConn(p, nc), nil
}

func (p *Pool) acquire(ctx context.Context) error {
	if p.connTicket == nil {
		return ctx.Err()
	}
	select {
	case p.connTicket <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) free() {
	if p.connTicket != nil {
		<-p.connTicket
	}
}

func (p *Pool) popIdle() *Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.idle)
	if n == 0 {
		return nil
	}
	c := p.idle[n-1]
	p.idle[n-1] = nil
	p.idle = p.idle[:n-1]
	return c
}

func (p *Pool) put(c *Conn) {
	defer p.free()
	c.lastIdle = p.now()
	p.mu.Lock()
	if len(p.idle) >= p.maxIdle {
		p.mu.Unlock()
		c.Conn.Close()
		return
	}
	p.idle = append(p.idle, c)
	p.mu.Unlock()
}

// Idle is the number of connections waiting for reuse.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

func (p *Pool) CloseIdle() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()
	for _, c := range idle {
		c.Conn.Close()
	}
}
