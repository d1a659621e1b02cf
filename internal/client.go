package internal

import (
	"context"
	"crypto/tls"
	"errors"
	"io/fs"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/frankli0324/go-h1/internal/config"
	"github.com/frankli0324/go-h1/internal/cookiejar"
	"github.com/frankli0324/go-h1/internal/dialer"
	"github.com/frankli0324/go-h1/internal/errdef"
	"github.com/frankli0324/go-h1/internal/http"
	"github.com/frankli0324/go-h1/internal/iowait"
	"github.com/frankli0324/go-h1/internal/logging"
	"github.com/frankli0324/go-h1/internal/transport"
	"github.com/frankli0324/go-h1/utils/netpool"
)

type PreparedRequest = http.PreparedRequest

// Handler performs a single exchange: no redirects are followed inside.
type Handler = func(ctx context.Context, req *PreparedRequest) (*http.Response, error)
type Middleware func(next Handler) Handler

// Client sends requests and follows redirects. The zero value is usable
// and behaves as New(nil).
type Client struct {
	cfg *config.Config

	middlewares []Middleware
	dialer      dialer.Dialer
	pool        *netpool.PoolGroup
	transport   transport.Transport
	jar         *cookiejar.Jar
	waiter      iowait.Waiter
	log         *zap.Logger
	tlsConfig   *tls.Config

	defaultHeaders http.Header
	once           sync.Once
	initErr        error
}

type Option func(*Client)

func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// WithWaiter picks how [Client.CtxDo] waits on I/O, [iowait.Blocking] by
// default. [Client.Go] always suspends.
func WithWaiter(w iowait.Waiter) Option { return func(c *Client) { c.waiter = w } }

// WithTLSConfig sets the base TLS configuration, e.g. extra root CAs.
func WithTLSConfig(t *tls.Config) Option { return func(c *Client) { c.tlsConfig = t.Clone() } }

func WithJar(j *cookiejar.Jar) Option { return func(c *Client) { c.jar = j } }

// New builds a client from cfg, nil meaning [config.Default]. The cookie
// file, when configured, is loaded if it exists.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	c := &Client{}
	if cfg != nil {
		cp := *cfg
		c.cfg = &cp
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ensure()
	if c.initErr != nil {
		return nil, c.initErr
	}
	return c, nil
}

func (c *Client) ensure() error {
	c.once.Do(func() { c.initErr = c.init() })
	return c.initErr
}

func (c *Client) init() error {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	cfg := c.cfg
	if c.log == nil {
		c.log = logging.NewOrNop(cfg.Log)
	}
	if c.waiter == nil {
		c.waiter = iowait.Blocking{}
	}
	if c.transport == nil {
		c.transport = transport.HTTP1{}
	}
	var err error
	if c.defaultHeaders, err = cfg.DefaultHeaders.Header(); err != nil {
		return err
	}
	if cfg.UserAgent != "" && !c.defaultHeaders.Has("User-Agent") {
		c.defaultHeaders = append(c.defaultHeaders, http.Field{Name: "User-Agent", Value: cfg.UserAgent})
	}

	if c.jar == nil {
		c.jar = cookiejar.New(cookiejar.WithLogger(c.log))
		if cfg.CookieFile != "" {
			if err := c.jar.Load(cfg.CookieFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
		}
	}

	maxIdle := cfg.Pool.MaxIdlePerHost
	if !cfg.KeepAlive {
		maxIdle = 0
	}
	c.pool = netpool.NewGroup(netpool.Options{
		MaxConnsPerHost: cfg.Pool.MaxConnsPerHost,
		MaxIdlePerHost:  maxIdle,
		IdleTimeout:     cfg.Pool.IdleTimeout.Std(),
		Logger:          c.log,
	})
	tlsConfig := c.tlsConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{}
	}
	if cfg.InsecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true
	}
	if c.dialer == nil {
		c.dialer = &dialer.CoreDialer{
			ResolveConfig: cfg.Resolve.Dialer(),
			TLSConfig:     tlsConfig,
			Proxy:         cfg.Proxy.Dialer(),
			Timeouts: dialer.Timeouts{
				Connect:      cfg.Timeouts.Connect.Std(),
				TLSHandshake: cfg.Timeouts.TLSHandshake.Std(),
				Write:        cfg.Timeouts.Write.Std(),
				Read:         cfg.Timeouts.Read.Std(),
			},
			ConnPool: c.pool,
			Logger:   c.log,
		}
	}
	return nil
}

// Use appends mw to the end of the chain. The first "Use"d mw is the
// outermost and executes first.
func (c *Client) Use(mws ...Middleware) {
	c.middlewares = append(c.middlewares, mws...)
}

// UseDialer replaces the dialer with the result of wrap, which receives the
// current one.
func (c *Client) UseDialer(wrap func(dialer.Dialer) dialer.Dialer) {
	c.ensure()
	c.dialer = wrap(c.dialer)
}

func (c *Client) Config() config.Config {
	c.ensure()
	return *c.cfg
}

func (c *Client) Jar() *cookiejar.Jar {
	c.ensure()
	return c.jar
}

// LoadCookies merges a cookies.txt file into the jar, path defaulting to
// the configured cookie file.
func (c *Client) LoadCookies(path string) error {
	if err := c.ensure(); err != nil {
		return err
	}
	if path == "" {
		path = c.cfg.CookieFile
	}
	return c.jar.Load(path)
}

// SaveCookies atomically writes the jar, path defaulting to the configured
// cookie file.
func (c *Client) SaveCookies(path string) error {
	if err := c.ensure(); err != nil {
		return err
	}
	if path == "" {
		path = c.cfg.CookieFile
	}
	if path == "" {
		return errors.New("no cookie file configured")
	}
	return c.jar.Save(path)
}

// CloseIdleConnections closes every pooled connection not in use.
func (c *Client) CloseIdleConnections() {
	if c.ensure() == nil {
		c.pool.CloseIdle()
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.CtxDo(context.Background(), req)
}

// CtxDo sends req, follows redirects as configured and returns the final
// response with its body fully read. Any failure is a *[errdef.SendError].
func (c *Client) CtxDo(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.ensure(); err != nil {
		return nil, errdef.Send(err)
	}
	return c.send(ctx, req, c.waiter)
}

// Call is a send running in the background.
type Call struct {
	done chan struct{}
	resp *http.Response
	err  error
}

// Go starts sending req on its own goroutine, suspending on every I/O step.
// Cancelling ctx closes the connection in use instead of returning it to
// the pool.
func (c *Client) Go(ctx context.Context, req *http.Request) *Call {
	call := &Call{done: make(chan struct{})}
	go func() {
		defer close(call.done)
		if err := c.ensure(); err != nil {
			call.err = errdef.Send(err)
			return
		}
		call.resp, call.err = c.send(ctx, req, iowait.Suspending{})
	}()
	return call
}

func (c *Call) Done() <-chan struct{} { return c.done }

// Result waits for the call to finish.
func (c *Call) Result() (*http.Response, error) {
	<-c.done
	return c.resp, c.err
}

func (c *Client) send(ctx context.Context, req *http.Request, w iowait.Waiter) (*http.Response, error) {
	ctx = withWaiter(shadowStandardClientTrace(ctx), w)
	handler := c.handler()
	policy := c.cfg.Redirect

	for hops := 0; ; hops++ {
		pr, err := c.prepare(req)
		if err != nil {
			return nil, errdef.Send(err)
		}
		resp, err := handler(ctx, pr)
		if err != nil {
			return nil, errdef.Send(err)
		}
		c.jar.Ingest(resp, pr.U)
		resp.URL = pr.U.String()

		if !policy.Follow || !http.IsRedirect(resp.StatusCode) || resp.Location() == "" {
			return resp, nil
		}
		if hops >= policy.Max {
			return nil, &errdef.SendError{Kind: errdef.SendTooManyRedirects,
				Err: errors.New("stopped after " + resp.URL)}
		}
		if req, err = nextRequest(req, pr, resp, policy.Rewrite); err != nil {
			return nil, errdef.Send(err)
		}
		c.log.Debug("client: following redirect",
			zap.Int("status", resp.StatusCode), zap.String("from", resp.URL), zap.String("to", req.URL))
	}
}

func (c *Client) handler() Handler {
	next := c.exchange
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		next = c.middlewares[i](next)
	}
	return next
}

// prepare adds the default headers the request lacks and the jar's cookies.
func (c *Client) prepare(req *http.Request) (*PreparedRequest, error) {
	pr, err := req.Prepare()
	if err != nil {
		return nil, err
	}
	h := pr.Header.Clone()
	for _, f := range c.defaultHeaders {
		if !req.Header.Has(f.Name) {
			h = append(h, f)
		}
	}
	if cookies := c.jar.Header(pr.U); cookies != "" {
		if own := h.Get("Cookie"); own != "" {
			cookies = own + "; " + cookies
		}
		h.Set("Cookie", cookies)
	}
	pr.Header = h
	return pr, nil
}

type waiterKey struct{}

func withWaiter(ctx context.Context, w iowait.Waiter) context.Context {
	return context.WithValue(ctx, waiterKey{}, w)
}

func waiterFrom(ctx context.Context) iowait.Waiter {
	if w, ok := ctx.Value(waiterKey{}).(iowait.Waiter); ok {
		return w
	}
	return iowait.Blocking{}
}

var noDeadline time.Time
