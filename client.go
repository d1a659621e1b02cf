package http

import (
	"github.com/frankli0324/go-h1/internal"
	"github.com/frankli0324/go-h1/internal/config"
	"github.com/frankli0324/go-h1/internal/iowait"
)

type Client = internal.Client
type Call = internal.Call
type Option = internal.Option

type Handler = internal.Handler
type Middleware = internal.Middleware

type Config = config.Config

var (
	WithLogger    = internal.WithLogger
	WithWaiter    = internal.WithWaiter
	WithTLSConfig = internal.WithTLSConfig
	WithJar       = internal.WithJar
)

// How a send waits on I/O, see [WithWaiter].
type (
	Waiter     = iowait.Waiter
	Blocking   = iowait.Blocking
	Suspending = iowait.Suspending
)

// NewClient builds a client from cfg, nil meaning [DefaultConfig]. A zero
// [Client] is equally usable.
func NewClient(cfg *Config, opts ...Option) (*Client, error) {
	return internal.New(cfg, opts...)
}

func DefaultConfig() *Config { return config.Default() }

// LoadConfig reads the TOML file at path, if any, then H1_* environment
// variables over the defaults.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }
