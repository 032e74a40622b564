// Package core provides the timing model of an LC-3b core.
// It binds a scheduler to the architectural state, the trap handler and the
// optional data cache profiler, and provides a high-level interface.
package core

import (
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"

	"github.com/sarchlab/lc3bsim/emu"
	"github.com/sarchlab/lc3bsim/timing/cache"
	"github.com/sarchlab/lc3bsim/timing/config"
	"github.com/sarchlab/lc3bsim/timing/pipeline"
)

type options struct {
	config      *config.Config
	kind        pipeline.Kind
	kindSet     bool
	logger      logr.Logger
	trapHandler emu.TrapHandler
	stdin       io.Reader
	stdout      io.Writer
}

// Option configures a Core.
type Option func(*options)

// WithConfig sets the run configuration. The default is
// config.DefaultConfig().
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithKind overrides the scheduler named by the configuration.
func WithKind(kind pipeline.Kind) Option {
	return func(o *options) {
		o.kind = kind
		o.kindSet = true
	}
}

// WithLogger sets the logger handed to the scheduler.
func WithLogger(logger logr.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTrapHandler replaces the console trap handler.
func WithTrapHandler(handler emu.TrapHandler) Option {
	return func(o *options) {
		o.trapHandler = handler
	}
}

// WithStdin sets the reader the default trap handler reads input from.
func WithStdin(r io.Reader) Option {
	return func(o *options) {
		o.stdin = r
	}
}

// WithStdout sets the writer the default trap handler prints to.
func WithStdout(w io.Writer) Option {
	return func(o *options) {
		o.stdout = w
	}
}

// Core represents the timing model of one LC-3b core.
type Core struct {
	// Scheduler computes the pipeline timing.
	Scheduler pipeline.Scheduler

	kind   pipeline.Kind
	config *config.Config
	dcache *cache.Cache

	// flushed is set once the cache has been drained after a halt.
	flushed bool

	// Shared resources
	regFile *emu.RegFile
	memory  *emu.Memory
}

// NewCore creates a new Core over the given register file and memory.
func NewCore(regFile *emu.RegFile, memory *emu.Memory, opts ...Option) (*Core, error) {
	o := options{
		logger: logr.Discard(),
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg = cfg.Clone()
	if o.kindSet {
		cfg.Scheduler = o.kind.String()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	kind, err := cfg.Kind()
	if err != nil {
		return nil, err
	}

	c := &Core{
		kind:    kind,
		config:  cfg,
		regFile: regFile,
		memory:  memory,
	}

	handler := o.trapHandler
	if handler == nil {
		h := emu.NewDefaultTrapHandler(regFile, memory, o.stdout)
		h.SetStdin(o.stdin)
		handler = h
	}

	semOpts := []emu.SemanticsOption{emu.WithTrapHandler(handler)}
	if cfg.DCache.Enabled {
		c.dcache = cache.New(cfg.DCache.Geometry())
		semOpts = append(semOpts, emu.WithAccessProbe(c.dcache))
	}

	c.Scheduler, err = pipeline.New(kind, emu.NewSemantics(regFile, memory, semOpts...),
		pipeline.WithLogger(o.logger.WithValues("scheduler", kind.String())),
		pipeline.WithMaxInstructions(cfg.MaxInstructions),
		pipeline.WithTimelineCapacity(cfg.TimelineCapacity),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %v scheduler: %w", kind, err)
	}

	return c, nil
}

// Kind returns the scheduler kind.
func (c *Core) Kind() pipeline.Kind {
	return c.kind
}

// Config returns the effective configuration.
func (c *Core) Config() *config.Config {
	return c.config
}

// RegFile returns the register file.
func (c *Core) RegFile() *emu.RegFile {
	return c.regFile
}

// Memory returns the memory.
func (c *Core) Memory() *emu.Memory {
	return c.memory
}

// DCache returns the data cache profiler, or nil when it is disabled.
func (c *Core) DCache() *cache.Cache {
	return c.dcache
}

// Advance moves the scheduler forward by one unit.
func (c *Core) Advance() error {
	return c.Scheduler.Advance()
}

// Done returns true once the core has halted or failed.
func (c *Core) Done() bool {
	return c.Scheduler.Done()
}

// Halted returns true if the core stopped normally.
func (c *Core) Halted() bool {
	return c.Scheduler.Done() && c.Scheduler.Err() == nil
}

// Stats returns the scheduler statistics.
func (c *Core) Stats() pipeline.Statistics {
	return c.Scheduler.Stats()
}

// Run executes the core until it halts.
func (c *Core) Run() error {
	return c.Scheduler.Run()
}

// Reset clears the scheduling state and cache statistics. Architectural
// state is not restored.
func (c *Core) Reset() {
	c.Scheduler.Reset()
	if c.dcache != nil {
		c.dcache.Reset()
	}
	c.flushed = false
}

// Result returns a snapshot of the run so far. Once the machine has
// halted, dirty cache lines are flushed so the final writebacks are counted.
func (c *Core) Result() Result {
	if c.dcache != nil && c.Halted() && !c.flushed {
		c.dcache.Flush()
		c.flushed = true
	}

	r := Result{
		Kind:     c.kind,
		RegFile:  *c.regFile,
		Cycles:   c.Scheduler.Cycles(),
		Schedule: c.Scheduler.Schedule(),
		Stats:    c.Scheduler.Stats(),
		Halted:   c.Halted(),
		Clock:    c.config.ClockFrequency,
	}

	if c.dcache != nil {
		r.CacheEnabled = true
		r.Cache = c.dcache.Stats()
	}

	return r
}
