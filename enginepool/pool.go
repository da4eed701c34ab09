// Package enginepool owns a fixed-size pool of long-lived UCI engine
// subprocesses, dispatches submitted tasks to them fairly, and replaces an
// engine the moment it is found dead or fails to answer within a task's
// timeout. It is the Go port of the reference EnginePool/WorkCoordinator:
// asyncio's Queue/Future pair becomes a buffered channel of work items and
// a one-shot result channel per submission.
package enginepool

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/notnil/chess/uci"

	"blundertutor/telemetry/logging"
	"blundertutor/telemetry/metrics"
)

// Engine is the capability the pool drives. *uci.Engine satisfies it;
// tests substitute a fake to exercise pool behavior without a real
// subprocess.
type Engine interface {
	Run(cmds ...uci.Cmd) error
	SearchResults() uci.SearchResults
	Close() error
}

// Spawner creates and hands back one fully-initialized engine (uci/
// isready/ucinewgame already sent). The default spawner then sends
// setoption for Threads and, when HashMB is set, Hash, without checking
// whether the engine advertises those options and ignoring any error.
type Spawner func(ctx context.Context) (Engine, error)

// Task is a unit of work submitted to the pool. It receives exclusive use
// of one engine for its entire duration.
type Task func(ctx context.Context, engine Engine) (any, error)

// Future is the single-consumer handle returned by Submit.
type Future struct {
	done  chan struct{}
	once  sync.Once
	value any
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(v any, err error) {
	f.once.Do(func() {
		f.value = v
		f.err = err
		close(f.done)
	})
}

// Wait blocks until the task completes, the pool resolves it with an
// error (timeout, cancellation), or the caller's context is done first.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type workItem struct {
	task   Task
	future *Future
}

// Options configures a Pool.
type Options struct {
	EnginePath       string
	Size             int
	ThreadsPerEngine int // default: max(1, runtime.NumCPU()/Size)
	HashMB           int
	TaskTimeout      time.Duration // 0 disables the per-task timeout
	Spawner          Spawner       // default: spawn the real UCI binary at EnginePath
}

// Pool owns N engine handles and the workers driving them.
type Pool struct {
	opts Options

	queue chan *workItem
	wg    sync.WaitGroup

	mu      sync.Mutex
	engines []Engine

	shuttingDown atomic.Bool
	inFlight     sync.WaitGroup

	logger  logging.Logger
	metrics metrics.Provider
}

// New constructs a pool. Start must be called before Submit.
func New(opts Options, logger logging.Logger, metricsProvider metrics.Provider) *Pool {
	if opts.Size <= 0 {
		opts.Size = 1
	}
	if opts.ThreadsPerEngine <= 0 {
		opts.ThreadsPerEngine = max(1, runtime.NumCPU()/opts.Size)
	}
	if opts.Spawner == nil {
		opts.Spawner = defaultSpawner(opts)
	}
	if logger == nil {
		logger = logging.NoOp()
	}
	if metricsProvider == nil {
		metricsProvider = metrics.NoOp()
	}
	return &Pool{
		opts:    opts,
		queue:   make(chan *workItem, 4096),
		engines: make([]Engine, 0, opts.Size),
		logger:  logger,
		metrics: metricsProvider,
	}
}

func defaultSpawner(opts Options) Spawner {
	return func(ctx context.Context) (Engine, error) {
		eng, err := uci.New(opts.EnginePath)
		if err != nil {
			return nil, fmt.Errorf("enginepool: spawn %q: %w", opts.EnginePath, err)
		}
		if err := eng.Run(uci.CmdUCI, uci.CmdIsReady, uci.CmdUCINewGame); err != nil {
			eng.Close()
			return nil, fmt.Errorf("enginepool: initialize %q: %w", opts.EnginePath, err)
		}
		if opts.ThreadsPerEngine > 0 {
			_ = eng.Run(uci.CmdSetOption{Name: "Threads", Value: strconv.Itoa(opts.ThreadsPerEngine)})
		}
		if opts.HashMB > 0 {
			_ = eng.Run(uci.CmdSetOption{Name: "Hash", Value: strconv.Itoa(opts.HashMB)})
		}
		return eng, nil
	}
}

// Start spawns Size engines and launches one worker driver per engine.
func (p *Pool) Start(ctx context.Context) error {
	for i := 0; i < p.opts.Size; i++ {
		eng, err := p.opts.Spawner(ctx)
		if err != nil {
			p.closeEngines()
			return err
		}
		p.engines = append(p.engines, eng)
	}

	for i := 0; i < p.opts.Size; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	return nil
}

// Size returns the number of live engine handles currently held.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.engines)
}

// Submit enqueues a task and returns a Future the caller awaits. The
// queue is a buffered channel of 4096 items: Submit returns at once while
// the buffer has room and blocks until a worker takes an item once it is
// full.
func (p *Pool) Submit(task Task) (*Future, error) {
	if p.shuttingDown.Load() {
		return nil, ErrShuttingDown
	}
	future := newFuture()
	p.inFlight.Add(1)
	p.queue <- &workItem{task: task, future: future}
	return future, nil
}

// Drain blocks until every currently-queued task has completed.
func (p *Pool) Drain() {
	p.inFlight.Wait()
}

// Shutdown sets the shutdown flag, sends one termination sentinel per
// worker, waits for every worker to exit, then sends `quit` to every
// engine still alive, tolerating errors.
func (p *Pool) Shutdown() {
	if !p.shuttingDown.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < p.opts.Size; i++ {
		p.queue <- nil // sentinel
	}
	p.wg.Wait()
	p.closeEngines()
}

func (p *Pool) closeEngines() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, eng := range p.engines {
		if eng == nil {
			continue
		}
		_ = eng.Close()
	}
	p.engines = nil
}

// worker is one driver loop, as specified: take an item, exit on sentinel,
// verify liveness (respawning if dead and not shutting down), run the task
// under the configured timeout, always mark the queue item done.
func (p *Pool) worker(ctx context.Context, slot int) {
	defer p.wg.Done()

	for raw := range p.queue {
		if raw == nil {
			return
		}
		p.runItem(ctx, slot, raw)
	}
}

func (p *Pool) runItem(ctx context.Context, slot int, item *workItem) {
	defer p.inFlight.Done()

	if ctx.Err() != nil {
		item.future.resolve(nil, ErrCancelled)
		return
	}

	eng, err := p.ensureAlive(ctx, slot)
	if err != nil {
		item.future.resolve(nil, err)
		return
	}

	taskCtx := ctx
	var cancel context.CancelFunc
	if p.opts.TaskTimeout > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, p.opts.TaskTimeout)
		defer cancel()
	}

	resultCh := make(chan struct {
		v   any
		err error
	}, 1)
	go func() {
		v, err := item.task(taskCtx, eng)
		resultCh <- struct {
			v   any
			err error
		}{v, err}
	}()

	select {
	case res := <-resultCh:
		item.future.resolve(res.v, res.err)
	case <-taskCtx.Done():
		p.metrics.IncCounter("blundertutor_engine_timeouts_total", 1)
		p.logger.ErrorCtx(ctx, "enginepool: task timed out, killing and respawning engine", "slot", slot)
		p.killAndRespawn(ctx, slot)
		item.future.resolve(nil, ErrTaskTimeout)
	}
}

// ensureAlive probes the engine in `slot` with isready; if that fails and
// the pool is not shutting down, it respawns. If the pool is shutting
// down, submission errors out immediately, matching the reference
// `_ensure_alive` raising once shutdown has begun.
func (p *Pool) ensureAlive(ctx context.Context, slot int) (Engine, error) {
	if p.shuttingDown.Load() {
		return nil, ErrShuttingDown
	}

	p.mu.Lock()
	eng := p.engines[slot]
	p.mu.Unlock()

	if eng != nil && eng.Run(uci.CmdIsReady) == nil {
		return eng, nil
	}

	p.metrics.IncCounter("blundertutor_engine_respawns_total", 1)
	return p.respawn(ctx, slot)
}

func (p *Pool) killAndRespawn(ctx context.Context, slot int) {
	p.mu.Lock()
	eng := p.engines[slot]
	p.mu.Unlock()
	if eng != nil {
		_ = eng.Close()
	}
	p.metrics.IncCounter("blundertutor_engine_respawns_total", 1)
	if _, err := p.respawn(ctx, slot); err != nil {
		p.logger.ErrorCtx(ctx, "enginepool: respawn after kill failed", "slot", slot, "error", err)
	}
}

func (p *Pool) respawn(ctx context.Context, slot int) (Engine, error) {
	eng, err := p.opts.Spawner(ctx)
	if err != nil {
		return nil, fmt.Errorf("enginepool: respawn slot %d: %w", slot, err)
	}
	p.mu.Lock()
	p.engines[slot] = eng
	p.mu.Unlock()
	return eng, nil
}
