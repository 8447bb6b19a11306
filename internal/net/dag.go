// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package net implements the DAG execution engine: it compiles an
// operator graph into execution chains and drives them to completion
// across a pool of persistent worker goroutines.
//
// Two net types share the driver. DAG runs each chain's operators to
// completion inside a worker before releasing children. AsyncDAG
// dispatches device work without waiting, records a completion event on
// each chain's last operator, and releases children once their parents
// have recorded; the final blocking wait on terminal events happens
// only at the end of the run, which is what lets chains on different
// devices overlap.
package net

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/born-ml/dagnet/internal/config"
	"github.com/born-ml/dagnet/internal/device"
	"github.com/born-ml/dagnet/internal/graph"
	"github.com/google/uuid"
)

// Net is a runnable compiled graph.
type Net interface {
	// Name returns the net's configured name.
	Name() string

	// Run executes the whole graph and reports overall success. It
	// blocks until every operator has completed or a failure has been
	// observed. Failure details are available only in the logs, keyed
	// by operator name and type. Only one Run may be in flight at a
	// time; concurrent calls block until the prior run exits.
	Run() bool

	// Benchmark runs warmupRuns untimed iterations followed by mainRuns
	// timed ones and returns average wall-clock milliseconds per
	// iteration.
	Benchmark(warmupRuns, mainRuns int) (float64, error)

	// Stats returns per-device timing aggregates, or nil when stats
	// collection is disabled.
	Stats() map[device.Device]DeviceStats

	// Shutdown closes the ready queue and joins the worker pool. The
	// net cannot run again afterwards.
	Shutdown()
}

// enforce is the engine's internal-consistency check. A violation means
// the scheduling state is corrupted; continuing could silently produce
// wrong numerical results, so abort loudly instead.
func enforce(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// chainRunner is the per-net-type chain execution strategy.
type chainRunner interface {
	// beforeRun resets any per-run runner state.
	beforeRun()

	// runChain executes one chain and reports its success.
	runChain(chainID int, chain []int) bool

	// afterRun completes the run after the scheduling loop has drained
	// and reports whether all deferred device work retired cleanly.
	afterRun() bool
}

// execState is the per-run accounting shared by workers and the driver,
// serialized through its mutex.
type execState struct {
	mu   sync.Mutex
	cond *sync.Cond

	// remainingOps counts not-yet-completed operators, decremented by
	// whole chains.
	remainingOps int

	// success is sticky: once false it stays false for the run.
	success bool
}

func (s *execState) failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.success
}

// dagNet is the shared scheduler driving either chain runner.
type dagNet struct {
	name   string
	logger *slog.Logger

	graph    *graph.Graph
	chains   graph.Chains
	frontier []int
	runner   chainRunner

	numWorkers int

	// runInProgress admits one Run at a time.
	runInProgress sync.Mutex
	iter          int64

	// jobs is the ready-chain queue. Its capacity is the node count, so
	// every push in a run fits without blocking; closing it is the only
	// cancellation mechanism. Pushes and the close both happen under
	// state.mu, which is what makes them safe against each other.
	jobs           chan int
	workerWG       sync.WaitGroup
	workersStarted int
	closed         bool

	state execState
	stats *statsCollector
}

// newDAGNet compiles the graph into chains and prepares the scheduler.
func newDAGNet(g *graph.Graph, cfg config.Config) (*dagNet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = "net"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("net", cfg.Name)

	numWorkers := cfg.NumWorkers
	if numWorkers == 0 {
		numWorkers = 1
		logger.Warn("num_workers not set, defaulting to 1")
	}
	if numWorkers == 1 {
		logger.Warn("number of workers is 1: all operator chains will execute sequentially")
	}

	var chains graph.Chains
	if cfg.DisableChaining {
		chains = graph.SingleChains(g)
	} else {
		chains = graph.ComputeChains(g)
	}
	logger.Info("compiled execution chains",
		"chains", len(chains), "operators", g.NumNodes(), "workers", numWorkers)

	n := &dagNet{
		name:       cfg.Name,
		logger:     logger,
		graph:      g,
		chains:     chains,
		frontier:   g.InitialFrontier(),
		numWorkers: numWorkers,
	}
	n.state.cond = sync.NewCond(&n.state.mu)
	if cfg.CollectStats {
		n.stats = newStatsCollector()
	}
	return n, nil
}

// NewDAG compiles the graph into a synchronous DAG net: chains run to
// completion inside a worker before children are released.
func NewDAG(g *graph.Graph, cfg config.Config) (Net, error) {
	n, err := newDAGNet(g, cfg)
	if err != nil {
		return nil, err
	}
	n.runner = &syncRunner{n: n}
	return n, nil
}

// Name returns the net's configured name.
func (n *dagNet) Name() string { return n.name }

// Stats returns per-device timing aggregates, or nil when disabled.
func (n *dagNet) Stats() map[device.Device]DeviceStats {
	if n.stats == nil {
		return nil
	}
	return n.stats.snapshot()
}

// Run drives the graph to completion or first failure.
func (n *dagNet) Run() bool {
	n.runInProgress.Lock()
	defer n.runInProgress.Unlock()
	enforce(!n.closed, "net %q: Run called after Shutdown", n.name)

	n.iter++
	logger := n.logger.With("run_id", uuid.NewString(), "iter", n.iter)
	logger.Debug("starting parallel run")

	n.graph.ResetRuntimeParentCounts()
	n.state.mu.Lock()
	n.state.remainingOps = n.graph.NumNodes()
	n.state.success = true
	n.state.mu.Unlock()

	n.runner.beforeRun()

	if n.jobs == nil {
		n.jobs = make(chan int, n.graph.NumNodes())
	}
	// Start any missing workers lazily; the pool persists across runs
	// and is only rebuilt after a failed run tears it down.
	for i := n.workersStarted; i < n.numWorkers; i++ {
		n.workerWG.Add(1)
		go n.workerLoop(i)
	}
	n.workersStarted = n.numWorkers

	// Kickstart the queue with the initial frontier, then wait until
	// all operators are done or something failed.
	n.state.mu.Lock()
	for _, idx := range n.frontier {
		if !n.state.success {
			break
		}
		if n.stats != nil {
			n.stats.markQueued(idx)
		}
		n.jobs <- idx
	}
	for n.state.remainingOps > 0 && n.state.success {
		n.state.cond.Wait()
	}
	success := n.state.success
	n.state.mu.Unlock()

	if !success {
		// The failing worker closed the queue; the pool drains and
		// exits, and the next Run rebuilds it.
		n.workerWG.Wait()
		n.jobs = nil
		n.workersStarted = 0
	}

	if !n.runner.afterRun() {
		success = false
	}

	if success {
		for _, node := range n.graph.Nodes {
			count := node.RuntimeParentCount.Load()
			enforce(count == 0,
				"net %q: op %q (%s) has %d runtime parents left after a successful run",
				n.name, node.Op.Name(), node.Op.Type(), count)
		}
	}

	logger.Debug("run finished", "success", success)
	return success
}

// workerLoop pops ready chains and executes them until the queue is
// closed. Workers persist across runs.
func (n *dagNet) workerLoop(workerID int) {
	defer n.workerWG.Done()
	logger := n.logger.With("worker", workerID)
	logger.Debug("worker started")

	for chainID := range n.jobs {
		if n.state.failed() {
			// Another chain failed; drain without executing.
			continue
		}

		chain, ok := n.chains[chainID]
		enforce(ok, "net %q: no execution chain for ready node %d", n.name, chainID)

		headOp := n.graph.Nodes[chainID].Op
		if n.stats != nil {
			n.stats.markStarted(chainID, headOp.Device())
		}

		start := time.Now()
		chainOK := n.runner.runChain(chainID, chain)
		if n.stats != nil {
			n.stats.observeRun(headOp.Device(), time.Since(start))
		}
		if !chainOK {
			logger.Error("operator chain failed",
				"chain", chainID, "op", headOp.Name(), "op_type", headOp.Type())
		}

		// Book-keeping: release children whose last parent completed.
		var toQueue []int
		for _, idx := range chain {
			for _, child := range n.graph.Nodes[idx].Children {
				childNode := n.graph.Nodes[child]
				count := childNode.RuntimeParentCount.Add(-1)
				enforce(count >= 0,
					"net %q: negative runtime parent count for op %q (%s)",
					n.name, childNode.Op.Name(), childNode.Op.Type())
				if count == 0 && childNode.IsChainStart {
					toQueue = append(toQueue, child)
				}
			}
		}

		n.state.mu.Lock()
		alreadyFailed := !n.state.success
		n.state.remainingOps -= len(chain)
		n.state.success = n.state.success && chainOK
		if n.state.remainingOps == 0 || !n.state.success {
			n.state.cond.Signal()
		}
		if !n.state.success {
			// Terminate the worker if this or any other chain failed.
			// The first observer closes the queue; later ones just exit.
			if !alreadyFailed {
				close(n.jobs)
			}
			n.state.mu.Unlock()
			return
		}
		// Queue follow-up chains while holding the lock: a concurrent
		// failure must not close the queue mid-push.
		for _, idx := range toQueue {
			if n.stats != nil {
				n.stats.markQueued(idx)
			}
			n.jobs <- idx
		}
		n.state.mu.Unlock()
	}

	logger.Debug("worker exiting")
}

// Shutdown closes the ready queue and joins all workers.
func (n *dagNet) Shutdown() {
	n.runInProgress.Lock()
	defer n.runInProgress.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	if n.jobs != nil {
		n.state.mu.Lock()
		close(n.jobs)
		n.state.mu.Unlock()
		n.workerWG.Wait()
		n.jobs = nil
	}
	n.logger.Debug("net shut down")
}

// syncRunner executes each chain's operators to completion, in order.
type syncRunner struct {
	n *dagNet
}

func (r *syncRunner) beforeRun() {}

func (r *syncRunner) afterRun() bool { return true }

func (r *syncRunner) runChain(chainID int, chain []int) bool {
	for i, idx := range chain {
		if i > 0 && r.n.state.failed() {
			// Another chain failed; finish the current node but do not
			// continue the chain.
			return false
		}
		o := r.n.graph.Nodes[idx].Op
		if !o.Run() {
			r.n.logger.Error("operator failed", "op", o.Name(), "op_type", o.Type())
			return false
		}
	}
	return true
}
