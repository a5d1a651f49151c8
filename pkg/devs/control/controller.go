package control

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jabolina/go-devs/pkg/devs/core"
	"github.com/jabolina/go-devs/pkg/devs/router"
	"github.com/jabolina/go-devs/pkg/devs/scheduler"
	"github.com/jabolina/go-devs/pkg/devs/types"
)

// Controller resolves a model set and a Configuration into located LPs,
// drives every LP to completion through an Invoker-owned worker pool, and
// aggregates the first fatal error -- the outward-facing driver spec.md
// §6 describes as "Controller configuration".
type Controller struct {
	cfg      Configuration
	location *LocationTable
	lps      []core.LP
	gvt      *core.GVTCoordinator

	// RunID tags every log line this run emits so concurrent runs (or
	// successive runs in the same process, e.g. under `go test -run`)
	// can be told apart in aggregated log output.
	RunID string
}

// NewController validates cfg, allocates every model to an LP via
// cfg.Allocator, and builds one core.LP per LP index in the requested
// Mode. It does not start anything; call Run to drive the simulation.
func NewController(cfg Configuration, models []types.AtomicModel) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, types.NewKernelError(types.ErrKindConfiguration, -1, fmt.Errorf("%w: no models registered", types.ErrInvalidConfiguration))
	}

	location := NewLocationTable()
	perLP := make([][]types.AtomicModel, cfg.CoreCount)
	for _, m := range models {
		lp := cfg.Allocator(m)
		if lp < 0 || lp >= cfg.CoreCount {
			return nil, types.NewKernelError(types.ErrKindConfiguration, -1, fmt.Errorf("%w: allocator returned lp %d for model %q outside [0,%d)", types.ErrInvalidConfiguration, lp, m.Name(), cfg.CoreCount))
		}
		location.Assign(m.ID(), lp)
		perLP[lp] = append(perLP[lp], m)
	}

	inboxes := make([]*router.Inbox, cfg.CoreCount)
	for i := range inboxes {
		inboxes[i] = router.NewInbox(cfg.InboxCapacity)
	}

	locate := func(id types.ModelID) int { return location.Locate(id) }

	var eot *router.EOTVector
	if cfg.Mode == ModeConservative {
		eot = router.NewEOTVector(cfg.CoreCount, zeroOf(cfg.Infinity))
	}

	c := &Controller{cfg: cfg, location: location, RunID: uuid.NewString()}
	cfg.Logger.Infof("run %s: wiring %d model(s) across %d lp(s) in %s mode", c.RunID, len(models), cfg.CoreCount, cfg.Mode)

	var committers []core.Committer
	for i := 0; i < cfg.CoreCount; i++ {
		net := router.NewNetwork(i, locate, inboxes, eot)
		k := core.NewKernel(i, scheduler.NewHeap(), net, cfg.Listener, cfg.Logger, cfg.Infinity)
		for _, m := range perLP[i] {
			if err := k.Register(m); err != nil {
				return nil, err
			}
		}

		switch cfg.Mode {
		case ModeSequential:
			c.lps = append(c.lps, core.NewSequentialLP(k, cfg.EndTime, cfg.Predicate, cfg.Logger))
		case ModeConservative:
			influencers := cfg.LPGraph.Influencers(i)
			c.lps = append(c.lps, core.NewConservativeLP(k, net, eot, i, influencers, cfg.EndTime, cfg.Predicate, cfg.Logger))
		case ModeOptimistic:
			opt := core.NewOptimisticLP(k, net, i, cfg.EndTime, cfg.Predicate, cfg.Logger)
			c.lps = append(c.lps, opt)
			committers = append(committers, opt)
		default:
			return nil, types.NewKernelError(types.ErrKindConfiguration, -1, fmt.Errorf("%w: unknown mode %v", types.ErrInvalidConfiguration, cfg.Mode))
		}
	}

	if cfg.Mode == ModeOptimistic {
		c.gvt = core.NewGVTCoordinator(committers, inboxes, cfg.Infinity, cfg.GVTInterval)
	}

	return c, nil
}

func zeroOf(infinity types.Timestamp) types.Timestamp {
	z, _ := infinity.At.Sub(infinity.At)
	return types.Timestamp{At: z}
}

// Run spawns every LP onto its own goroutine via core.WorkerPool and
// blocks until every LP finishes or one returns a fatal error; the first
// such error cancels the rest cooperatively, per spec.md §7. In
// optimistic mode the GVT coordinator runs alongside on its own
// goroutine, stopped once every LP has finished -- it has no "done"
// condition of its own, since GVT must keep advancing for as long as any
// LP might still roll back.
func (c *Controller) Run(ctx context.Context) error {
	pool, gctx := core.NewWorkerPool(ctx)
	for _, lp := range c.lps {
		lp := lp
		pool.Spawn(func() error { return lp.Run(gctx) })
	}

	var gvtDone chan struct{}
	var cancelGVT context.CancelFunc
	if c.gvt != nil {
		var gvtCtx context.Context
		gvtCtx, cancelGVT = context.WithCancel(ctx)
		gvtDone = make(chan struct{})
		go func() {
			defer close(gvtDone)
			_ = c.gvt.Run(gvtCtx)
		}()
	}

	err := pool.Wait()
	if cancelGVT != nil {
		cancelGVT()
		<-gvtDone
	}
	if err != nil {
		c.cfg.Logger.Errorf("run %s: stopped with error: %v", c.RunID, err)
	} else {
		c.cfg.Logger.Infof("run %s: all lp(s) terminated cleanly", c.RunID)
	}
	return err
}

// LPCount reports how many LPs this run was wired with.
func (c *Controller) LPCount() int {
	return len(c.lps)
}
