package faults

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/params"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/sim"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

// TickConfig holds the tick handler's tunables, read once at init.
type TickConfig struct {
	// LockedFriction is written to a joint on activation, effectively
	// locking it in place.
	LockedFriction float64
	// Namespace prefixes every fault key when reading the flag store,
	// e.g. "faults/".
	Namespace string
}

// TransitionFunc observes every completed fault transition.
type TransitionFunc func(core.FaultTransition)

// TickHandler drives all joint fault state machines once per physics tick.
type TickHandler struct {
	mu sync.Mutex

	table *Table
	flags params.Store
	svc   sim.Service
	cfg   TickConfig

	logger       *slog.Logger
	onTransition TransitionFunc

	tick        uint64
	lastSkipped uint
}

// NewTickHandler creates a tick handler over the given fault table.
// onTransition may be nil.
func NewTickHandler(table *Table, flags params.Store, svc sim.Service, cfg TickConfig, logger *slog.Logger, onTransition TransitionFunc) *TickHandler {
	return &TickHandler{
		table:        table,
		flags:        flags,
		svc:          svc,
		cfg:          cfg,
		logger:       logger,
		onTransition: onTransition,
	}
}

// OnTick processes every tracked joint once. For each joint it reads the
// external flag (absent reads as false) and applies the transition table:
// inactive joints with a set flag capture the current friction and lock the
// joint; active joints with a cleared flag restore the captured value
// exactly. Same-state reads are no-ops. A joint missing from the model is
// logged and skipped with its state preserved, so the transition retries on
// the next tick.
func (h *TickHandler) OnTick(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.tick++
	h.lastSkipped = 0

	for _, name := range h.table.Names() {
		info, _ := h.table.Get(name)
		enabled := h.flags.GetBool(h.cfg.Namespace + info.FaultKey)

		switch {
		case enabled && !info.Activated:
			h.activate(ctx, name, info)
		case !enabled && info.Activated:
			h.deactivate(ctx, name, info)
		}
	}
}

// Tick returns the number of completed OnTick invocations.
func (h *TickHandler) Tick() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tick
}

// LastSkipped returns how many joints were skipped on the most recent tick.
func (h *TickHandler) LastSkipped() uint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastSkipped
}

func (h *TickHandler) activate(ctx context.Context, name string, info *JointFaultInfo) {
	friction, err := h.svc.JointFriction(ctx, name)
	if err != nil {
		h.skip(name, info.FaultKey, err)
		return
	}
	if err := h.svc.SetJointFriction(ctx, name, h.cfg.LockedFriction); err != nil {
		h.skip(name, info.FaultKey, err)
		return
	}

	info.SavedFriction = friction
	info.Activated = true
	h.logger.Info("joint fault activated", "joint", name, "fault", info.FaultKey)
	h.record(name, info.FaultKey, true, friction)
}

func (h *TickHandler) deactivate(ctx context.Context, name string, info *JointFaultInfo) {
	if err := h.svc.SetJointFriction(ctx, name, info.SavedFriction); err != nil {
		h.skip(name, info.FaultKey, err)
		return
	}

	info.Activated = false
	h.logger.Info("joint fault deactivated", "joint", name, "fault", info.FaultKey)
	h.record(name, info.FaultKey, false, info.SavedFriction)
}

func (h *TickHandler) skip(name, faultKey string, err error) {
	h.lastSkipped++
	if errors.Is(err, sim.ErrJointNotFound) {
		// Model not ready yet; the transition retries next tick.
		h.logger.Debug("joint not in model, skipping", "joint", name)
		return
	}
	h.logger.Error("joint fault transition failed",
		"joint", name, "fault", faultKey, "error", err)
}

func (h *TickHandler) record(name, faultKey string, activated bool, friction float64) {
	if h.onTransition == nil {
		return
	}
	h.onTransition(core.FaultTransition{
		Time:      time.Now(),
		Tick:      h.tick,
		JointName: name,
		FaultKey:  faultKey,
		Activated: activated,
		Friction:  friction,
	})
}
