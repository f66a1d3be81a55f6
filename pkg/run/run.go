// Package run owns the UI goroutine: a fully serial frame loop that drains
// posted tasks, recomposes invalidated scopes, flushes node commands to the
// applier, and runs layout, draw and frame callbacks in a fixed order.
package run

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"time"

	"github.com/weftui/weft/pkg/applier"
	"github.com/weftui/weft/pkg/comp"
	"github.com/weftui/weft/pkg/logutil"
	"github.com/weftui/weft/pkg/snapshot"
)

var logger = logutil.GetLogger("[run] ")

// Buffer size of the posted-task channel. The value is chosen for no
// particular reason.
const postChSize = 128

// FrameCallback runs at the end of a frame with the frame's timestamp.
type FrameCallback func(now time.Time)

// Task is polled once per frame on the UI goroutine until it reports done.
// It must observe ctx cancellation and wind down cooperatively.
type Task func(ctx context.Context) (done bool)

// Spec configures a Loop. Composer and Queue are required; Applier receives
// the flushed node commands each frame.
type Spec struct {
	Composer *comp.Composer
	Queue    *applier.Queue
	Applier  applier.Applier

	// Render runs after commands are applied, before frame callbacks.
	// Layout and draw live here.
	Render func()

	// CheckAffinity installs a state-access assertion binding snapshot
	// reads and writes to the loop goroutine while the loop runs.
	CheckAffinity bool
}

// InvokeID names a registered UI continuation.
type InvokeID uint64

type invocation struct {
	id    InvokeID
	value any
}

type uiTask struct {
	f         Task
	ctx       context.Context
	cancel    context.CancelFunc
	cancelled bool
}

// TaskHandle controls a task started with [Loop.SpawnUI].
type TaskHandle struct {
	lp *Loop
	t  *uiTask
}

// Cancel signals the task's context and removes it from the poll list. It
// is a no-op after the loop has returned.
func (h *TaskHandle) Cancel() {
	h.t.cancel()
	h.lp.PostUI(func() { h.t.cancelled = true })
}

// Loop is the frame loop. All fields past the channels are owned by the
// loop goroutine.
type Loop struct {
	spec Spec

	postCh   chan func()
	frameCh  chan struct{}
	returnCh chan error

	uiTasks   []func()
	spawned   []*uiTask
	invokes   map[InvokeID]func(any)
	nextID    InvokeID
	callbacks []FrameCallback

	now func() time.Time
	gid uint64

	failedFrames int
}

// New creates a frame loop over the spec and points the composer's
// invalidation wakeup at it.
func New(spec Spec) *Loop {
	lp := &Loop{
		spec:     spec,
		postCh:   make(chan func(), postChSize),
		frameCh:  make(chan struct{}, 1),
		returnCh: make(chan error, 1),
		invokes:  make(map[InvokeID]func(any)),
		now:      time.Now,
	}
	spec.Composer.SetInvalidateFunc(lp.ScheduleFrame)
	return lp
}

// ScheduleFrame requests a frame. It is idempotent within a frame and
// never blocks.
func (lp *Loop) ScheduleFrame() {
	select {
	case lp.frameCh <- struct{}{}:
	default:
	}
}

// PostUI schedules f to run on the loop goroutine during the next frame's
// task drain. It may be called from any goroutine and blocks only when the
// post buffer is full.
func (lp *Loop) PostUI(f func()) {
	lp.postCh <- f
	lp.ScheduleFrame()
}

// RegisterInvoke registers a continuation and returns its ID. Loop
// goroutine only.
func (lp *Loop) RegisterInvoke(f func(any)) InvokeID {
	lp.nextID++
	lp.invokes[lp.nextID] = f
	return lp.nextID
}

// PostInvoke resumes the continuation registered under id with value, from
// any goroutine. Unknown IDs are dropped silently.
func (lp *Loop) PostInvoke(id InvokeID, value any) {
	lp.PostUI(func() {
		f, ok := lp.invokes[id]
		if !ok {
			return
		}
		delete(lp.invokes, id)
		f(value)
	})
}

// EnqueueUITask queues f for this or the next frame's task drain. Loop
// goroutine only; f may capture loop-owned state freely.
func (lp *Loop) EnqueueUITask(f func()) {
	lp.uiTasks = append(lp.uiTasks, f)
	lp.ScheduleFrame()
}

// SpawnUI starts polling t once per frame until it reports done or its
// handle is cancelled.
func (lp *Loop) SpawnUI(t Task) *TaskHandle {
	ctx, cancel := context.WithCancel(context.Background())
	ut := &uiTask{f: t, ctx: ctx, cancel: cancel}
	lp.PostUI(func() { lp.spawned = append(lp.spawned, ut) })
	return &TaskHandle{lp: lp, t: ut}
}

// OnFrame registers a one-shot callback for the end of the next frame.
func (lp *Loop) OnFrame(cb FrameCallback) {
	lp.callbacks = append(lp.callbacks, cb)
	lp.ScheduleFrame()
}

// Return requests the loop to return err. It never blocks; calls after the
// first in a loop iteration have no effect.
func (lp *Loop) Return(err error) {
	select {
	case lp.returnCh <- err:
	default:
	}
	lp.ScheduleFrame()
}

// FailedFrames returns how many frames panicked and were discarded.
func (lp *Loop) FailedFrames() int { return lp.failedFrames }

// Run runs the frame loop until Return is called. It is fully serial: no
// goroutines are spawned and no two callbacks ever run in parallel, so
// composition state needs no locking.
func (lp *Loop) Run() error {
	lp.gid = goroutineID()
	if lp.spec.CheckAffinity {
		snapshot.SetAffinityCheck(lp.checkAffinity)
		defer snapshot.SetAffinityCheck(nil)
	}
	for {
		select {
		case ret := <-lp.returnCh:
			return ret
		case f := <-lp.postCh:
			lp.uiTasks = append(lp.uiTasks, f)
		case <-lp.frameCh:
		}
		lp.runFrame()
		select {
		case ret := <-lp.returnCh:
			return ret
		default:
		}
	}
}

// runFrame runs one frame. Recomposition happens inside a mutable snapshot
// applied at the end of the step, so a panic mid-composition discards the
// frame's state writes wholesale. The panic path unwinds the composer,
// disposes the snapshot, re-invalidates the scopes that read the discarded
// writes, and still flushes whatever commands were emitted, keeping the
// applier consistent with the retained tree. The loop stays usable.
func (lp *Loop) runFrame() {
	var frameSnap *snapshot.Mutable
	defer func() {
		if r := recover(); r != nil {
			lp.spec.Composer.Abort()
			if frameSnap != nil {
				frameSnap.Dispose()
				lp.spec.Composer.InvalidateReaders(frameSnap.Modified())
			}
			lp.flushCommands()
			lp.failedFrames++
			logger.Println("frame failed:", r)
		}
	}()

	lp.drainTasks()
	if lp.spec.Composer.HasPending() {
		m := snapshot.TakeMutable(nil, nil)
		frameSnap = m
		m.Enter(func() { lp.spec.Composer.RecomposePending() })
		if res := m.Apply(); !res.Succeeded() {
			logger.Println("frame snapshot:", res)
			lp.spec.Composer.InvalidateReaders(m.Modified())
		}
		frameSnap = nil
	}
	lp.flushCommands()
	if lp.spec.Render != nil {
		lp.spec.Render()
	}

	now := lp.now()
	cbs := lp.callbacks
	lp.callbacks = nil
	for _, cb := range cbs {
		cb(now)
	}
}

func (lp *Loop) flushCommands() {
	if lp.spec.Applier != nil {
		lp.spec.Queue.Flush(lp.spec.Applier)
	} else {
		lp.spec.Queue.Drop()
	}
}

// drainTasks runs posted and UI tasks to a fixed point, with one poll of
// each spawned task in between. Unfinished tasks are re-polled next frame.
func (lp *Loop) drainTasks() {
	polled := false
	for {
	consumePosted:
		for {
			select {
			case f := <-lp.postCh:
				lp.uiTasks = append(lp.uiTasks, f)
			default:
				break consumePosted
			}
		}
		for len(lp.uiTasks) > 0 {
			f := lp.uiTasks[0]
			lp.uiTasks = lp.uiTasks[1:]
			f()
		}
		if polled || len(lp.spawned) == 0 {
			if len(lp.uiTasks) == 0 && len(lp.postCh) == 0 {
				return
			}
			continue
		}
		polled = true
		lp.pollSpawned()
	}
}

// pollSpawned polls each live task once and compacts the list.
func (lp *Loop) pollSpawned() {
	live := lp.spawned[:0]
	for _, t := range lp.spawned {
		if t.cancelled || t.ctx.Err() != nil {
			continue
		}
		if !t.f(t.ctx) {
			live = append(live, t)
		}
	}
	lp.spawned = live
	if len(lp.spawned) > 0 {
		lp.ScheduleFrame()
	}
}

func (lp *Loop) checkAffinity() {
	if goroutineID() != lp.gid {
		panic("run: state access off the loop goroutine")
	}
}

// goroutineID parses the current goroutine's ID from its stack header.
func goroutineID() uint64 {
	var buf [32]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	id, _ := strconv.ParseUint(string(fields[1]), 10, 64)
	return id
}
