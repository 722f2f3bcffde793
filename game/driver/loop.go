package driver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wricardo/blockfall/game/engine"
)

// ErrQuit is returned by Run when Quit ended the loop.
var ErrQuit = errors.New("driver: quit requested")

const (
	defaultQueueSize   = 64
	defaultFrameBuffer = 8
)

// Executor applies commands to exactly one game.
type Executor interface {
	Execute(ctx context.Context, cmd engine.Command) (engine.StepResult, error)
	Snapshot(ctx context.Context) (engine.Snapshot, error)
}

// engineExecutor drives an engine that nothing else touches.
type engineExecutor struct {
	eng *engine.GameEngine
}

// Engine adapts a bare engine to Executor. The loop becomes its only user.
func Engine(eng *engine.GameEngine) Executor {
	return engineExecutor{eng: eng}
}

func (e engineExecutor) Execute(_ context.Context, cmd engine.Command) (engine.StepResult, error) {
	return e.eng.Execute(cmd), nil
}

func (e engineExecutor) Snapshot(_ context.Context) (engine.Snapshot, error) {
	return e.eng.Snapshot(), nil
}

// Frame is one published view of the game.
type Frame struct {
	Snapshot engine.Snapshot
	// Step is the command that produced this frame, nil for clock-only frames.
	Step *engine.StepResult
}

// Option configures a Loop.
type Option func(*Loop)

// WithQueueSize sets how many submitted commands may wait.
func WithQueueSize(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.queueSize = n
		}
	}
}

// WithFrameBuffer sets how many frames may wait for a reader.
func WithFrameBuffer(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.frameBuffer = n
		}
	}
}

// WithKeepRunningAfterGameOver keeps the loop alive once the game ends so a
// reset can be submitted through the same executor.
func WithKeepRunningAfterGameOver() Option {
	return func(l *Loop) { l.stopOnGameOver = false }
}

// Loop is the single owner of an Executor. Gravity, queued input and frame
// publishing all happen on the goroutine calling Run.
type Loop struct {
	exec    Executor
	gravity time.Duration
	poll    time.Duration

	queueSize      int
	frameBuffer    int
	stopOnGameOver bool

	input  chan engine.Command
	frames chan Frame
	quit   chan struct{}

	quitOnce sync.Once
	running  atomic.Bool
	dropped  atomic.Int64
}

// New builds a loop using the cadences in config.
func New(exec Executor, config *engine.GameConfig, opts ...Option) *Loop {
	if config == nil {
		config = engine.DefaultConfig()
	}
	l := &Loop{
		exec:           exec,
		gravity:        config.GravityInterval(),
		poll:           config.InputPollInterval(),
		queueSize:      defaultQueueSize,
		frameBuffer:    defaultFrameBuffer,
		stopOnGameOver: true,
		quit:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.input = make(chan engine.Command, l.queueSize)
	l.frames = make(chan Frame, l.frameBuffer)
	return l
}

// Submit queues a command without blocking. It reports false when the queue
// is full or the loop has quit.
func (l *Loop) Submit(cmd engine.Command) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.input <- cmd:
		return true
	default:
		l.dropped.Add(1)
		return false
	}
}

// Quit asks Run to return. Safe to call more than once.
func (l *Loop) Quit() {
	l.quitOnce.Do(func() { close(l.quit) })
}

// Frames streams published snapshots. The channel is closed when Run returns.
// A slow reader only ever misses intermediate frames, never the latest one.
func (l *Loop) Frames() <-chan Frame {
	return l.frames
}

// Dropped returns how many submitted commands were discarded.
func (l *Loop) Dropped() int64 {
	return l.dropped.Load()
}

// Running reports whether Run is active.
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Run drives the game until the context ends, Quit is called, the executor
// fails, or (by default) the game is over. It returns nil on game over,
// ErrQuit after Quit, and the context or executor error otherwise.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("driver: loop already running")
	}
	defer l.running.Store(false)
	defer close(l.frames)

	snap, err := l.exec.Snapshot(ctx)
	if err != nil {
		return err
	}
	l.publish(Frame{Snapshot: snap})
	if l.stopOnGameOver && snap.Status == engine.GameOver {
		return nil
	}

	gravity := time.NewTicker(l.gravity)
	defer gravity.Stop()
	frame := time.NewTicker(l.poll)
	defer frame.Stop()

	var pending *Frame
	for {
		var cmd engine.Command
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.quit:
			return ErrQuit
		case <-gravity.C:
			cmd = engine.CommandGravity
		case cmd = <-l.input:
		case <-frame.C:
			if pending != nil {
				l.publish(*pending)
				pending = nil
			}
			continue
		}

		step, err := l.exec.Execute(ctx, cmd)
		if err != nil {
			return err
		}
		snap, err := l.exec.Snapshot(ctx)
		if err != nil {
			return err
		}
		pending = &Frame{Snapshot: snap, Step: &step}

		// Locks and game over are published at once; plain moves wait for
		// the next frame tick.
		if step.Locked || snap.Status == engine.GameOver {
			l.publish(*pending)
			pending = nil
		}
		if l.stopOnGameOver && snap.Status == engine.GameOver {
			return nil
		}
	}
}

// publish hands a frame to the reader, evicting the oldest queued frame when
// the buffer is full.
func (l *Loop) publish(f Frame) {
	for {
		select {
		case l.frames <- f:
			return
		default:
		}
		select {
		case <-l.frames:
		default:
		}
	}
}
