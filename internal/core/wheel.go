package core

import (
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"time"
)

const (
	// DefaultSpinDuration is how long a spin animates before it settles.
	DefaultSpinDuration = 4 * time.Second
	// DefaultFullRotations is the number of whole turns added to every spin.
	DefaultFullRotations = 5

	// landingBand is the share of a segment the pointer may land in,
	// centred on the segment middle.
	landingBand = 0.8
)

// WheelState is the animator state.
type WheelState int

const (
	WheelIdle WheelState = iota
	WheelSpinning
	WheelSettled
)

func (s WheelState) String() string {
	switch s {
	case WheelIdle:
		return "idle"
	case WheelSpinning:
		return "spinning"
	case WheelSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Scheduler runs f once after d. It is the only source of time for a Wheel.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// TimerScheduler schedules with time.AfterFunc.
type TimerScheduler struct{}

// AfterFunc implements Scheduler.
func (TimerScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

// Wheel reveals a participant that was already chosen. A spin always runs
// for the full duration and cannot be cancelled; the settle callback fires
// exactly once per accepted spin.
type Wheel struct {
	mu sync.Mutex

	state         WheelState
	order         []string
	target        string
	targetIndex   int
	startRotation float64
	rotation      float64
	seq           uint64

	duration      time.Duration
	fullRotations int
	scheduler     Scheduler
	rng           *rand.Rand
	onSettled     func(target string)
}

// WheelOption configures a Wheel.
type WheelOption func(*Wheel)

// WithSpinDuration sets how long a spin lasts.
func WithSpinDuration(d time.Duration) WheelOption {
	return func(w *Wheel) {
		if d > 0 {
			w.duration = d
		}
	}
}

// WithFullRotations sets the number of extra whole turns per spin.
func WithFullRotations(n int) WheelOption {
	return func(w *Wheel) {
		if n > 0 {
			w.fullRotations = n
		}
	}
}

// WithScheduler replaces the timer used to settle spins.
func WithScheduler(s Scheduler) WheelOption {
	return func(w *Wheel) { w.scheduler = s }
}

// WithWheelRand sets the random source for the landing offset.
func WithWheelRand(r *rand.Rand) WheelOption {
	return func(w *Wheel) { w.rng = r }
}

// NewWheel returns an idle wheel. onSettled is called with the target once
// each spin settles; it may be nil.
func NewWheel(onSettled func(target string), opts ...WheelOption) *Wheel {
	w := &Wheel{
		state:         WheelIdle,
		targetIndex:   -1,
		duration:      DefaultSpinDuration,
		fullRotations: DefaultFullRotations,
		scheduler:     TimerScheduler{},
		onSettled:     onSettled,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.rng == nil {
		now := uint64(time.Now().UnixNano())
		w.rng = rand.New(rand.NewPCG(now, now<<1|1))
	}
	return w
}

// StartSpin begins revealing target among order. It is refused unless the
// wheel is idle, order is non-empty and contains target. order fixes each
// participant's segment for the whole spin.
func (w *Wheel) StartSpin(target string, order []string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != WheelIdle || len(order) == 0 {
		return false
	}
	idx := slices.Index(order, target)
	if idx < 0 {
		return false
	}

	w.order = slices.Clone(order)
	w.target = target
	w.targetIndex = idx
	w.startRotation = w.rotation
	w.rotation = nextRotation(w.rotation, idx, len(order), w.fullRotations, w.rng.Float64())
	w.state = WheelSpinning
	w.seq++

	seq := w.seq
	w.scheduler.AfterFunc(w.duration, func() { w.settle(seq) })
	return true
}

// settle finishes spin seq. Late or repeated timer fires are ignored.
func (w *Wheel) settle(seq uint64) {
	w.mu.Lock()
	if w.state != WheelSpinning || w.seq != seq {
		w.mu.Unlock()
		return
	}
	w.state = WheelSettled
	target := w.target
	cb := w.onSettled
	w.mu.Unlock()

	if cb != nil {
		cb(target)
	}
}

// Acknowledge returns a settled wheel to idle so it can spin again.
func (w *Wheel) Acknowledge() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != WheelSettled {
		return false
	}
	w.state = WheelIdle
	return true
}

// State returns the current animator state.
func (w *Wheel) State() WheelState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Spinning reports whether a spin is in progress.
func (w *Wheel) Spinning() bool { return w.State() == WheelSpinning }

// Rotation returns the rotation, in degrees, the current spin ends at.
func (w *Wheel) Rotation() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rotation
}

// Target returns the participant of the current or last spin.
func (w *Wheel) Target() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.target
}

// Order returns the segment order of the current or last spin.
func (w *Wheel) Order() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.order)
}

// Duration returns the spin duration.
func (w *Wheel) Duration() time.Duration { return w.duration }

// Highlighted returns the landed segment index while settled, otherwise -1.
func (w *Wheel) Highlighted() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != WheelSettled {
		return -1
	}
	return w.targetIndex
}

// Frame returns the rotation to draw elapsed into the current spin. It
// eases out and reaches the final rotation at the end of the duration.
func (w *Wheel) Frame(elapsed time.Duration) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != WheelSpinning || w.duration <= 0 {
		return w.rotation
	}
	t := min(max(float64(elapsed)/float64(w.duration), 0), 1)
	eased := 1 - math.Pow(1-t, 3)
	return w.startRotation + (w.rotation-w.startRotation)*eased
}

// nextRotation computes where a spin from prev must stop so the pointer
// lands on segment index of n. jitter in [0,1) picks the spot inside the
// landing band. The base is rounded up to a whole turn so the result does
// not depend on where the previous spin stopped.
func nextRotation(prev float64, index, n, fullRotations int, jitter float64) float64 {
	seg := 360 / float64(n)
	middle := seg * (float64(index) + 0.5)
	offset := (jitter - 0.5) * seg * landingBand
	base := math.Ceil(prev/360) * 360
	return base + 360*float64(fullRotations) - middle - offset
}

// LandingAngle returns the wheel angle, in [0,360), under the pointer after
// the wheel has turned by rotation degrees.
func LandingAngle(rotation float64) float64 {
	a := math.Mod(-rotation, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// SegmentAt returns the index of the segment containing angle on a wheel
// split evenly into n segments, or -1 when n is zero.
func SegmentAt(angle float64, n int) int {
	if n <= 0 {
		return -1
	}
	i := int(angle / (360 / float64(n)))
	return min(max(i, 0), n-1)
}
