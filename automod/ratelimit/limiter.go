// Package ratelimit provides sliding-log admission control for moderation commands, keyed by the invoking user and by the command name.
package ratelimit

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ReasonUser    = "Rate limit: too many requests (user)."
	ReasonCommand = "Rate limit: command cooling down."
)

var deniedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_ratelimit_denied_total",
	Help: "Number of command invocations denied by the rate limiter",
}, []string{"scope"})

// At most Max events within any trailing Period.
type Window struct {
	Period time.Duration
	Max    int
}

type Limits struct {
	User    Window
	Command Window
}

func DefaultLimits() Limits {
	return Limits{
		User:    Window{Period: 15 * time.Second, Max: 8},
		Command: Window{Period: 8 * time.Second, Max: 4},
	}
}

type Decision struct {
	Allowed bool
	Reason  string
}

type Limiter struct {
	limits Limits
	clock  func() time.Time

	mu      sync.Mutex
	windows map[string][]time.Time
	admits  int
}

// full sweep of idle windows every this many admissions
const sweepEvery = 1024

type Option func(*Limiter)

func WithLimits(l Limits) Option {
	return func(rl *Limiter) {
		rl.limits = l
	}
}

func WithClock(clock func() time.Time) Option {
	return func(rl *Limiter) {
		rl.clock = clock
	}
}

func New(opts ...Option) (*Limiter, error) {
	rl := &Limiter{
		limits:  DefaultLimits(),
		clock:   time.Now,
		windows: make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(rl)
	}
	for name, w := range map[string]Window{"user": rl.limits.User, "command": rl.limits.Command} {
		if w.Period <= 0 || w.Max <= 0 {
			return nil, fmt.Errorf("invalid %s window: period=%s max=%d", name, w.Period, w.Max)
		}
	}
	return rl, nil
}

func userKey(userID string) string {
	return "user:" + userID
}

func commandKey(command string) string {
	return "cmd:" + command
}

// Checks the user window, then the command window. The attempt is recorded in both only when both admit it.
func (rl *Limiter) Admit(userID, command string) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock()
	uk, ck := userKey(userID), commandKey(command)
	userLog := rl.prune(uk, now, rl.limits.User.Period)
	cmdLog := rl.prune(ck, now, rl.limits.Command.Period)

	if len(userLog) >= rl.limits.User.Max {
		deniedCount.WithLabelValues("user").Inc()
		return Decision{Reason: ReasonUser}
	}
	if len(cmdLog) >= rl.limits.Command.Max {
		deniedCount.WithLabelValues("command").Inc()
		return Decision{Reason: ReasonCommand}
	}

	rl.windows[uk] = append(userLog, now)
	rl.windows[ck] = append(cmdLog, now)

	rl.admits++
	if rl.admits%sweepEvery == 0 {
		rl.sweep(now)
	}
	return Decision{Allowed: true}
}

// Releases every window with no timestamps left inside its period.
func (rl *Limiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.sweep(rl.clock())
}

// Must be called while holding rl.mu.
func (rl *Limiter) sweep(now time.Time) {
	for key := range rl.windows {
		period := rl.limits.Command.Period
		if strings.HasPrefix(key, "user:") {
			period = rl.limits.User.Period
		}
		rl.prune(key, now, period)
	}
}

// Drops timestamps older than the window. Empty logs are removed from the map.
// Must be called while holding rl.mu.
func (rl *Limiter) prune(key string, now time.Time, period time.Duration) []time.Time {
	log, ok := rl.windows[key]
	if !ok {
		return nil
	}
	cutoff := now.Add(-period)
	i := 0
	for ; i < len(log); i++ {
		if !log[i].Before(cutoff) {
			break
		}
	}
	log = log[i:]
	if len(log) == 0 {
		delete(rl.windows, key)
		return nil
	}
	rl.windows[key] = log
	return log
}

// Number of tracked keys; used to check that idle windows are released.
func (rl *Limiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}
