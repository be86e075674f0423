package api

import (
	"context"
	"log"
	"sync"
	"time"

	"contentstudio/internal/progress"
)

// DefaultPollInterval is the pull-path re-fetch cadence.
const DefaultPollInterval = 3 * time.Second

// Channel modes, fixed at open time (a push channel may degrade to
// polling if its stream dies mid-task).
const (
	ModePush = "push"
	ModePoll = "poll"
)

// UpdateChannel delivers task snapshots to a callback until the task
// reaches a terminal state or the channel is closed.
type UpdateChannel interface {
	// Close stops delivery. It is idempotent and safe to call from any
	// goroutine; it does not cancel an in-flight request, it only
	// prevents further callbacks.
	Close()
	// Mode reports the delivery strategy currently in effect.
	Mode() string
}

// ChannelOption configures Open.
type ChannelOption func(*channelConfig)

type channelConfig struct {
	forcePolling bool
	interval     time.Duration
	onError      func(error)
}

// WithForcePolling skips the push subscription and polls from the
// start.
func WithForcePolling() ChannelOption {
	return func(cfg *channelConfig) {
		cfg.forcePolling = true
	}
}

// WithPollInterval overrides the default polling cadence.
func WithPollInterval(interval time.Duration) ChannelOption {
	return func(cfg *channelConfig) {
		cfg.interval = interval
	}
}

// WithErrorHandler registers fn for transient transport errors. Errors
// are logged either way; transient errors never stop delivery.
func WithErrorHandler(fn func(error)) ChannelOption {
	return func(cfg *channelConfig) {
		cfg.onError = fn
	}
}

// Open starts snapshot delivery for a task. If the push stream can be
// established it is used; otherwise the channel fetches immediately and
// then re-fetches on a fixed interval until a terminal snapshot is
// observed. The strategy is selected once, here. onSnapshot runs on a
// single delivery goroutine, in arrival order.
func Open(ctx context.Context, client *Client, taskID string, onSnapshot func(progress.TaskSnapshot), opts ...ChannelOption) (UpdateChannel, error) {
	cfg := channelConfig{interval: DefaultPollInterval}
	for _, opt := range opts {
		opt(&cfg)
	}

	chanCtx, cancel := context.WithCancel(ctx)

	if !cfg.forcePolling {
		sub, err := client.Subscribe(chanCtx, taskID)
		if err == nil {
			ch := &pushChannel{
				client:     client,
				taskID:     taskID,
				sub:        sub,
				onSnapshot: onSnapshot,
				cfg:        cfg,
				ctx:        chanCtx,
				cancel:     cancel,
				mode:       ModePush,
			}
			go ch.run()
			return ch, nil
		}
		log.Printf("WARNING: push delivery unavailable for task %s, falling back to polling: %v", taskID, err)
	}

	ch := newPollChannel(chanCtx, cancel, client, taskID, onSnapshot, cfg)
	go ch.run()
	return ch, nil
}

// pollChannel implements the pull strategy: immediate fetch, then a
// fixed-interval ticker.
type pollChannel struct {
	client     *Client
	taskID     string
	onSnapshot func(progress.TaskSnapshot)
	cfg        channelConfig

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func newPollChannel(ctx context.Context, cancel context.CancelFunc, client *Client, taskID string, onSnapshot func(progress.TaskSnapshot), cfg channelConfig) *pollChannel {
	return &pollChannel{
		client:     client,
		taskID:     taskID,
		onSnapshot: onSnapshot,
		cfg:        cfg,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (p *pollChannel) run() {
	if p.fetch() {
		return
	}

	ticker := time.NewTicker(p.cfg.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if p.fetch() {
				return
			}
		}
	}
}

// fetch performs one status read and reports whether delivery is done.
// A transport error keeps the fixed cadence; it never escalates to
// backoff.
func (p *pollChannel) fetch() bool {
	snap, err := p.client.GetTaskStatus(p.ctx, p.taskID)
	if err != nil {
		if p.ctx.Err() != nil {
			return true
		}
		log.Printf("WARNING: status poll for task %s failed: %v", p.taskID, err)
		if p.cfg.onError != nil {
			p.cfg.onError(err)
		}
		return false
	}

	if p.ctx.Err() != nil {
		return true
	}
	p.onSnapshot(snap)
	return snap.Terminal()
}

func (p *pollChannel) Close() {
	p.once.Do(p.cancel)
}

func (p *pollChannel) Mode() string {
	return ModePoll
}

// pushChannel drains a stream subscription. If the stream ends before a
// terminal snapshot it degrades to polling on the same goroutine, so
// ordering is preserved.
type pushChannel struct {
	client     *Client
	taskID     string
	sub        *Subscription
	onSnapshot func(progress.TaskSnapshot)
	cfg        channelConfig

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	mu   sync.Mutex
	mode string
}

func (p *pushChannel) run() {
	terminal := false
	for snap := range p.sub.Snapshots() {
		if p.ctx.Err() != nil {
			return
		}
		p.onSnapshot(snap)
		if snap.Terminal() {
			terminal = true
		}
	}
	p.sub.Close()

	if terminal || p.ctx.Err() != nil {
		return
	}

	log.Printf("WARNING: event stream for task %s ended early, continuing with polling", p.taskID)
	p.mu.Lock()
	p.mode = ModePoll
	p.mu.Unlock()

	poll := newPollChannel(p.ctx, p.cancel, p.client, p.taskID, p.onSnapshot, p.cfg)
	poll.run()
}

func (p *pushChannel) Close() {
	p.once.Do(func() {
		p.cancel()
		p.sub.Close()
	})
}

func (p *pushChannel) Mode() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}
