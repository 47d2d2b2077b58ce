package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ringchat/internal/domain"
	"ringchat/internal/metrics"
)

const (
	defaultReconcileInterval = 5 * time.Second
	defaultMaxBackoff        = time.Minute
	teardownTimeout          = 5 * time.Second
)

// Config tunes the coordinator.
type Config struct {
	ReconcileInterval time.Duration
	MaxBackoff        time.Duration
	StableTimeout     time.Duration
}

// Coordinator serializes every state transition and owns the network client.
type Coordinator struct {
	factory domain.ClientFactory
	cfg     Config
	log     *zap.Logger
	metrics *metrics.Recorder
	now     func() time.Time

	mu       sync.Mutex
	state    State
	self     domain.Address
	signer   domain.Signer
	settings domain.Settings
	client   clientSession
	gen      uint64
	pending  map[string]pendingOffer
	closed   bool

	changes chan struct{}
}

// clientSession is the live network client with its reconcile loop.
type clientSession struct {
	nc     domain.NetworkClient
	cancel context.CancelFunc
	done   chan struct{}
}

type pendingOffer struct {
	target domain.Address
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(c *Coordinator) { c.log = l } }

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option { return func(c *Coordinator) { c.metrics = m } }

// WithClock replaces time.Now for message timestamps.
func WithClock(now func() time.Time) Option { return func(c *Coordinator) { c.now = now } }

// New returns a coordinator without identity or settings; no client is built
// until both are supplied.
func New(factory domain.ClientFactory, cfg Config, opts ...Option) *Coordinator {
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = defaultReconcileInterval
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	c := &Coordinator{
		factory: factory,
		cfg:     cfg,
		log:     zap.NewNop(),
		now:     time.Now,
		state:   NewState(""),
		pending: make(map[string]pendingOffer),
		changes: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a deep copy of the current state.
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Changes delivers a notification after state changes. Notifications coalesce:
// a reader that falls behind sees one pending signal, then reads Snapshot.
func (c *Coordinator) Changes() <-chan struct{} { return c.changes }

func (c *Coordinator) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

// dispatchLocked applies cmd and records metrics. c.mu must be held.
func (c *Coordinator) dispatchLocked(cmd Command) error {
	err := c.state.Apply(cmd)
	if c.metrics != nil {
		byState := map[string]int{}
		for _, p := range c.state.Peers {
			byState[p.State.String()]++
		}
		c.metrics.SetPeers(byState)
		c.metrics.SetUnread(c.state.UnreadCount())
		c.metrics.SetClientStatus(c.state.ClientStatus.String())
	}
	return err
}

func (c *Coordinator) dispatch(cmd Command) error {
	c.mu.Lock()
	err := c.dispatchLocked(cmd)
	c.mu.Unlock()
	c.notify()
	return err
}

// dispatchIfCurrent applies cmd only while gen is still the live client generation.
func (c *Coordinator) dispatchIfCurrent(gen uint64, cmd Command) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}
	_ = c.dispatchLocked(cmd)
	c.mu.Unlock()
	c.notify()
	return true
}

// SetIdentity installs the local address and signer and (re)builds the client.
func (c *Coordinator) SetIdentity(ctx context.Context, self domain.Address, signer domain.Signer) error {
	c.teardown(ctx)
	c.mu.Lock()
	c.self = domain.NormalizeAddress(string(self))
	c.signer = signer
	c.state.Self = c.self
	c.mu.Unlock()
	return c.start(ctx)
}

// ClearIdentity tears the client down and forgets the local identity. Peers and
// chat sessions are kept, marked disconnected.
func (c *Coordinator) ClearIdentity(ctx context.Context) {
	c.teardown(ctx)
	c.mu.Lock()
	c.self, c.signer = "", nil
	c.state.Self = ""
	c.mu.Unlock()
	c.notify()
}

// UpdateSettings replaces the connection settings and rebuilds the client.
func (c *Coordinator) UpdateSettings(ctx context.Context, s domain.Settings) error {
	c.teardown(ctx)
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
	return c.start(ctx)
}

// Close tears the client down. The coordinator cannot be restarted.
func (c *Coordinator) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	c.teardown(ctx)
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// start builds, binds and starts the client when identity and settings are both
// present. Failures leave the status failed; there is no automatic retry.
func (c *Coordinator) start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.self == "" || c.signer == nil || !c.settings.Complete() {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	gen := c.gen
	settings := c.settings
	params := domain.ClientParams{
		RelayURL:      settings.RelayURL,
		StableTimeout: c.cfg.StableTimeout,
		SelfAddress:   c.self,
		AddressType:   domain.AddressTypeEIP191,
		Signer:        c.signer,
		Inbound:       c.inboundHandler(gen),
	}
	_ = c.dispatchLocked(SetClientStatus{Status: domain.ClientConnecting})
	c.mu.Unlock()
	c.notify()

	log := c.log.With(zap.String("relay", settings.RelayURL), zap.Uint64("generation", gen))
	nc, err := c.factory(ctx, params)
	if err != nil {
		log.Error("network client construction failed", zap.Error(err))
		c.dispatchIfCurrent(gen, SetClientStatus{Status: domain.ClientFailed})
		return fmt.Errorf("start client: %w", err)
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		_ = nc.Close()
		return nil
	}
	c.client.nc = nc
	c.mu.Unlock()

	fail := func(step string, err error) error {
		log.Error("network client "+step+" failed", zap.Error(err))
		c.mu.Lock()
		current := gen == c.gen
		if current {
			c.client = clientSession{}
			_ = c.dispatchLocked(SetClientStatus{Status: domain.ClientFailed})
		}
		c.mu.Unlock()
		c.notify()
		if current {
			_ = nc.Close()
		}
		return fmt.Errorf("start client: %s: %w", step, err)
	}
	if err := nc.Listen(ctx); err != nil {
		return fail("listen", err)
	}
	if err := nc.ConnectViaRelay(ctx, SplitNodeURLs(settings.NodeURL)); err != nil {
		return fail("relay", err)
	}

	if !c.dispatchIfCurrent(gen, SetClientStatus{Status: domain.ClientConnected}) {
		return nil
	}
	log.Info("network client connected")

	r := newReconciler(c, nc, gen)
	r.RunOnce(ctx)

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		cancel()
		return nil
	}
	c.client.cancel, c.client.done = cancel, done
	c.mu.Unlock()
	go func() {
		defer close(done)
		r.Run(loopCtx)
	}()
	return nil
}

// teardown stops the reconcile loop, marks every transport disconnected,
// disconnects every peer that was connected and closes the client. Results of
// calls still in flight are discarded.
func (c *Coordinator) teardown(ctx context.Context) {
	c.mu.Lock()
	cs := c.client
	c.client = clientSession{}
	c.gen++
	clear(c.pending)
	var connected []domain.Address
	for a, p := range c.state.Peers {
		if p.State == domain.StateConnected {
			connected = append(connected, a)
		}
	}
	_ = c.dispatchLocked(MarkAllDisconnected{})
	_ = c.dispatchLocked(SetClientStatus{Status: domain.ClientDisconnected})
	c.mu.Unlock()
	c.notify()

	if cs.cancel != nil {
		cs.cancel()
		<-cs.done
	}
	if cs.nc == nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, a := range connected {
		g.Go(func() error {
			if err := cs.nc.Disconnect(gctx, a); err != nil {
				return fmt.Errorf("disconnect %s: %w", a, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.log.Warn("disconnect on teardown failed", zap.Error(err))
	}
	if err := cs.nc.Close(); err != nil {
		c.log.Warn("network client close failed", zap.Error(err))
	}
}

// SplitNodeURLs splits a ';'-separated node URL list, dropping blanks.
func SplitNodeURLs(s string) []string {
	var out []string
	for _, u := range strings.Split(s, ";") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func (c *Coordinator) inboundHandler(gen uint64) domain.InboundHandler {
	return func(in domain.Inbound) {
		from := domain.NormalizeAddress(string(in.From))
		if from == "" {
			return
		}
		msg := domain.Message{
			From: from,
			To:   domain.NormalizeAddress(string(in.To)),
			Body: string(in.Payload),
			At:   c.now(),
		}
		if c.dispatchIfCurrent(gen, ReceiveMessage{Message: msg}) {
			c.metrics.ObserveMessage("in")
		}
	}
}

// liveClient returns the connected client and its generation.
func (c *Coordinator) liveClient() (domain.NetworkClient, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client.nc == nil || c.state.ClientStatus != domain.ClientConnected {
		return nil, 0, ErrNoClient
	}
	return c.client.nc, c.gen, nil
}
