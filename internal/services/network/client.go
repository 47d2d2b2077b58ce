package network

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"ringchat/internal/domain"
	"ringchat/internal/node"
)

var (
	// ErrConstruction is returned by New when the client cannot be built.
	ErrConstruction = errors.New("network client construction failed")
	// ErrRelayUnreachable is returned when no node URL accepts the session.
	ErrRelayUnreachable = errors.New("no node reachable via relay")
	// ErrNotConnected is returned by Send when the peer transport is not connected.
	ErrNotConnected = errors.New("peer not connected")
	// ErrNotBound is returned by node calls made before ConnectViaRelay succeeds.
	ErrNotBound = errors.New("network client not bound to a node")
)

const (
	defaultStableTimeout = 10 * time.Second
	closeTimeout         = 2 * time.Second
)

// Client is one instance of the network client.
type Client struct {
	params    domain.ClientParams
	proof     string
	signature string

	log  *zap.Logger
	http *http.Client

	readerCtx  context.Context
	stopReader context.CancelFunc

	mu         sync.Mutex
	bound      *node.Client
	boundURL   string
	listening  bool
	reading    bool
	stream     *node.EventStream
	readerDone chan struct{}
	states     map[domain.Address]domain.ConnectionState
	closed     bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// WithHTTPClient sets the HTTP client used for node calls.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// New validates params and signs the session proof.
func New(ctx context.Context, params domain.ClientParams, opts ...Option) (*Client, error) {
	switch {
	case params.SelfAddress == "":
		return nil, fmt.Errorf("%w: missing self address", ErrConstruction)
	case params.RelayURL == "":
		return nil, fmt.Errorf("%w: missing relay url", ErrConstruction)
	case params.AddressType != domain.AddressTypeEIP191:
		return nil, fmt.Errorf("%w: unsupported address type %q", ErrConstruction, params.AddressType)
	case params.Signer == nil:
		return nil, fmt.Errorf("%w: missing signer", ErrConstruction)
	}
	if params.StableTimeout <= 0 {
		params.StableTimeout = defaultStableTimeout
	}

	c := &Client{
		params: params,
		log:    zap.NewNop(),
		http:   http.DefaultClient,
		states: make(map[domain.Address]domain.ConnectionState),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.proof = sessionProof(params.SelfAddress, params.RelayURL, time.Now())
	sig, err := params.Signer(ctx, []byte(c.proof))
	if err != nil {
		return nil, fmt.Errorf("%w: sign session proof: %w", ErrConstruction, err)
	}
	c.signature = hexutil.Encode(sig)
	c.readerCtx, c.stopReader = context.WithCancel(context.Background())
	return c, nil
}

// Factory returns a domain.ClientFactory building Clients with opts.
func Factory(opts ...Option) domain.ClientFactory {
	return func(ctx context.Context, params domain.ClientParams) (domain.NetworkClient, error) {
		c, err := New(ctx, params, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func sessionProof(self domain.Address, relay string, at time.Time) string {
	return fmt.Sprintf("ringchat session\naddress: %s\nrelay: %s\nissued: %s",
		self, relay, at.UTC().Format(time.RFC3339))
}

// Listen starts inbound delivery. It is idempotent; before the client is bound
// it only records that delivery should start once it is.
func (c *Client) Listen(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrNotBound
	}
	c.listening = true
	c.startReaderLocked()
	return nil
}

type attempt struct {
	url string
	nc  *node.Client
	err error
}

// ConnectViaRelay opens a session on every node URL concurrently and binds to
// the first that succeeds. Slower attempts are not cancelled; their sessions
// are closed when they finish.
func (c *Client) ConnectViaRelay(ctx context.Context, nodeURLs []string) error {
	urls := make([]string, 0, len(nodeURLs))
	for _, u := range nodeURLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return fmt.Errorf("%w: no node urls", ErrRelayUnreachable)
	}

	results := make(chan attempt, len(urls))
	for _, u := range urls {
		go func() {
			actx, cancel := context.WithTimeout(ctx, c.params.StableTimeout)
			defer cancel()
			nc := node.New(u)
			nc.HTTP = c.http
			err := nc.Open(actx, node.OpenParams{
				Address:     c.params.SelfAddress,
				AddressType: c.params.AddressType,
				RelayURL:    c.params.RelayURL,
				Proof:       c.proof,
				Signature:   c.signature,
			})
			results <- attempt{url: u, nc: nc, err: err}
		}()
	}

	var errs []error
	for pending := len(urls); pending > 0; pending-- {
		r := <-results
		if r.err != nil {
			c.log.Debug("node attempt failed", zap.String("url", r.url), zap.Error(r.err))
			errs = append(errs, fmt.Errorf("%s: %w", r.url, r.err))
			continue
		}
		if err := c.bind(r.url, r.nc); err != nil {
			closeNode(r.nc)
			go discard(results, pending-1)
			return err
		}
		c.log.Info("bound to node", zap.String("url", r.url))
		go discard(results, pending-1)
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRelayUnreachable, errors.Join(errs...))
}

// discard waits for the remaining attempts and closes any session they opened.
func discard(results <-chan attempt, n int) {
	for ; n > 0; n-- {
		if r := <-results; r.err == nil {
			closeNode(r.nc)
		}
	}
}

func closeNode(nc *node.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	_ = nc.Close(ctx)
}

func (c *Client) bind(url string, nc *node.Client) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrNotBound
	}
	prev := c.bound
	c.bound, c.boundURL = nc, url
	c.states = make(map[domain.Address]domain.ConnectionState)
	if c.stream != nil {
		_ = c.stream.Close()
		c.stream = nil
	}
	c.reading = false
	c.startReaderLocked()
	c.mu.Unlock()

	if prev != nil {
		closeNode(prev)
	}
	return nil
}

// startReaderLocked starts the event reader when listening and bound. A reader
// left over from a previous binding exits when its stream is closed.
func (c *Client) startReaderLocked() {
	if !c.listening || c.bound == nil || c.reading {
		return
	}
	c.reading = true
	done := make(chan struct{})
	c.readerDone = done
	go c.read(c.bound, done)
}

func (c *Client) read(nc *node.Client, done chan struct{}) {
	defer close(done)
	defer func() {
		c.mu.Lock()
		if c.bound == nc {
			c.reading = false
		}
		c.mu.Unlock()
	}()

	stream, err := nc.Events(c.readerCtx)
	if err != nil {
		c.log.Warn("event stream unavailable", zap.Error(err))
		return
	}
	c.mu.Lock()
	if c.closed || c.bound != nc {
		c.mu.Unlock()
		_ = stream.Close()
		return
	}
	c.stream = stream
	c.mu.Unlock()

	for {
		ev, err := stream.Next()
		if err != nil {
			if c.readerCtx.Err() == nil {
				c.log.Debug("event stream ended", zap.Error(err))
			}
			return
		}
		c.handle(ev)
	}
}

func (c *Client) handle(ev node.Event) {
	switch ev.Type {
	case node.EventMessage:
		if c.params.Inbound != nil {
			c.params.Inbound(domain.Inbound{
				From:    domain.NormalizeAddress(string(ev.From)),
				To:      domain.NormalizeAddress(string(ev.To)),
				Payload: ev.Payload,
			})
		}
	case node.EventPeer:
		addr := domain.NormalizeAddress(string(ev.Address))
		c.mu.Lock()
		c.states[addr] = domain.ParseConnectionState(ev.State)
		c.mu.Unlock()
	default:
		c.log.Debug("unknown event", zap.String("type", ev.Type))
	}
}

func (c *Client) node() (*node.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bound == nil || c.closed {
		return nil, ErrNotBound
	}
	return c.bound, nil
}

// RequestPeerList returns the node's current peer snapshot.
func (c *Client) RequestPeerList(ctx context.Context) ([]domain.PeerInfo, error) {
	nc, err := c.node()
	if err != nil {
		return nil, err
	}
	entries, err := nc.Peers(ctx)
	if err != nil {
		return nil, fmt.Errorf("request peer list: %w", err)
	}
	out := make([]domain.PeerInfo, 0, len(entries))
	states := make(map[domain.Address]domain.ConnectionState, len(entries))
	for _, e := range entries {
		info := domain.PeerInfo{
			Address:     domain.NormalizeAddress(string(e.Address)),
			TransportID: e.TransportID,
			State:       domain.ParseConnectionState(e.State),
		}
		states[info.Address] = info.State
		out = append(out, info)
	}
	c.mu.Lock()
	c.states = states
	c.mu.Unlock()
	return out, nil
}

// Connect opens a transport to address.
func (c *Client) Connect(ctx context.Context, address domain.Address) error {
	nc, err := c.node()
	if err != nil {
		return err
	}
	if err := nc.Connect(ctx, address); err != nil {
		return fmt.Errorf("connect %s: %w", address, err)
	}
	c.setState(address, domain.StateConnected)
	return nil
}

// Disconnect closes the transport to address. It succeeds without a call when
// the transport is not connected.
func (c *Client) Disconnect(ctx context.Context, address domain.Address) error {
	if c.state(address) != domain.StateConnected {
		return nil
	}
	nc, err := c.node()
	if err != nil {
		return err
	}
	if err := nc.Disconnect(ctx, address); err != nil {
		return fmt.Errorf("disconnect %s: %w", address, err)
	}
	c.setState(address, domain.StateDisconnected)
	return nil
}

// Send delivers payload over the connected transport to address.
func (c *Client) Send(ctx context.Context, address domain.Address, payload []byte) error {
	if c.state(address) != domain.StateConnected {
		return fmt.Errorf("send to %s: %w", address, ErrNotConnected)
	}
	nc, err := c.node()
	if err != nil {
		return err
	}
	if err := nc.Send(ctx, address, payload); err != nil {
		return fmt.Errorf("send to %s: %w", address, err)
	}
	return nil
}

// CreateOffer returns an offer blob for target.
func (c *Client) CreateOffer(ctx context.Context, target domain.Address) (string, error) {
	nc, err := c.node()
	if err != nil {
		return "", err
	}
	return nc.CreateOffer(ctx, target)
}

// AnswerOffer applies a remote offer and returns the answer blob.
func (c *Client) AnswerOffer(ctx context.Context, offer string) (string, error) {
	nc, err := c.node()
	if err != nil {
		return "", err
	}
	return nc.AnswerOffer(ctx, offer)
}

// AcceptAnswer completes a handshake started by CreateOffer.
func (c *Client) AcceptAnswer(ctx context.Context, answer string) error {
	nc, err := c.node()
	if err != nil {
		return err
	}
	return nc.AcceptAnswer(ctx, answer)
}

// Close stops the event reader and ends the node session. It is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.stopReader()
	bound, stream, done := c.bound, c.stream, c.readerDone
	c.bound, c.stream = nil, nil
	c.mu.Unlock()

	if stream != nil {
		_ = stream.Close()
	}
	if done != nil {
		<-done
	}
	if bound == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return bound.Close(ctx)
}

func (c *Client) state(address domain.Address) domain.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[address]
}

func (c *Client) setState(address domain.Address, s domain.ConnectionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[address] = s
}

var _ domain.NetworkClient = (*Client)(nil)
