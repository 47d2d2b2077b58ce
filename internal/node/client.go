package node

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"ringchat/internal/domain"
)

// ErrNoSession is returned by calls that need an open session.
var ErrNoSession = errors.New("node: no open session")

// Client talks to one node.
type Client struct {
	Base   string
	HTTP   *http.Client
	Dialer *websocket.Dialer

	nextID atomic.Uint64

	mu      sync.RWMutex
	session string
}

// New returns a client for the node at base (e.g. http://127.0.0.1:7700).
func New(base string) *Client {
	return &Client{
		Base:   strings.TrimRight(base, "/"),
		HTTP:   http.DefaultClient,
		Dialer: websocket.DefaultDialer,
	}
}

// Open starts a session and remembers its token.
func (c *Client) Open(ctx context.Context, p OpenParams) error {
	var out OpenResult
	if err := c.call(ctx, MethodOpenSession, p, &out); err != nil {
		return err
	}
	if out.Session == "" {
		return fmt.Errorf("node %s: empty session token", c.Base)
	}
	c.mu.Lock()
	c.session = out.Session
	c.mu.Unlock()
	return nil
}

// Session returns the current session token, if any.
func (c *Client) Session() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Close ends the session on the node. Closing without a session is a no-op.
func (c *Client) Close(ctx context.Context) error {
	if c.Session() == "" {
		return nil
	}
	err := c.call(ctx, MethodCloseSession, nil, nil)
	c.mu.Lock()
	c.session = ""
	c.mu.Unlock()
	return err
}

// Peers lists peers known to the node.
func (c *Client) Peers(ctx context.Context) ([]PeerEntry, error) {
	var out []PeerEntry
	if err := c.call(ctx, MethodListPeers, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Connect asks the node to open a transport to address.
func (c *Client) Connect(ctx context.Context, address domain.Address) error {
	return c.call(ctx, MethodConnect, PeerParams{Address: address}, nil)
}

// Disconnect closes the transport to address.
func (c *Client) Disconnect(ctx context.Context, address domain.Address) error {
	return c.call(ctx, MethodDisconnect, PeerParams{Address: address}, nil)
}

// Send delivers payload to address over an open transport.
func (c *Client) Send(ctx context.Context, address domain.Address, payload []byte) error {
	return c.call(ctx, MethodSend, SendParams{Address: address, Payload: payload}, nil)
}

// CreateOffer returns the node's offer blob for target.
func (c *Client) CreateOffer(ctx context.Context, target domain.Address) (string, error) {
	var out BlobResult
	if err := c.call(ctx, MethodCreateOffer, PeerParams{Address: target}, &out); err != nil {
		return "", err
	}
	return out.Blob, nil
}

// AnswerOffer applies a remote offer and returns the answer blob.
func (c *Client) AnswerOffer(ctx context.Context, offer string) (string, error) {
	var out BlobResult
	if err := c.call(ctx, MethodAnswerOffer, BlobParams{Blob: offer}, &out); err != nil {
		return "", err
	}
	return out.Blob, nil
}

// AcceptAnswer applies a remote answer to a pending offer.
func (c *Client) AcceptAnswer(ctx context.Context, answer string) error {
	return c.call(ctx, MethodAcceptAnswer, BlobParams{Blob: answer}, nil)
}

// Events dials the event stream for the current session.
func (c *Client) Events(ctx context.Context) (*EventStream, error) {
	token := c.Session()
	if token == "" {
		return nil, ErrNoSession
	}
	u, err := eventsURL(c.Base)
	if err != nil {
		return nil, err
	}
	hdr := http.Header{}
	hdr.Set(SessionHeader, token)
	conn, resp, err := c.Dialer.DialContext(ctx, u, hdr)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("node events %s: %s: %w", u, resp.Status, err)
		}
		return nil, fmt.Errorf("node events %s: %w", u, err)
	}
	return &EventStream{conn: conn}, nil
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	req := Request{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return err
		}
		req.Params = raw
	}
	var resp Response
	if err := c.post(ctx, "/rpc", req, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("%s: %w", method, resp.Error)
	}
	if out != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, in any, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.Session(); token != "" {
		req.Header.Set(SessionHeader, token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("node post %s: %s", path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func eventsURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("node: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/events"
	return u.String(), nil
}

// EventStream reads events pushed by the node.
type EventStream struct {
	conn      *websocket.Conn
	closeOnce sync.Once
}

// Next blocks until the next event arrives or the stream fails.
func (s *EventStream) Next() (Event, error) {
	var ev Event
	if err := s.conn.ReadJSON(&ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Close closes the stream; a blocked Next returns an error.
func (s *EventStream) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.conn.Close() })
	return err
}
