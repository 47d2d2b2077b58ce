package session

import (
	"context"
	"fmt"

	"ringchat/internal/domain"
)

// RequestConnect opens a transport to addr. Connecting to self or to a peer
// this coordinator is already dialing does nothing; an already connected peer
// just gets its tab focused. A peer the node reports as connecting is dialed
// like any other. A failed attempt returns the peer to the state it had before.
func (c *Coordinator) RequestConnect(ctx context.Context, addr domain.Address) error {
	a := domain.NormalizeAddress(string(addr))

	c.mu.Lock()
	if a == "" || a == c.self {
		c.mu.Unlock()
		return nil
	}
	if c.state.IsDialing(a) {
		c.mu.Unlock()
		return nil
	}
	if c.state.Peers[a].State == domain.StateConnected {
		err := c.dispatchLocked(ActivateTab{Address: a})
		c.mu.Unlock()
		c.notify()
		return err
	}
	if c.client.nc == nil || c.state.ClientStatus != domain.ClientConnected {
		c.mu.Unlock()
		return ErrNoClient
	}
	nc, gen := c.client.nc, c.gen
	_ = c.dispatchLocked(BeginConnect{Address: a})
	c.mu.Unlock()
	c.notify()

	err := nc.Connect(ctx, a)
	c.dispatchIfCurrent(gen, FinishConnect{Address: a, OK: err == nil})
	if err != nil {
		c.metrics.ObserveConnect("error")
		return fmt.Errorf("connect %s: %w", a, err)
	}
	c.metrics.ObserveConnect("success")
	return nil
}

// ActivateTab opens and focuses the tab for addr, marking it read and clearing
// the draft.
func (c *Coordinator) ActivateTab(addr domain.Address) error {
	return c.dispatch(ActivateTab{Address: domain.NormalizeAddress(string(addr))})
}

// CloseTab closes the tab for addr.
func (c *Coordinator) CloseTab(addr domain.Address) {
	_ = c.dispatch(CloseTab{Address: domain.NormalizeAddress(string(addr))})
}

// SetDraft replaces the pending outgoing text.
func (c *Coordinator) SetDraft(text string) { _ = c.dispatch(SetDraft{Text: text}) }

// SetExternalName records a verified external name for addr.
func (c *Coordinator) SetExternalName(addr domain.Address, name string) {
	_ = c.dispatch(SetExternalName{Address: domain.NormalizeAddress(string(addr)), Name: name})
}

// SetRegisteredName records the registered name addr announced.
func (c *Coordinator) SetRegisteredName(addr domain.Address, name string) {
	_ = c.dispatch(SetRegisteredName{Address: domain.NormalizeAddress(string(addr)), Name: name})
}

// SendMessage sends body to a connected peer. The message is appended locally
// before the network call and kept if the call fails.
func (c *Coordinator) SendMessage(ctx context.Context, to domain.Address, body string) error {
	a := domain.NormalizeAddress(string(to))

	c.mu.Lock()
	if c.state.Peers[a].State != domain.StateConnected || c.client.nc == nil {
		c.mu.Unlock()
		return fmt.Errorf("send to %s: %w", a, ErrNoActiveConnection)
	}
	nc := c.client.nc
	_ = c.dispatchLocked(AppendOutgoing{Message: domain.Message{From: c.self, To: a, Body: body, At: c.now()}})
	c.mu.Unlock()
	c.notify()
	c.metrics.ObserveMessage("out")

	if err := nc.Send(ctx, a, []byte(body)); err != nil {
		return fmt.Errorf("send to %s: %w", a, err)
	}
	return nil
}
