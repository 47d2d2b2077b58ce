package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ringchat/internal/domain"
	"ringchat/internal/protocol/signaling"
)

// CreateOffer starts a manual handshake with target and returns the offer blob
// to hand to the other person.
func (c *Coordinator) CreateOffer(ctx context.Context, target domain.Address) (string, error) {
	t := domain.NormalizeAddress(string(target))
	nc, gen, err := c.liveClient()
	if err != nil {
		return "", err
	}
	raw, err := nc.CreateOffer(ctx, t)
	if err != nil {
		c.metrics.ObserveHandshake("offer", "error")
		return "", fmt.Errorf("create offer: %w", err)
	}
	env := signaling.NewOffer(t, []byte(raw))
	blob, err := signaling.Encode(env)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	if gen == c.gen {
		c.pending[env.ID] = pendingOffer{target: t}
	}
	c.mu.Unlock()
	c.metrics.ObserveHandshake("offer", "success")
	return blob, nil
}

// AnswerOffer applies an offer blob from another person and returns the answer
// blob to send back. The peer list is refreshed afterwards.
func (c *Coordinator) AnswerOffer(ctx context.Context, offerBlob string) (string, error) {
	env, err := signaling.Decode(offerBlob, signaling.KindOffer)
	if err != nil {
		return "", err
	}
	nc, gen, err := c.liveClient()
	if err != nil {
		return "", err
	}
	raw, err := nc.AnswerOffer(ctx, string(env.Payload))
	if err != nil {
		c.metrics.ObserveHandshake("answer", "error")
		return "", fmt.Errorf("answer offer: %w", err)
	}
	blob, err := signaling.Encode(signaling.NewAnswer(env, []byte(raw)))
	if err != nil {
		return "", err
	}
	c.metrics.ObserveHandshake("answer", "success")
	c.refreshAfterHandshake(ctx, nc, gen)
	return blob, nil
}

// AcceptAnswer completes a handshake started by CreateOffer. The pending offer
// is kept when the node rejects the answer so the step can be retried.
func (c *Coordinator) AcceptAnswer(ctx context.Context, answerBlob string) error {
	env, err := signaling.Decode(answerBlob, signaling.KindAnswer)
	if err != nil {
		return err
	}
	nc, gen, err := c.liveClient()
	if err != nil {
		return err
	}
	c.mu.Lock()
	offer, ok := c.pending[env.ID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("accept answer %s: %w", env.ID, ErrUnknownHandshake)
	}

	if err := nc.AcceptAnswer(ctx, string(env.Payload)); err != nil {
		c.metrics.ObserveHandshake("accept", "error")
		return fmt.Errorf("accept answer: %w", err)
	}
	c.mu.Lock()
	delete(c.pending, env.ID)
	c.mu.Unlock()
	c.metrics.ObserveHandshake("accept", "success")
	c.log.Info("handshake complete", zap.String("peer", offer.target.String()))
	c.refreshAfterHandshake(ctx, nc, gen)
	return nil
}

// PendingOffers returns the number of offers awaiting an answer.
func (c *Coordinator) PendingOffers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Coordinator) refreshAfterHandshake(ctx context.Context, nc domain.NetworkClient, gen uint64) {
	if err := c.refresh(ctx, nc, gen); err != nil {
		c.log.Warn("peer list refresh after handshake failed", zap.Error(err))
	}
}
