package node_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"ringchat/internal/crypto"
	"ringchat/internal/devnode"
	"ringchat/internal/domain"
	"ringchat/internal/node"
)

func startNode(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(devnode.New().Handler())
	t.Cleanup(srv.Close)
	return srv
}

// openClient creates a fresh key and opens a session on base.
func openClient(t *testing.T, base string) (*node.Client, domain.Address) {
	t.Helper()
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr := crypto.AddressOf(&priv.PublicKey)
	proof := "ringchat session for " + addr.String()
	sig, err := crypto.SignText(priv, []byte(proof))
	if err != nil {
		t.Fatalf("SignText: %v", err)
	}
	c := node.New(base)
	err = c.Open(context.Background(), node.OpenParams{
		Address:     addr,
		AddressType: domain.AddressTypeEIP191,
		RelayURL:    "relay.test",
		Proof:       proof,
		Signature:   hexutil.Encode(sig),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return c, addr
}

func nextEvent(t *testing.T, s *node.EventStream, want string) node.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ev, err := s.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if ev.Type == want {
			return ev
		}
	}
	t.Fatalf("no %s event", want)
	return node.Event{}
}

func TestOpen_RejectsForeignSignature(t *testing.T) {
	srv := startNode(t)
	priv, _ := crypto.GenerateKey()
	other, _ := crypto.GenerateKey()
	sig, _ := crypto.SignText(other, []byte("proof"))

	err := node.New(srv.URL).Open(context.Background(), node.OpenParams{
		Address:     crypto.AddressOf(&priv.PublicKey),
		AddressType: domain.AddressTypeEIP191,
		Proof:       "proof",
		Signature:   hexutil.Encode(sig),
	})
	var rpcErr *node.Error
	if !errors.As(err, &rpcErr) || rpcErr.Code != node.CodeUnauthorized {
		t.Fatalf("want unauthorized rpc error, got %v", err)
	}
}

func TestConnectSendAndReceive(t *testing.T) {
	srv := startNode(t)
	ctx := context.Background()
	alice, aliceAddr := openClient(t, srv.URL)
	bob, bobAddr := openClient(t, srv.URL)

	events, err := bob.Events(ctx)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	defer events.Close()

	var rpcErr *node.Error
	if err := alice.Send(ctx, bobAddr, []byte("too early")); !errors.As(err, &rpcErr) || rpcErr.Code != node.CodeConflict {
		t.Fatalf("send without link: want conflict, got %v", err)
	}

	if err := alice.Connect(ctx, bobAddr); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	peers, err := alice.Peers(ctx)
	if err != nil {
		t.Fatalf("Peers: %v", err)
	}
	if len(peers) != 1 || peers[0].Address != bobAddr || peers[0].State != "connected" || peers[0].TransportID == "" {
		t.Fatalf("unexpected peers: %+v", peers)
	}

	if err := alice.Send(ctx, bobAddr, []byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	ev := nextEvent(t, events, node.EventMessage)
	if ev.From != aliceAddr || ev.To != bobAddr || string(ev.Payload) != "hello" {
		t.Fatalf("unexpected message event: %+v", ev)
	}

	if err := alice.Disconnect(ctx, bobAddr); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	ev = nextEvent(t, events, node.EventPeer)
	for ev.State != "disconnected" {
		ev = nextEvent(t, events, node.EventPeer)
	}
	if ev.Address != aliceAddr {
		t.Fatalf("peer event for %s, want %s", ev.Address, aliceAddr)
	}
}

func TestManualSignaling_LinksPeers(t *testing.T) {
	srv := startNode(t)
	ctx := context.Background()
	alice, _ := openClient(t, srv.URL)
	bob, bobAddr := openClient(t, srv.URL)

	offer, err := alice.CreateOffer(ctx, bobAddr)
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	answer, err := bob.AnswerOffer(ctx, offer)
	if err != nil {
		t.Fatalf("AnswerOffer: %v", err)
	}
	if err := alice.AcceptAnswer(ctx, answer); err != nil {
		t.Fatalf("AcceptAnswer: %v", err)
	}
	if err := alice.AcceptAnswer(ctx, answer); err == nil {
		t.Fatal("accepting the same answer twice succeeded")
	}
	if err := alice.Send(ctx, bobAddr, []byte("hi")); err != nil {
		t.Fatalf("Send after handshake: %v", err)
	}
}

func TestCalls_WithoutSession_Unauthorized(t *testing.T) {
	srv := startNode(t)
	c := node.New(srv.URL)
	if _, err := c.Events(context.Background()); !errors.Is(err, node.ErrNoSession) {
		t.Fatalf("Events without session: %v", err)
	}
	_, err := c.Peers(context.Background())
	var rpcErr *node.Error
	if !errors.As(err, &rpcErr) || rpcErr.Code != node.CodeUnauthorized {
		t.Fatalf("Peers without session: %v", err)
	}
}
