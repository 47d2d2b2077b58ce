package signaling_test

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/go-cmp/cmp"

	"ringchat/internal/protocol/signaling"
)

func TestOfferAnswer_RoundTrip(t *testing.T) {
	offer := signaling.NewOffer("0xabc", []byte("sdp-offer"))
	blob, err := signaling.Encode(offer)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := signaling.Decode("  "+blob+"\n", signaling.KindOffer)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(offer, got); diff != "" {
		t.Fatalf("offer mismatch (-want +got):\n%s", diff)
	}

	answer := signaling.NewAnswer(got, []byte("sdp-answer"))
	if answer.ID != offer.ID {
		t.Fatalf("answer id %q does not echo offer id %q", answer.ID, offer.ID)
	}
	blob, err = signaling.Encode(answer)
	if err != nil {
		t.Fatalf("Encode answer: %v", err)
	}
	if _, err := signaling.Decode(blob, signaling.KindOffer); !errors.Is(err, signaling.ErrMalformed) {
		t.Fatalf("answer decoded as offer: %v", err)
	}
}

func TestDecode_RejectsMalformed(t *testing.T) {
	raw := func(v any) string {
		b, err := cbor.Marshal(v)
		if err != nil {
			t.Fatalf("cbor: %v", err)
		}
		return base64.RawURLEncoding.EncodeToString(b)
	}
	cases := map[string]string{
		"empty":         "",
		"not base64":    "%%%not-base64%%%",
		"not cbor":      base64.RawURLEncoding.EncodeToString([]byte{0xff, 0x00}),
		"wrong version": raw(map[string]any{"v": 9, "kind": 1, "id": "2f1e9c3e-0b1a-4d3b-9a57-0b8f2b0f8f11", "payload": []byte("x")}),
		"bad id":        raw(map[string]any{"v": 1, "kind": 1, "id": "nope", "payload": []byte("x")}),
		"no payload":    raw(map[string]any{"v": 1, "kind": 1, "id": "2f1e9c3e-0b1a-4d3b-9a57-0b8f2b0f8f11"}),
		"unknown field": raw(map[string]any{"v": 1, "kind": 1, "id": "2f1e9c3e-0b1a-4d3b-9a57-0b8f2b0f8f11", "payload": []byte("x"), "extra": 1}),
	}
	for name, blob := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := signaling.Decode(blob, signaling.KindOffer); !errors.Is(err, signaling.ErrMalformed) {
				t.Fatalf("want ErrMalformed, got %v", err)
			}
		})
	}
}
