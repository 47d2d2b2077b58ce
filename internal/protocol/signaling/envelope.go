package signaling

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"ringchat/internal/domain"
)

// Version is the only envelope version produced and accepted.
const Version = 1

// Kind distinguishes offers from answers.
type Kind uint8

const (
	KindOffer  Kind = 1
	KindAnswer Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindOffer:
		return "offer"
	case KindAnswer:
		return "answer"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ErrMalformed is returned for any blob that is not a well-formed envelope.
var ErrMalformed = errors.New("malformed signaling blob")

// Envelope is the decoded form of a handshake blob.
type Envelope struct {
	Version uint8          `cbor:"v"`
	Kind    Kind           `cbor:"kind"`
	ID      string         `cbor:"id"`
	Target  domain.Address `cbor:"target,omitempty"`
	Payload []byte         `cbor:"payload"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
		MaxArrayElements:  16,
		MaxMapPairs:       16,
	}).DecMode(); err != nil {
		panic(err)
	}
}

// NewOffer wraps an offer payload addressed to target under a fresh id.
func NewOffer(target domain.Address, payload []byte) Envelope {
	return Envelope{
		Version: Version,
		Kind:    KindOffer,
		ID:      uuid.NewString(),
		Target:  target,
		Payload: payload,
	}
}

// NewAnswer wraps an answer payload responding to offer.
func NewAnswer(offer Envelope, payload []byte) Envelope {
	return Envelope{
		Version: Version,
		Kind:    KindAnswer,
		ID:      offer.ID,
		Target:  offer.Target,
		Payload: payload,
	}
}

// Encode returns the text form of e.
func Encode(e Envelope) (string, error) {
	b, err := encMode.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Decode parses a blob and checks it is an envelope of the wanted kind.
// Surrounding whitespace is ignored.
func Decode(blob string, want Kind) (Envelope, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return Envelope{}, fmt.Errorf("%w: empty", ErrMalformed)
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(blob, "="))
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	var e Envelope
	if err := decMode.Unmarshal(raw, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	switch {
	case e.Version != Version:
		return Envelope{}, fmt.Errorf("%w: version %d", ErrMalformed, e.Version)
	case e.Kind != want:
		return Envelope{}, fmt.Errorf("%w: got %s, want %s", ErrMalformed, e.Kind, want)
	case len(e.Payload) == 0:
		return Envelope{}, fmt.Errorf("%w: empty payload", ErrMalformed)
	}
	if _, err := uuid.Parse(e.ID); err != nil {
		return Envelope{}, fmt.Errorf("%w: id: %w", ErrMalformed, err)
	}
	e.Target = domain.NormalizeAddress(string(e.Target))
	return e, nil
}
