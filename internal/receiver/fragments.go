package receiver

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mikey/sms-guard/internal/core"
	"golang.org/x/text/encoding/unicode"
)

// ActionSMSReceived is the only batch action that is triaged
const ActionSMSReceived = "sms_received"

// Encoding is the payload encoding of a fragment
type Encoding string

const (
	EncodingUTF8 Encoding = "utf8"
	EncodingUCS2 Encoding = "ucs2"
)

// Fragment is one part of a multi-part text message
type Fragment struct {
	Seq      int      `json:"seq"`
	Encoding Encoding `json:"encoding"`
	Data     []byte   `json:"data"`
}

// Batch is the raw delivery from an inbound gateway
type Batch struct {
	Action     string     `json:"action"`
	Sender     string     `json:"sender"`
	Fragments  []Fragment `json:"fragments"`
	ReceivedAt time.Time  `json:"received_at"`
}

// NewTextBatch builds a single-fragment UTF-8 batch
func NewTextBatch(sender, body string, receivedAt time.Time) Batch {
	return Batch{
		Action:     ActionSMSReceived,
		Sender:     sender,
		Fragments:  []Fragment{{Seq: 0, Encoding: EncodingUTF8, Data: []byte(body)}},
		ReceivedAt: receivedAt,
	}
}

// Assemble decodes and concatenates the fragments in sequence order
func Assemble(batch Batch) (core.InboundMessage, error) {
	if strings.TrimSpace(batch.Sender) == "" {
		return core.InboundMessage{}, fmt.Errorf("%w: batch has no sender", core.ErrMalformedInput)
	}
	if len(batch.Fragments) == 0 {
		return core.InboundMessage{}, fmt.Errorf("%w: batch has no fragments", core.ErrMalformedInput)
	}

	fragments := make([]Fragment, len(batch.Fragments))
	copy(fragments, batch.Fragments)
	sort.SliceStable(fragments, func(i, j int) bool {
		return fragments[i].Seq < fragments[j].Seq
	})

	var body strings.Builder
	for i, f := range fragments {
		if i > 0 && f.Seq == fragments[i-1].Seq {
			return core.InboundMessage{}, fmt.Errorf("%w: duplicate fragment %d", core.ErrMalformedInput, f.Seq)
		}
		text, err := decodeFragment(f)
		if err != nil {
			return core.InboundMessage{}, fmt.Errorf("%w: fragment %d: %v", core.ErrMalformedInput, f.Seq, err)
		}
		body.WriteString(text)
	}

	if strings.TrimSpace(body.String()) == "" {
		return core.InboundMessage{}, fmt.Errorf("%w: empty body", core.ErrMalformedInput)
	}

	receivedAt := batch.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	return core.NewInboundMessage(batch.Sender, body.String(), receivedAt), nil
}

func decodeFragment(f Fragment) (string, error) {
	switch f.Encoding {
	case EncodingUTF8, "":
		if !utf8.Valid(f.Data) {
			return "", fmt.Errorf("invalid UTF-8 payload")
		}
		return string(f.Data), nil
	case EncodingUCS2:
		if len(f.Data)%2 != 0 {
			return "", fmt.Errorf("odd UCS-2 payload length %d", len(f.Data))
		}
		decoded, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(f.Data)
		if err != nil {
			return "", fmt.Errorf("failed to decode UCS-2 payload: %w", err)
		}
		return string(decoded), nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", f.Encoding)
	}
}
