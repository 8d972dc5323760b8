package presence

// Kind tags what an envelope is for.
// Envelopes without a kind come from peers that predate the tag and are treated as greetings.
type Kind string

const (
	// KindGreeting is a broadcast hello that expects a reply.
	KindGreeting Kind = "greeting"

	// KindReply answers a greeting and is never answered itself.
	KindReply Kind = "reply"
)

// IsReply reports whether the kind marks a reply.
func (k Kind) IsReply() bool {
	return k == KindReply
}

// Envelope is the unit exchanged over a peer channel.
// Delivery is fire-and-forget: there are no sequence numbers or acknowledgements.
type Envelope struct {
	SenderID string `json:"uuid" validate:"required"`
	Content  string `json:"content"`
	Kind     Kind   `json:"kind,omitempty" validate:"omitempty,oneof=greeting reply"`
}
