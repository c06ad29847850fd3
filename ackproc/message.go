package ackproc

import "github.com/gyuho/zab/zxid"

// MessageType tags a Message. Envelope decoding into these types
// happens outside the processor; the processor only inspects Type
// and the fields relevant to that type.
type MessageType int

const (
	// Unknown is any type the processor does not recognize; it is
	// logged and ignored.
	Unknown MessageType = iota
	ACK
	JOIN
	ACK_EPOCH
	DISCONNECTED
	REMOVE

	// COMMIT is only ever produced by the processor, never consumed.
	COMMIT
)

func (t MessageType) String() string {
	switch t {
	case ACK:
		return "ACK"
	case JOIN:
		return "JOIN"
	case ACK_EPOCH:
		return "ACK_EPOCH"
	case DISCONNECTED:
		return "DISCONNECTED"
	case REMOVE:
		return "REMOVE"
	case COMMIT:
		return "COMMIT"
	default:
		return "UNKNOWN"
	}
}

// Message is the tagged envelope carried by a MessageTuple. Only Type
// is used by the processor for inbound events; Zxid is populated for
// the outbound COMMIT message.
type Message struct {
	Type MessageType
	Zxid zxid.Zxid
}

// MessageTuple is one inbound event: server_id names the affected
// peer, and Zxid carries the event's zxid payload when the message
// type requires one (ACK, JOIN, REMOVE). It is meaningless for
// ACK_EPOCH and DISCONNECTED.
type MessageTuple struct {
	ServerID string
	Message  Message
	Zxid     zxid.Zxid
}
