package scmp

import "encoding/binary"

// ExtractMessages drains complete, length-prefixed messages from data in
// order. It returns the raw bytes of each complete message (including its
// envelope) and the number of leading bytes consumed, so the caller can
// Buffer.Shuffle that many bytes out of the receive buffer. A length prefix
// below BaseWireSize (negative lengths included) stops extraction with a
// *FramingError, on which the core drops the connection (spec §9). A
// message claiming more bytes than are buffered stops extraction without
// error, leaving its bytes for a later call.
func ExtractMessages(data []byte, order binary.ByteOrder) (messages [][]byte, consumed int, err error) {
	for {
		remaining := data[consumed:]
		if len(remaining) < BaseWireSize {
			return messages, consumed, nil
		}
		length := int32(order.Uint32(remaining[0:4]))
		if length < BaseWireSize {
			return messages, consumed, &FramingError{Length: length}
		}
		if int(length) > len(remaining) {
			// Incomplete message buffered so far; wait for more bytes.
			return messages, consumed, nil
		}
		messages = append(messages, remaining[:length])
		consumed += int(length)
	}
}

// FramingError reports a malformed length prefix (spec §9: negative or
// otherwise invalid lengths must drop the connection, not be silently
// skipped).
type FramingError struct {
	Length int32
}

func (e *FramingError) Error() string {
	return "scmp: invalid message length prefix"
}
