package internal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxFrameSize bounds how much a single frame may ask us to allocate.
// The original protocol has no ceiling at all; 16 MiB is far beyond the 5 MiB
// client-side file cap yet keeps a misbehaving peer from exhausting memory.
const DefaultMaxFrameSize = 16 << 20

// ErrFrameTooLarge is returned when a frame header announces a payload above
// the configured ceiling.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// ErrMalformedFrame is returned when a payload cannot be decoded into a valid
// Message. It is fatal for the connection it occurred on and nothing else.
var ErrMalformedFrame = errors.New("malformed frame")

// WriteFrame encodes one message as a 4-byte little-endian length header
// followed by the JSON payload. Header and payload go out in a single Write
// so concurrent callers holding the same write lock never interleave frames.
func WriteFrame(w io.Writer, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	buf := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(payload)))
	copy(buf[4:], payload)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame decodes the next message from the stream. The transport may hand
// back data in arbitrarily small fragments, so both reads loop until the
// exact byte count is in. A clean close at a frame boundary surfaces as
// io.EOF; a close mid-frame as io.ErrUnexpectedEOF. maxSize of 0 disables
// the size guard.
func ReadFrame(r io.Reader, maxSize uint32) (Message, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			// peer closed between frames; not an error condition
			return Message{}, io.EOF
		}
		return Message{}, err
	}
	length := binary.LittleEndian.Uint32(header[:])
	if maxSize > 0 && length > maxSize {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Message{}, err
	}
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if err := msg.Validate(); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return msg, nil
}
