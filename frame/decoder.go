package frame

// Sentinel bytes of the serial framing protocol. Everything between a start
// and the following end byte is the frame body.
const (
	StartByte = '$'
	EndByte   = '!'
)

// Decoder recovers complete frame bodies from an unbounded serial byte
// stream. It is a two-state machine: idle (discarding bytes until a start
// sentinel) and accumulating (collecting body bytes until an end sentinel).
// A start sentinel always clears the buffer, so a frame interrupted mid-way
// is discarded as soon as the next frame begins. There is no timeout: the
// decoder is re-entrant per byte and a stalled frame only delays the next
// frame's start.
type Decoder struct {
	buf          []byte
	accumulating bool
}

// NewDecoder returns a decoder in the idle state.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed consumes a single byte from the stream. When the byte completes a
// frame, Feed returns the accumulated body and true; otherwise it returns
// nil and false. The returned slice is a copy and stays valid across
// subsequent calls.
func (d *Decoder) Feed(b byte) ([]byte, bool) {
	switch b {
	case StartByte:
		d.buf = d.buf[:0]
		d.accumulating = true
	case EndByte:
		if !d.accumulating {
			return nil, false
		}
		body := make([]byte, len(d.buf))
		copy(body, d.buf)
		d.buf = d.buf[:0]
		d.accumulating = false
		return body, true
	default:
		if d.accumulating {
			d.buf = append(d.buf, b)
		}
	}
	return nil, false
}
