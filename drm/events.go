package drm

import (
	"encoding/binary"
	"time"
)

// Event types the kernel writes to a card node, drm_event.type values
const (
	eventTypeVBlank       = 0x01
	eventTypeFlipComplete = 0x02
)

const eventHeaderLen = 8
const vblankPayloadLen = 24

// VBlank reports that a controller finished scanning out a frame.
// Page flip completions land here too, they carry the same payload and
// mean the same thing to the scheduler: the previous buffer is done
type VBlank struct {
	CRTC     CRTCID
	Sequence uint32
	When     time.Time
	UserData uint64
}

// DecodeEvents parses the event records read from a card node. Each
// record is an 8 byte header (type, total length) followed by a payload.
// Unknown record types are skipped over by their advertised length,
// truncated trailing data is dropped
func DecodeEvents(buf []byte) []VBlank {
	var events []VBlank
	for len(buf) >= eventHeaderLen {
		typ := binary.LittleEndian.Uint32(buf[0:4])
		length := int(binary.LittleEndian.Uint32(buf[4:8]))
		if length < eventHeaderLen || length > len(buf) {
			break
		}
		payload := buf[eventHeaderLen:length]
		buf = buf[length:]

		if typ != eventTypeVBlank && typ != eventTypeFlipComplete {
			continue
		}
		if len(payload) < vblankPayloadLen {
			continue
		}
		userData := binary.LittleEndian.Uint64(payload[0:8])
		sec := binary.LittleEndian.Uint32(payload[8:12])
		usec := binary.LittleEndian.Uint32(payload[12:16])
		seq := binary.LittleEndian.Uint32(payload[16:20])
		crtc := binary.LittleEndian.Uint32(payload[20:24])
		events = append(events, VBlank{
			CRTC:     CRTCID(crtc),
			Sequence: seq,
			When:     time.Unix(int64(sec), int64(usec)*1000),
			UserData: userData,
		})
	}
	return events
}
