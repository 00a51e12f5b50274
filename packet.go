package demuxcache

import "math"

// NoPTS is the sentinel for an absent timestamp, distinct from any real
// value a container could produce. math.Inf is an ordinary function, not
// a constant expression, so this must be a var.
var NoPTS = math.Inf(-1)

// StreamKind classifies a Stream for selection, autoselect, and bitrate
// accounting purposes.
type StreamKind int

const (
	KindUnknown StreamKind = iota
	KindVideo
	KindAudio
	KindSub
)

func (k StreamKind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindSub:
		return "sub"
	default:
		return "unknown"
	}
}

// packetOverhead approximates the bookkeeping cost of each queued packet
// so that byte-budget accounting isn't fooled by a stream of tiny packets.
const packetOverhead = 16

// Packet is one compressed access unit handed from a Producer to the
// Cache. Once appended to a queue a Packet is never mutated; Dequeue
// hands the caller a copy.
type Packet struct {
	StreamIndex int
	Data        []byte

	PTS float64
	DTS float64
	Pos int64

	Keyframe bool

	// Segmented packets carry their own validity window; timestamps
	// outside [Start,End] are treated as NoPTS (see clampTS).
	Segmented bool
	Start     float64
	End       float64
}

// Len is the payload size in bytes.
func (p *Packet) Len() int { return len(p.Data) }

// TotalSize is the byte cost charged against forward/back budgets.
func (p *Packet) TotalSize() int64 { return int64(p.Len() + packetOverhead) }

// clampTS applies Segmented validity clipping to a raw timestamp,
// returning NoPTS if ts falls outside [Start,End] or ts itself is NoPTS.
func (p *Packet) clampTS(ts float64) float64 {
	if ts == NoPTS {
		return NoPTS
	}
	if p.Segmented && (ts < p.Start || ts > p.End) {
		return NoPTS
	}
	return ts
}

// rangeTS returns the timestamp used to order this packet within a
// keyframe range: PTS if present, else DTS, clamped to the segment.
func (p *Packet) rangeTS() float64 {
	if p.PTS != NoPTS {
		return p.clampTS(p.PTS)
	}
	return p.clampTS(p.DTS)
}

// packetNode is one link in a StreamQueue's intrusive FIFO.
type packetNode struct {
	pkt  Packet
	next *packetNode
}
