package demuxcache

import "github.com/lanikai/demuxcache/internal/logging"

var queueLog = logging.DefaultLogger.WithTag("queue")

// StreamQueue is the per-stream FIFO split into a back-buffer (already
// delivered, kept for in-cache seeking and bitrate estimation) and a
// forward-buffer (read ahead, not yet delivered). The split point is
// readerHead: everything from readerHead onward is forward; everything
// strictly before it is back.
//
// All fields are guarded by the owning Cache's mutex; a StreamQueue never
// locks on its own.
type StreamQueue struct {
	Index int
	Kind  StreamKind
	Codec string

	Selected bool
	Active   bool
	EOF      bool

	NeedRefresh bool
	Refreshing  bool

	CorrectDTS bool
	CorrectPos bool
	LastDTS    float64
	LastPos    int64

	Autoselect bool
	IgnoreEOF  bool

	// attachedPicture, when non-nil, is delivered exactly once and then
	// marks the queue EOF; used for cover-art style streams.
	attachedPicture *Packet
	pictureSent     bool

	head, tail *packetNode
	readerHead *packetNode

	FwPackets int
	FwBytes   int64
	BwBytes   int64

	LastTS float64
	BaseTS float64

	BackPTS float64

	SkipToKeyframe bool

	lastBrTS    float64
	lastBrBytes int64
	Bitrate     float64

	// CC is the index of the derived closed-caption sidecar stream, or -1.
	CC int

	// parent is the source-stream index for a CC sidecar, or -1.
	parent int
}

func newStreamQueue(index int, kind StreamKind) *StreamQueue {
	return &StreamQueue{
		Index:      index,
		Kind:       kind,
		CorrectDTS: true,
		CorrectPos: true,
		LastDTS:    NoPTS,
		LastPos:    -1,
		LastTS:     NoPTS,
		BaseTS:     NoPTS,
		BackPTS:    NoPTS,
		lastBrTS:   NoPTS,
		CC:         -1,
		parent:     -1,
	}
}

// empty reports whether the queue holds no packets at all (forward or back).
func (q *StreamQueue) empty() bool { return q.head == nil }

// forwardEmpty reports whether the consumer has nothing left to dequeue.
func (q *StreamQueue) forwardEmpty() bool { return q.readerHead == nil }

// clear drops every packet and resets per-seek cursors; used on deselect
// and before a real (producer) seek.
func (q *StreamQueue) clear() {
	q.head, q.tail, q.readerHead = nil, nil, nil
	q.FwPackets, q.FwBytes, q.BwBytes = 0, 0, 0
	q.BackPTS = NoPTS
	q.SkipToKeyframe = false
	q.pictureSent = false
}

// clearDemuxState resets monotonicity/refresh bookkeeping, used whenever a
// stream is (re)selected or a seek invalidates position tracking.
func (q *StreamQueue) clearDemuxState() {
	q.CorrectDTS = true
	q.CorrectPos = true
	q.LastDTS = NoPTS
	q.LastPos = -1
	q.Refreshing = false
	q.EOF = false
}

// append adds a packet to the tail of the list, deciding whether it joins
// the back-buffer or starts/continues the forward-buffer.
func (q *StreamQueue) append(p Packet) *packetNode {
	n := &packetNode{pkt: p}
	if q.readerHead == nil && (!q.SkipToKeyframe || p.Keyframe) {
		q.readerHead = n
		q.SkipToKeyframe = false
	}
	if q.tail == nil {
		q.head = n
	} else {
		q.tail.next = n
	}
	q.tail = n

	// n was just linked in as the new tail, so it lies in the forward
	// buffer exactly when a forward buffer already exists (readerHead was
	// set either earlier, or by this same append above).
	size := p.TotalSize()
	if q.readerHead != nil {
		q.FwPackets++
		q.FwBytes += size
	} else {
		q.BwBytes += size
	}
	return n
}

// dequeue detaches and returns the packet at readerHead, or false if the
// forward buffer is empty.
func (q *StreamQueue) dequeue() (Packet, bool) {
	if q.attachedPicture != nil {
		if q.pictureSent {
			return Packet{}, false
		}
		q.pictureSent = true
		q.EOF = true
		return *q.attachedPicture, true
	}
	if q.readerHead == nil {
		return Packet{}, false
	}
	n := q.readerHead
	q.readerHead = n.next
	q.FwPackets--
	size := n.pkt.TotalSize()
	q.FwBytes -= size
	q.BwBytes += size
	return n.pkt, true
}

// dropHead removes the queue's head packet (must not be readerHead),
// crediting its bytes out of the back-buffer.
func (q *StreamQueue) dropHead() {
	n := q.head
	if n == nil || n == q.readerHead {
		return
	}
	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	q.BwBytes -= n.pkt.TotalSize()
}
