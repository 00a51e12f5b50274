package demuxcache

import "testing"

// TestQueueByteInvariant checks invariant 1 from SPEC_FULL.md §8: FwBytes
// + BwBytes always equals the sum of queued packets' TotalSize.
func TestQueueByteInvariant(t *testing.T) {
	q := newStreamQueue(0, KindVideo)

	var total int64
	for i := 0; i < 5; i++ {
		p := pkt(0, float64(i), i == 0, 10+i)
		total += p.TotalSize()
		q.append(p)
	}

	if got := q.FwBytes + q.BwBytes; got != total {
		t.Fatalf("FwBytes+BwBytes = %d, want %d", got, total)
	}

	// First packet starts the forward buffer (readerHead==nil initially).
	if q.FwPackets != 5 {
		t.Fatalf("FwPackets = %d, want 5", q.FwPackets)
	}
}

func TestQueueDequeueMovesBytesToBack(t *testing.T) {
	q := newStreamQueue(0, KindVideo)
	q.append(pkt(0, 0, true, 10))
	q.append(pkt(0, 1, false, 20))

	fwBefore := q.FwBytes
	p, ok := q.dequeue()
	if !ok {
		t.Fatal("dequeue() returned false, want true")
	}
	if p.PTS != 0 {
		t.Fatalf("dequeued PTS = %v, want 0 (FIFO order)", p.PTS)
	}
	if q.FwBytes != fwBefore-p.TotalSize() {
		t.Fatalf("FwBytes after dequeue = %d, want %d", q.FwBytes, fwBefore-p.TotalSize())
	}
	if q.BwBytes != p.TotalSize() {
		t.Fatalf("BwBytes after dequeue = %d, want %d", q.BwBytes, p.TotalSize())
	}
}

func TestQueueSkipToKeyframe(t *testing.T) {
	q := newStreamQueue(0, KindVideo)
	q.SkipToKeyframe = true

	q.append(pkt(0, 0, false, 10))
	if q.readerHead != nil {
		t.Fatal("readerHead set on non-keyframe while SkipToKeyframe")
	}

	q.append(pkt(0, 1, true, 10))
	if q.readerHead == nil || q.readerHead.pkt.PTS != 1 {
		t.Fatal("readerHead should land on first keyframe after SkipToKeyframe")
	}
	if q.SkipToKeyframe {
		t.Fatal("SkipToKeyframe should clear once readerHead is set")
	}
}

func TestQueueEmptyWhenNoReaderHead(t *testing.T) {
	q := newStreamQueue(0, KindVideo)
	if !q.forwardEmpty() {
		t.Fatal("forwardEmpty() = false on fresh queue")
	}
	if q.FwPackets != 0 || q.FwBytes != 0 {
		t.Fatal("invariant 2 violated: forward counters nonzero with readerHead==nil")
	}
}
