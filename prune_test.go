package demuxcache

import (
	"context"
	"testing"
)

func TestRecomputeKeyframeTargetPTS(t *testing.T) {
	q := newStreamQueue(0, KindVideo)
	q.append(pkt(0, 5, true, 10))  // keyframe range starts at pts=5
	q.append(pkt(0, 3, false, 10)) // reordered frame within the range
	q.append(pkt(0, 4, false, 10))
	q.append(pkt(0, 9, true, 10)) // next keyframe range

	if got := recomputeKeyframeTargetPTS(q.head); got != 3 {
		t.Fatalf("recomputeKeyframeTargetPTS(first range) = %v, want 3 (min of range)", got)
	}
}

func TestRecomputeKeyframeTargetPTSNotAKeyframe(t *testing.T) {
	q := newStreamQueue(0, KindVideo)
	q.append(pkt(0, 1, false, 10))
	if got := recomputeKeyframeTargetPTS(q.head); got != NoPTS {
		t.Fatalf("recomputeKeyframeTargetPTS(non-keyframe) = %v, want NoPTS", got)
	}
}

// TestPruneNeverCrossesReaderHead checks invariant 5 from SPEC_FULL.md §8:
// pruning never drops packets at or after readerHead.
func TestPruneNeverCrossesReaderHead(t *testing.T) {
	streams := []ProducerStream{{Index: 0, Kind: KindVideo, Autoselect: true}}
	fp := newFakeProducer(streams, [][]Packet{
		{pkt(0, 0, true, 100), pkt(0, 1, true, 100), pkt(0, 2, true, 100), pkt(0, 3, true, 100)},
	})

	c, err := NewCache(context.Background(), fp, WithMaxBytesBack(150), WithAutoselect(true))
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	defer c.Close()

	waitUntil(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		q, ok := c.streams[0]
		return ok && q.head != nil
	})

	// Dequeue a couple of packets so there's back-buffer to prune.
	c.DequeuePacket(0)
	c.DequeuePacket(0)

	c.mu.Lock()
	q := c.streams[0]
	readerHead := q.readerHead
	bw := q.BwBytes
	c.mu.Unlock()

	if bw > 150+200 {
		t.Fatalf("BwBytes = %d, exceeds cap by more than one packet", bw)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	reachable := readerHead == nil
	for n := q.head; n != nil; n = n.next {
		if n == readerHead {
			reachable = true
			break
		}
	}
	if !reachable {
		t.Fatal("pruning dropped readerHead: it is no longer reachable from the queue head")
	}
}
