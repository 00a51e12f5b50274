package demuxcache

import "testing"

func buildKeyframeQueue() *StreamQueue {
	q := newStreamQueue(0, KindVideo)
	for _, pts := range []float64{0, 2, 4, 6, 8} {
		q.append(pkt(0, pts, true, 10))
	}
	return q
}

func TestFindSeekTargetBackward(t *testing.T) {
	q := buildKeyframeQueue()

	n, ok := findSeekTarget(q, 5, 0)
	if !ok {
		t.Fatal("findSeekTarget: no candidate, want one")
	}
	if n.pkt.PTS != 4 {
		t.Fatalf("target PTS = %v, want 4 (largest diff<=0)", n.pkt.PTS)
	}
}

func TestFindSeekTargetForward(t *testing.T) {
	q := buildKeyframeQueue()

	n, ok := findSeekTarget(q, 5, SeekForward)
	if !ok {
		t.Fatal("findSeekTarget: no candidate, want one")
	}
	if n.pkt.PTS != 6 {
		t.Fatalf("target PTS = %v, want 6 (smallest diff>=0)", n.pkt.PTS)
	}
}

func TestFindSeekTargetExactMatch(t *testing.T) {
	q := buildKeyframeQueue()

	n, ok := findSeekTarget(q, 4, 0)
	if !ok || n.pkt.PTS != 4 {
		t.Fatalf("exact match should pick pts=4 node, got %v ok=%v", n, ok)
	}
}

func TestFindSeekTargetNoCandidateBeforeAnyKeyframe(t *testing.T) {
	q := newStreamQueue(0, KindVideo)
	q.append(pkt(0, 0, false, 10))

	_, ok := findSeekTarget(q, 0, 0)
	if ok {
		t.Fatal("findSeekTarget on a queue with no keyframes should report no candidate")
	}
}
