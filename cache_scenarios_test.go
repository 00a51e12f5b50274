package demuxcache

import (
	"context"
	"testing"
	"time"
)

// TestScenarioBasicReadahead (S1): a selected stream accumulates packets
// until the read-ahead target is met, and dequeues them in order.
func TestScenarioBasicReadahead(t *testing.T) {
	streams := []ProducerStream{{Index: 0, Kind: KindVideo, Autoselect: true}}
	fp := newFakeProducer(streams, [][]Packet{
		{pkt(0, 0, true, 100)},
		{pkt(0, 1, false, 100)},
		{pkt(0, 2, false, 100)},
	})

	c, err := NewCache(context.Background(), fp, WithAutoselect(true), WithReadaheadSecs(1.5))
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	defer c.Close()

	waitUntil(t, func() bool {
		st := c.ReaderState()
		return st.TSMax >= 2 || st.EOF
	})

	p, ok := c.DequeuePacket(0)
	if !ok || p.PTS != 0 {
		t.Fatalf("first dequeue = %+v, ok=%v, want pts=0", p, ok)
	}
	for _, want := range []float64{1, 2} {
		p, ok := c.DequeuePacket(0)
		if !ok || p.PTS != want {
			t.Fatalf("dequeue = pts %v, ok=%v, want pts=%v", p.PTS, ok, want)
		}
	}
}

// TestScenarioForwardCap (S6): hitting the forward byte cap stops
// read-ahead instead of growing the forward buffer without bound.
func TestScenarioForwardCap(t *testing.T) {
	streams := []ProducerStream{{Index: 0, Kind: KindVideo, Autoselect: true}}

	var batches [][]Packet
	for i := 0; i < 50; i++ {
		batches = append(batches, []Packet{pkt(0, float64(i), i == 0, 1000)})
	}
	fp := newFakeProducer(streams, batches)

	c, err := NewCache(context.Background(), fp, WithAutoselect(true), WithMaxBytes(3000), WithReadaheadSecs(100))
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	defer c.Close()

	time.Sleep(50 * time.Millisecond)

	fw, _ := c.BufferBytes()
	if fw > 3000+1100 {
		t.Fatalf("forward bytes = %d, exceeds cap well beyond one packet", fw)
	}
}

// TestScenarioRefreshSeek (S3): selecting a stream mid-stream (not at
// open) requests a refresh seek before the worker resumes normal reads.
func TestScenarioRefreshSeek(t *testing.T) {
	streams := []ProducerStream{
		{Index: 0, Kind: KindVideo, Autoselect: true},
		{Index: 1, Kind: KindAudio, Autoselect: false},
	}
	fp := newFakeProducer(streams, [][]Packet{
		{pkt(0, 0, true, 100)},
		{pkt(0, 1, false, 100)},
	})

	c, err := NewCache(context.Background(), fp, WithAutoselect(true))
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	defer c.Close()

	waitUntil(t, func() bool {
		st := c.ReaderState()
		return st.TSMax >= 0
	})

	c.SelectTrack(1, 0.5, true)

	c.mu.Lock()
	selected := c.streams[1].Selected
	c.mu.Unlock()
	if !selected {
		t.Fatal("SelectTrack did not mark stream selected")
	}

	waitUntil(t, func() bool {
		fp.mu.Lock()
		defer fp.mu.Unlock()
		return len(fp.seeks) > 0
	})
}

// TestScenarioCacheHitSeek (S4): seeking to a timestamp inside the
// already-buffered range succeeds without a producer Seek call.
func TestScenarioCacheHitSeek(t *testing.T) {
	streams := []ProducerStream{{Index: 0, Kind: KindVideo, Autoselect: true}}
	fp := newFakeProducer(streams, [][]Packet{
		{pkt(0, 0, true, 100), pkt(0, 2, true, 100), pkt(0, 4, true, 100), pkt(0, 6, true, 100)},
	})

	c, err := NewCache(context.Background(), fp, WithAutoselect(true), WithSeekableCache(true))
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	defer c.Close()

	waitUntil(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.streams[0].LastTS >= 6
	})

	if err := c.Seek(3, 0); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	fp.mu.Lock()
	seeks := len(fp.seeks)
	fp.mu.Unlock()
	if seeks != 0 {
		t.Fatalf("expected no producer seek on cache hit, got %d", seeks)
	}
}

// TestScenarioCacheMissSeek (S5): seeking outside the buffered range
// falls through to a real producer seek.
func TestScenarioCacheMissSeek(t *testing.T) {
	streams := []ProducerStream{{Index: 0, Kind: KindVideo, Autoselect: true}}
	fp := newFakeProducer(streams, [][]Packet{
		{pkt(0, 0, true, 100), pkt(0, 1, true, 100)},
	})

	c, err := NewCache(context.Background(), fp, WithAutoselect(true), WithSeekableCache(true))
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	defer c.Close()

	waitUntil(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.streams[0].LastTS >= 1
	})

	if err := c.Seek(500, 0); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	waitUntil(t, func() bool {
		fp.mu.Lock()
		defer fp.mu.Unlock()
		return len(fp.seeks) > 0
	})
}
