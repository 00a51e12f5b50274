package demuxcache

import (
	"context"
	"sync"
	"testing"
	"time"
)

// waitUntil polls cond every millisecond until it's true or 2s elapse.
func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

// fakeProducer is a scriptable Producer used across the test suite. Each
// FillBuffer call delivers the next scripted batch of packets (so tests
// can control read-ahead pacing one FillBuffer call at a time).
type fakeProducer struct {
	mu      sync.Mutex
	streams []ProducerStream
	batches [][]Packet
	next    int
	seekOK  bool

	seeks []float64
}

func newFakeProducer(streams []ProducerStream, batches [][]Packet) *fakeProducer {
	return &fakeProducer{streams: streams, batches: batches, seekOK: true}
}

func (f *fakeProducer) Open(ctx context.Context, checkLevel int) error { return nil }

func (f *fakeProducer) Streams() []ProducerStream { return f.streams }

func (f *fakeProducer) Seekable() bool { return f.seekOK }

func (f *fakeProducer) FillBuffer(ctx context.Context, add func(Packet)) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.next >= len(f.batches) {
		return 0, nil
	}
	batch := f.batches[f.next]
	f.next++
	for _, p := range batch {
		add(p)
	}
	return len(batch), nil
}

func (f *fakeProducer) Seek(ctx context.Context, pts float64, flags SeekFlags) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, pts)
	return nil
}

func (f *fakeProducer) Control(cmd ControlCmd, arg interface{}) (interface{}, error) {
	return nil, ErrControlUnhandled
}

func (f *fakeProducer) Close() error { return nil }

func pkt(streamIndex int, pts float64, keyframe bool, size int) Packet {
	return Packet{
		StreamIndex: streamIndex,
		Data:        make([]byte, size),
		PTS:         pts,
		DTS:         pts,
		Pos:         int64(pts * 1000),
		Keyframe:    keyframe,
	}
}
