// Package demuxcache implements a multi-stream demuxer packet cache and
// read-ahead controller: a bounded, per-stream packet queue fed by a
// Producer on one goroutine and drained by consumer calls on any number
// of others, with in-cache seeking, mid-stream track switching, and
// closed-caption sidecar extraction layered on top of a single mutex and
// condition variable.
package demuxcache

import (
	"context"
	"sync"

	"github.com/lanikai/demuxcache/internal/logging"
)

var cacheLog = logging.DefaultLogger.WithTag("cache")

// WakeupFunc is invoked, outside the Cache's lock, when a stream's forward
// buffer gets its first packet. It is not invoked when a new stream
// appears, when global EOF is reached, or when the forward byte cap is hit.
type WakeupFunc func()

// Cache holds every StreamQueue belonging to one open source, plus the
// global read-ahead/seek state machine described in SPEC_FULL.md §§4-5.
// Every exported method is safe for concurrent use; internally, exactly
// one mutex (mu) guards all mutable state and one condition variable
// (cond) coordinates the worker goroutine with callers.
type Cache struct {
	opts     Options
	producer Producer

	mu   sync.Mutex
	cond *sync.Cond

	streams map[int]*StreamQueue
	order   []int // stream indices in stable creation order

	tsOffset float64

	// filepos is the byte position of the most recently dequeued packet
	// that carried one, cache-wide rather than per-stream, per
	// SPEC_FULL.md §4.2/§5.
	filepos int64

	seeking        bool
	seekPTS        float64
	seekFlags      SeekFlags
	tracksSwitched bool
	refPTS         float64

	forceCacheUpdate bool
	eof              bool
	lastEOF          bool
	idle             bool
	initialState     bool

	warnedQueueOverflow bool

	wakeup WakeupFunc

	threadTerminate bool
	wg              sync.WaitGroup

	closeOnce sync.Once
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewCache creates a Cache bound to producer, applies opts over
// DefaultOptions, enumerates the producer's stream table, and launches
// the ReadAheadWorker goroutine.
func NewCache(parent context.Context, producer Producer, opts ...Option) (*Cache, error) {
	o, err := Apply(opts...)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)

	c := &Cache{
		opts:         o,
		producer:     producer,
		streams:      make(map[int]*StreamQueue),
		filepos:      -1,
		initialState: true,
		idle:         true,
		ctx:          ctx,
		cancel:       cancel,
	}
	c.cond = sync.NewCond(&c.mu)

	if err := producer.Open(ctx, 0); err != nil {
		cancel()
		return nil, &ProducerError{Op: "Open", Wrapped: err}
	}

	for _, ps := range producer.Streams() {
		c.addStreamLocked(ps)
	}

	if o.Autoselect {
		c.autoselectDefaults()
	}

	c.wg.Add(1)
	go c.runWorker()

	return c, nil
}

// SetWakeupCallback installs the function invoked on state transitions a
// blocked consumer might care about. Must be called before any packets
// flow to avoid missed wakeups.
func (c *Cache) SetWakeupCallback(f WakeupFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wakeup = f
}

func (c *Cache) addStreamLocked(ps ProducerStream) *StreamQueue {
	q := newStreamQueue(ps.Index, ps.Kind)
	q.Codec = ps.Codec
	q.Autoselect = ps.Autoselect
	q.IgnoreEOF = ps.IgnoreEOF
	q.attachedPicture = ps.AttachedPicture
	c.streams[ps.Index] = q
	c.order = append(c.order, ps.Index)
	return q
}

// autoselectDefaults picks the lowest-index autoselect-eligible stream of
// each kind that has no explicit selection yet. Runs once at open, before
// the worker starts, per SPEC_FULL.md §4.4.
func (c *Cache) autoselectDefaults() {
	chosen := make(map[StreamKind]bool)
	for _, idx := range c.order {
		q := c.streams[idx]
		if q.Selected {
			chosen[q.Kind] = true
		}
	}
	for _, idx := range c.order {
		q := c.streams[idx]
		if chosen[q.Kind] || !q.Autoselect || q.attachedPicture != nil {
			continue
		}
		q.Selected = true
		q.Active = true
		chosen[q.Kind] = true
	}
}

// AddPacket is called by the Producer (from within FillBuffer, which the
// worker invokes without holding the lock) to deliver one packet. It
// implements SPEC_FULL.md §4.1 steps 1-11.
func (c *Cache) AddPacket(p Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addPacketLocked(p)
}

func (c *Cache) addPacketLocked(p Packet) {
	q, ok := c.streams[p.StreamIndex]
	if !ok {
		return
	}

	dropped := false
	if q.Refreshing {
		resumed := false
		switch {
		case q.CorrectDTS && p.DTS != NoPTS:
			resumed = p.DTS >= q.LastDTS
		case q.CorrectPos && p.Pos >= 0:
			resumed = p.Pos >= q.LastPos
		default:
			q.Refreshing = false
		}
		if q.Refreshing && !resumed {
			dropped = true
		} else {
			q.Refreshing = false
		}
	}

	if !q.Selected || q.NeedRefresh || c.seeking || dropped {
		return
	}

	if q.CorrectPos && !(p.Pos >= 0 && p.Pos > q.LastPos) {
		q.CorrectPos = false
	}
	if q.CorrectDTS && !(p.DTS != NoPTS && p.DTS > q.LastDTS) {
		q.CorrectDTS = false
	}
	if p.Pos >= 0 {
		q.LastPos = p.Pos
	}
	if p.DTS != NoPTS {
		q.LastDTS = p.DTS
	}

	if q.Kind != KindVideo && p.PTS == NoPTS {
		p.PTS = p.DTS
	}

	firstForward := q.forwardEmpty()
	n := q.append(p)

	if q.BackPTS == NoPTS && p.Keyframe {
		q.BackPTS = recomputeKeyframeTargetPTS(n)
	}

	if !q.IgnoreEOF {
		q.EOF = false
		c.eof = false
		c.lastEOF = false
	}

	c.updateLastTS(q, &p)
	if q.BaseTS == NoPTS {
		q.BaseTS = q.LastTS
	}

	c.cond.Broadcast()
	if firstForward && c.wakeup != nil {
		c.mu.Unlock()
		c.wakeup()
		c.mu.Lock()
	}
}

// updateLastTS applies the 10-second asymmetric reset window documented
// as an Open Question in SPEC_FULL.md §9: a new timestamp more than 10s
// behind the running maximum replaces it outright rather than being
// folded in as a monotonic max, since that gap is far more likely to be
// a real discontinuity (e.g. a looped or concatenated segment) than
// reordering noise.
func (c *Cache) updateLastTS(q *StreamQueue, p *Packet) {
	ts := p.rangeTS()
	if ts == NoPTS {
		return
	}
	if p.Segmented && ts > p.End {
		ts = p.End
	}
	if q.LastTS == NoPTS || ts > q.LastTS || ts+10 < q.LastTS {
		q.LastTS = ts
	}
}

// DequeuePacket hands the next forward-buffer packet for stream index to
// the caller, implementing SPEC_FULL.md §4.2.
func (c *Cache) DequeuePacket(streamIndex int) (Packet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q, ok := c.streams[streamIndex]
	if !ok {
		return Packet{}, false
	}
	p, ok := q.dequeue()
	if !ok {
		return Packet{}, false
	}

	q.BaseTS = p.rangeTS()
	c.updateBitrate(q, &p)
	if p.Pos >= 0 {
		c.filepos = p.Pos
	}

	if c.tsOffset != 0 {
		if p.PTS != NoPTS {
			p.PTS += c.tsOffset
		}
		if p.DTS != NoPTS {
			p.DTS += c.tsOffset
		}
		if p.Segmented {
			p.Start += c.tsOffset
			p.End += c.tsOffset
		}
	}

	c.pruneLocked()
	return p, true
}

// updateBitrate maintains the sliding bitrate estimator. Every dequeued
// packet's bytes accumulate into lastBrBytes regardless of kind; the
// estimate itself is only recomputed at keyframe boundaries, per
// SPEC_FULL.md §4.2 (mirroring mpv demux.c's dequeue_packet, which does
// ds->last_br_bytes += dp->len unconditionally and only samples the
// window at a keyframe).
func (c *Cache) updateBitrate(q *StreamQueue, p *Packet) {
	q.lastBrBytes += int64(p.Len())

	if !p.Keyframe {
		return
	}
	ts := p.rangeTS()
	if ts == NoPTS {
		return
	}
	if q.lastBrTS == NoPTS {
		q.lastBrTS, q.lastBrBytes = ts, 0
		return
	}
	dt := ts - q.lastBrTS
	if dt < 0 {
		q.lastBrTS, q.lastBrBytes = ts, 0
		return
	}
	if dt >= 0.5 {
		q.Bitrate = float64(q.lastBrBytes) * 8 / dt
		q.lastBrTS, q.lastBrBytes = ts, 0
	}
}

// SelectTrack toggles whether stream index is fed to the consumer,
// implementing SPEC_FULL.md §4.4.
func (c *Cache) SelectTrack(streamIndex int, refPTS float64, selected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	q, ok := c.streams[streamIndex]
	if !ok || q.Selected == selected {
		return
	}

	q.clearDemuxState()
	q.Selected = selected
	q.Active = selected
	if !selected {
		q.clear()
	}

	c.tracksSwitched = true
	c.eof = false
	q.NeedRefresh = selected && !c.initialState
	if q.NeedRefresh {
		c.refPTS = refPTS
	}
	c.cond.Broadcast()
}

// Control answers reader-state and bitrate queries locally and forwards
// cache-info, size and base-filename queries to the Producer. Any other
// code, CtrlStreamCtrl included, is not dispatched anywhere and returns
// ErrControlUnhandled.
func (c *Cache) Control(cmd ControlCmd, arg interface{}) (interface{}, error) {
	c.mu.Lock()
	switch cmd {
	case CtrlGetReaderState:
		st := c.readerStateLocked()
		c.mu.Unlock()
		return st, nil
	case CtrlGetBitrateStats:
		stats := c.bitrateStatsLocked()
		c.mu.Unlock()
		return stats, nil
	case CtrlGetCacheInfo, CtrlGetSize, CtrlGetBaseFilename:
		c.mu.Unlock()
		return c.producer.Control(cmd, arg)
	default:
		c.mu.Unlock()
		return nil, ErrControlUnhandled
	}
}

// ReaderState is a convenience wrapper around Control(CtrlGetReaderState).
func (c *Cache) ReaderState() ReaderState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readerStateLocked()
}

// BufferBytes reports the current total forward and back-buffer bytes
// across all streams, for metrics/introspection callers.
func (c *Cache) BufferBytes() (fw, bw int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, idx := range c.order {
		q := c.streams[idx]
		fw += q.FwBytes
		bw += q.BwBytes
	}
	return fw, bw
}

// Filepos reports the byte position of the most recently dequeued packet
// that carried one, or -1 if none has yet.
func (c *Cache) Filepos() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filepos
}

// BitrateStats is a convenience wrapper around Control(CtrlGetBitrateStats).
func (c *Cache) BitrateStats() map[StreamKind]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bitrateStatsLocked()
}

func (c *Cache) bitrateStatsLocked() map[StreamKind]float64 {
	sums := make(map[StreamKind]float64)
	seen := make(map[StreamKind]bool)
	for _, idx := range c.order {
		q := c.streams[idx]
		if _, ok := sums[q.Kind]; !ok {
			sums[q.Kind] = 0
		}
		if q.Bitrate > 0 {
			sums[q.Kind] += q.Bitrate
			seen[q.Kind] = true
		}
	}
	for k := range sums {
		if !seen[k] {
			sums[k] = -1
		}
	}
	return sums
}

// Seek requests a position change, trying the in-cache planner first and
// falling back to a real producer seek, per SPEC_FULL.md §4.5.
func (c *Cache) Seek(pts float64, flags SeekFlags) error {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	if flags&SeekFactor == 0 && c.opts.SeekableCache && !c.seeking {
		if c.trySeekCacheLocked(pts, flags) {
			c.mu.Unlock()
			return nil
		}
	}

	if !c.producer.Seekable() && !c.opts.ForceSeekable {
		c.mu.Unlock()
		return &SeekError{PTS: pts, Reason: "producer is not seekable", Wrapped: ErrNotSeekable}
	}

	for _, idx := range c.order {
		c.streams[idx].clearDemuxState()
		c.streams[idx].clear()
	}
	c.eof = false
	c.lastEOF = false
	c.seeking = true
	c.seekPTS = pts
	c.seekFlags = flags
	c.cond.Broadcast()
	c.mu.Unlock()
	return nil
}

// Close stops the worker and releases the producer. Safe to call more
// than once.
func (c *Cache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.threadTerminate = true
		c.closed = true
		c.cond.Broadcast()
		c.mu.Unlock()

		c.wg.Wait()
		c.cancel()

		err = c.producer.Close()
	})
	return err
}

