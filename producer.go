package demuxcache

import "context"

// SeekFlags controls how a Producer or the SeekPlanner interprets a
// requested PTS.
type SeekFlags int

const (
	// SeekForward requires the target to be at or after pts.
	SeekForward SeekFlags = 1 << iota
	// SeekHR requests frame-accurate (non-keyframe-snapped) positioning;
	// the in-cache planner leaves the requested pts untouched when set.
	SeekHR
	// SeekFactor interprets pts as a fraction [0,1] of total duration
	// rather than an absolute timestamp; such seeks never use the cache.
	SeekFactor
)

// ControlCmd identifies a query or command routed through Cache.Control.
type ControlCmd int

const (
	CtrlGetCacheInfo ControlCmd = iota
	CtrlGetSize
	CtrlGetBaseFilename
	CtrlGetBitrateStats
	CtrlGetReaderState
	CtrlStreamCtrl
)

// Producer is the external collaborator that turns container bytes into
// Packets. It is the only component the Cache calls out to. The Cache
// releases its mutex around every call except Seekable, which it queries
// while holding the lock.
type Producer interface {
	// Open prepares the producer to deliver packets; checkLevel mirrors a
	// demuxer's "how hard should I verify this is really my format" knob.
	Open(ctx context.Context, checkLevel int) error

	// FillBuffer reads and delivers at least one packet via the supplied
	// AddPacket callback, returning the number of packets delivered. A
	// return of 0 signals end of stream; a negative return signals an
	// unrecoverable read error.
	FillBuffer(ctx context.Context, add func(Packet)) (int, error)

	// Seek repositions the producer so the next FillBuffer call resumes
	// at or near pts, honoring flags.
	Seek(ctx context.Context, pts float64, flags SeekFlags) error

	// Control forwards a control code the Cache could not answer locally.
	Control(cmd ControlCmd, arg interface{}) (interface{}, error)

	// Close releases producer resources. Idempotent.
	Close() error

	// Streams enumerates the producer's stream table. Called once after
	// Open and whenever the producer signals a stream-table change.
	Streams() []ProducerStream

	// Seekable reports whether Seek can be expected to succeed at all
	// (false for, e.g., a live network feed).
	Seekable() bool
}

// ProducerStream describes one elementary stream as reported by a
// Producer, used by the Cache to create the matching StreamQueue.
type ProducerStream struct {
	Index      int
	Kind       StreamKind
	Codec      string
	Autoselect bool
	IgnoreEOF  bool

	// AttachedPicture, when non-nil, is delivered once and then the
	// stream reports EOF; used for cover-art style streams.
	AttachedPicture *Packet
}
