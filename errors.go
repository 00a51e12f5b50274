package demuxcache

import "github.com/pkg/errors"

// SeekError reports a seek request that could not be satisfied: a real
// seek was requested on a producer that is not seekable, or the producer
// rejected the seek. A target outside the cache's seek range is not an
// error; Cache.Seek falls back to a real seek instead.
type SeekError struct {
	PTS     float64
	Reason  string
	Wrapped error
}

func (e *SeekError) Error() string {
	if e.Wrapped != nil {
		return errors.Wrapf(e.Wrapped, "seek to %.3f: %s", e.PTS, e.Reason).Error()
	}
	return errors.Errorf("seek to %.3f: %s", e.PTS, e.Reason).Error()
}

func (e *SeekError) Unwrap() error { return e.Wrapped }

// ProducerError wraps a failure returned by the external Producer;
// NewCache returns one when Producer.Open fails.
type ProducerError struct {
	Op      string
	Wrapped error
}

func (e *ProducerError) Error() string {
	return errors.Wrapf(e.Wrapped, "producer %s", e.Op).Error()
}

func (e *ProducerError) Unwrap() error { return e.Wrapped }

// ConfigError reports an invalid or out-of-range option value.
type ConfigError struct {
	Option string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	return errors.Errorf("option %s=%v: %s", e.Option, e.Value, e.Reason).Error()
}

var (
	// ErrControlUnhandled is returned by the cache-local control dispatcher
	// when a control code has no cached handler and must be forwarded to
	// the producer by the caller.
	ErrControlUnhandled = errors.New("control code not handled locally")

	// ErrNotSeekable is wrapped in the *SeekError returned when a real
	// seek is requested on a producer that does not advertise seek
	// capability and force-seekable is unset.
	ErrNotSeekable = errors.New("producer is not seekable")

	// ErrClosed is returned by Cache.Seek when invoked after Close; the
	// other Cache methods do not report it.
	ErrClosed = errors.New("cache is closed")
)
