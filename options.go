package demuxcache

import "time"

// Options mirrors the distilled spec's option table (§6). Constructed via
// functional options so the CLI and programmatic callers share one
// validation path.
type Options struct {
	ReadaheadSecs   float64
	CacheSecs       float64
	MaxBytes        int64
	MaxBytesBw      int64
	ForceSeekable   bool
	SeekableCache   bool
	CreateCCTrack   bool
	AccessRefs      bool
	Autoselect      bool
	ReconnectWindow time.Duration
}

// DefaultOptions matches the distilled spec's stated defaults.
func DefaultOptions() Options {
	return Options{
		ReadaheadSecs: 1.0,
		MaxBytes:      400 << 20,
		MaxBytesBw:    0,
		SeekableCache: true,
		Autoselect:    true,
	}
}

// Option mutates an Options value; invalid values are reported through
// Validate rather than at apply time, so options can be composed freely.
type Option func(*Options)

func WithReadaheadSecs(secs float64) Option {
	return func(o *Options) { o.ReadaheadSecs = secs }
}

func WithCacheSecs(secs float64) Option {
	return func(o *Options) { o.CacheSecs = secs }
}

func WithMaxBytes(n int64) Option {
	return func(o *Options) { o.MaxBytes = n }
}

func WithMaxBytesBack(n int64) Option {
	return func(o *Options) { o.MaxBytesBw = n }
}

func WithForceSeekable(v bool) Option {
	return func(o *Options) { o.ForceSeekable = v }
}

func WithSeekableCache(v bool) Option {
	return func(o *Options) { o.SeekableCache = v }
}

func WithCreateCCTrack(v bool) Option {
	return func(o *Options) { o.CreateCCTrack = v }
}

func WithAccessReferences(v bool) Option {
	return func(o *Options) { o.AccessRefs = v }
}

func WithAutoselect(v bool) Option {
	return func(o *Options) { o.Autoselect = v }
}

// Validate rejects option combinations that can't be satisfied, returning
// a *ConfigError so callers can errors.As on a specific bad field.
func (o Options) Validate() error {
	if o.ReadaheadSecs < 0 {
		return &ConfigError{Option: "demuxer-readahead-secs", Value: o.ReadaheadSecs, Reason: "must be >= 0"}
	}
	if o.MaxBytes < 0 {
		return &ConfigError{Option: "demuxer-max-bytes", Value: o.MaxBytes, Reason: "must be >= 0"}
	}
	if o.MaxBytesBw < 0 {
		return &ConfigError{Option: "demuxer-max-back-bytes", Value: o.MaxBytesBw, Reason: "must be >= 0"}
	}
	return nil
}

// Apply builds an Options value from DefaultOptions plus overrides.
func Apply(opts ...Option) (Options, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}
