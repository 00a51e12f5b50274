package demuxcache

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/nareix/joy4/av"
	"github.com/nareix/joy4/av/avutil"
	"github.com/nareix/joy4/format/mp4"
	"github.com/pkg/errors"

	"github.com/lanikai/demuxcache/internal/logging"
)

var fileProducerLog = logging.DefaultLogger.WithTag("producer.file")

// FileProducer is a concrete Producer (SPEC_FULL.md §4.9/§6.1) that reads
// packets out of a local MP4/elementary-stream file via joy4, the same
// demuxing library the teacher's own file-backed media source used. It
// exists so the Cache can be exercised end to end by the CLI, not as an
// in-scope container parser of its own.
type FileProducer struct {
	path string

	mu   sync.Mutex
	file av.DemuxCloser

	// seekable is non-nil when the opened demuxer supports SeekToTime;
	// joy4's avutil.Open returns the generic av.DemuxCloser interface, so
	// seek support has to be recovered with a type assertion.
	seekable interface {
		SeekToTime(time.Duration) (av.Packet, error)
	}

	streams []ProducerStream
	codecs  []av.CodecData
}

// NewFileProducer constructs a FileProducer for path. Opening the
// underlying file happens in Open, per the Producer contract.
func NewFileProducer(path string) *FileProducer {
	return &FileProducer{path: path}
}

func (f *FileProducer) Open(ctx context.Context, checkLevel int) error {
	file, err := avutil.Open(f.path)
	if err != nil {
		return errors.Wrapf(err, "open %s", f.path)
	}

	codecs, err := file.Streams()
	if err != nil {
		file.Close()
		return errors.Wrapf(err, "read stream table of %s", f.path)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.file = file
	f.codecs = codecs
	if seekable, ok := file.(interface {
		SeekToTime(time.Duration) (av.Packet, error)
	}); ok {
		f.seekable = seekable
	}

	f.streams = make([]ProducerStream, len(codecs))
	for i, cd := range codecs {
		ps := ProducerStream{Index: i, Codec: cd.Type().String(), Autoselect: true}
		switch {
		case cd.Type().IsVideo():
			ps.Kind = KindVideo
		case cd.Type().IsAudio():
			ps.Kind = KindAudio
		default:
			ps.Kind = KindUnknown
		}
		f.streams[i] = ps
	}

	fileProducerLog.Info("opened %s: %d stream(s)", f.path, len(f.streams))
	return nil
}

func (f *FileProducer) Streams() []ProducerStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ProducerStream, len(f.streams))
	copy(out, f.streams)
	return out
}

func (f *FileProducer) Seekable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seekable != nil
}

// FillBuffer reads exactly one packet from the underlying demuxer and
// hands it to add, converting joy4's av.Packet into the Cache's Packet
// representation. joy4 packets carry only a presentation Time, so DTS is
// left absent (NoPTS) rather than guessed.
func (f *FileProducer) FillBuffer(ctx context.Context, add func(Packet)) (int, error) {
	f.mu.Lock()
	file := f.file
	f.mu.Unlock()
	if file == nil {
		return -1, errors.New("file producer not open")
	}

	pkt, err := file.ReadPacket()
	if err == io.EOF {
		return 0, nil
	}
	if err != nil {
		return -1, errors.Wrap(err, "read packet")
	}

	add(Packet{
		StreamIndex: int(pkt.Idx),
		Data:        pkt.Data,
		PTS:         pkt.Time.Seconds(),
		DTS:         NoPTS,
		Pos:         -1,
		Keyframe:    pkt.IsKeyFrame,
	})
	return 1, nil
}

func (f *FileProducer) Seek(ctx context.Context, pts float64, flags SeekFlags) error {
	f.mu.Lock()
	seekable := f.seekable
	f.mu.Unlock()
	if seekable == nil {
		return &SeekError{PTS: pts, Reason: "file producer has no seekable demuxer"}
	}
	if _, err := seekable.SeekToTime(time.Duration(pts * float64(time.Second))); err != nil {
		return &SeekError{PTS: pts, Reason: "SeekToTime failed", Wrapped: err}
	}
	return nil
}

func (f *FileProducer) Control(cmd ControlCmd, arg interface{}) (interface{}, error) {
	switch cmd {
	case CtrlGetBaseFilename:
		return f.path, nil
	default:
		return nil, ErrControlUnhandled
	}
}

func (f *FileProducer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

// compile-time assertion: FileProducer must satisfy Producer.
var _ Producer = (*FileProducer)(nil)

// compile-time assertion: mp4.Demuxer must be assignable to our seek
// capability interface, so the type assertion in Open has a real target.
var _ interface {
	SeekToTime(time.Duration) (av.Packet, error)
} = (*mp4.Demuxer)(nil)
