package demuxcache

// SeekRange is one contiguous region of the timeline reachable by an
// in-cache seek.
type SeekRange struct {
	Start float64
	End   float64
}

// ReaderState is the published snapshot returned by CtrlGetReaderState,
// implementing SPEC_FULL.md §4.8 and the "published snapshot" design note
// of §9: it is the only bridge between the worker's view of the world and
// a Consumer that wants to know "how am I doing" without taking part in
// the worker's own locking discipline.
type ReaderState struct {
	EOF        bool
	Idle       bool
	Underrun   bool
	TSReader   float64
	TSMax      float64
	TSMin      float64
	TSDuration float64
	SeekRanges []SeekRange
}

func (c *Cache) readerStateLocked() ReaderState {
	st := ReaderState{EOF: c.lastEOF}

	underrun := false
	tsReader := NoPTS
	tsMax := NoPTS
	tsMin := NoPTS
	haveAllBounds := true
	anyActive := false

	for _, idx := range c.order {
		q := c.streams[idx]
		if !q.Active {
			continue
		}
		anyActive = true
		if q.forwardEmpty() && !q.EOF {
			underrun = true
		}
		if q.BaseTS != NoPTS && (tsReader == NoPTS || q.BaseTS > tsReader) {
			tsReader = q.BaseTS
		}
		if q.LastTS != NoPTS && (tsMax == NoPTS || q.LastTS > tsMax) {
			tsMax = q.LastTS
		}
		if q.BackPTS != NoPTS && (tsMin == NoPTS || q.BackPTS > tsMin) {
			tsMin = q.BackPTS
		}
		if q.BackPTS == NoPTS || q.LastTS == NoPTS {
			haveAllBounds = false
		}
	}

	st.Underrun = underrun
	st.Idle = (c.idle && !underrun) || c.lastEOF
	st.TSReader = c.applyOffset(tsReader)
	st.TSMax = c.applyOffset(tsMax)
	st.TSMin = c.applyOffset(tsMin)

	if tsMax != NoPTS && tsReader != NoPTS && !c.seeking && anyActive {
		d := tsMax - tsReader
		if d < 0 {
			d = 0
		}
		st.TSDuration = d
	}

	if c.opts.SeekableCache && !c.seeking && anyActive && haveAllBounds && tsMin != NoPTS && tsMax != NoPTS {
		st.SeekRanges = []SeekRange{{Start: c.applyOffset(tsMin), End: c.applyOffset(tsMax)}}
	}

	return st
}

func (c *Cache) applyOffset(ts float64) float64 {
	if ts == NoPTS {
		return NoPTS
	}
	return ts + c.tsOffset
}

// seekRangeLocked returns the single seek range usable by TrySeekCache,
// already adjusted by tsOffset to match caller-supplied pts values.
func (c *Cache) seekRangeLocked() (SeekRange, bool) {
	st := c.readerStateLocked()
	if len(st.SeekRanges) == 0 {
		return SeekRange{}, false
	}
	return st.SeekRanges[0], true
}
