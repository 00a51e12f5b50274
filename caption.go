package demuxcache

// ccIndexBase is offset far past any real producer stream index so
// sidecar streams never collide with one.
const ccIndexBase = 1 << 16

// EnsureCCTrack lazily creates the closed-caption sidecar queue for
// sourceIndex on first use, per SPEC_FULL.md §4.7. Returns the sidecar's
// synthetic stream index.
func (c *Cache) EnsureCCTrack(sourceIndex int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	src, ok := c.streams[sourceIndex]
	if !ok {
		return -1
	}
	if src.CC >= 0 {
		return src.CC
	}

	ccIndex := ccIndexBase + sourceIndex
	cc := newStreamQueue(ccIndex, KindSub)
	cc.Codec = "eia_608"
	cc.Autoselect = true
	cc.IgnoreEOF = true
	cc.Selected = true
	cc.Active = true
	cc.parent = sourceIndex

	c.streams[ccIndex] = cc
	c.order = append(c.order, ccIndex)
	src.CC = ccIndex
	return ccIndex
}

// AddCaptionPacket feeds one decoded caption packet for sourceIndex's
// sidecar track. The caption's timestamp is kept in the cache's internal
// (pre-offset) timebase, so tsOffset is subtracted before append to
// mirror the correction DequeuePacket re-applies on the way out.
func (c *Cache) AddCaptionPacket(sourceIndex int, p Packet) {
	c.mu.Lock()
	src, ok := c.streams[sourceIndex]
	ccIndex := -1
	if ok {
		ccIndex = src.CC
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	if ccIndex < 0 {
		ccIndex = c.EnsureCCTrack(sourceIndex)
		if ccIndex < 0 {
			return
		}
	}

	c.mu.Lock()
	if p.PTS != NoPTS {
		p.PTS -= c.tsOffset
	}
	if p.DTS != NoPTS {
		p.DTS -= c.tsOffset
	}
	p.StreamIndex = ccIndex
	c.addPacketLocked(p)
	c.mu.Unlock()
}
