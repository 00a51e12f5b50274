package demuxcache

// runWorker is the single read-ahead goroutine started by NewCache. It
// mirrors SPEC_FULL.md §4.3: one thread holds the cache lock except
// during Producer I/O and consumer wakeup callbacks.
func (c *Cache) runWorker() {
	defer c.wg.Done()

	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		if c.threadTerminate {
			return
		}

		if c.tracksSwitched {
			c.tracksSwitched = false
			c.mu.Unlock()
			c.producer.Control(CtrlStreamCtrl, "track-switch")
			c.mu.Lock()
			continue
		}

		if c.seeking {
			pts, flags := c.seekPTS, c.seekFlags
			c.mu.Unlock()
			err := c.producer.Seek(c.ctx, pts, flags)
			c.mu.Lock()
			c.seeking = false
			c.initialState = false
			if err != nil {
				cacheLog.Warn("seek to %.3f failed: %v", pts, err)
			}
			c.cond.Broadcast()
			continue
		}

		if !c.eof {
			refreshPTS, needRefresh := c.getRefreshSeekPTSLocked()
			readMore := needRefresh || c.needMoreLocked()

			bw := c.totalForwardBytesLocked()
			if c.opts.MaxBytes > 0 && bw >= c.opts.MaxBytes {
				c.markStarvedQueuesEOFLocked()
				if !c.warnedQueueOverflow {
					c.warnedQueueOverflow = true
					cacheLog.Warn("forward read-ahead cap (%d bytes) reached", c.opts.MaxBytes)
				}
				c.cond.Broadcast()
				readMore = false
			}

			if readMore {
				c.idle = false
				c.initialState = false
				c.mu.Unlock()
				if needRefresh {
					if err := c.producer.Seek(c.ctx, refreshPTS, 0); err != nil {
						cacheLog.Warn("refresh seek to %.3f failed: %v", refreshPTS, err)
					}
				}
				n, err := c.producer.FillBuffer(c.ctx, c.AddPacket)
				c.mu.Lock()
				if err != nil || n <= 0 {
					c.markAllEOFOnceLocked()
				}
				continue
			}
		}

		if c.forceCacheUpdate {
			c.forceCacheUpdate = false
			continue
		}

		c.idle = true
		if c.threadTerminate {
			return
		}
		c.cond.Wait()
	}
}

// needMoreLocked implements the readMore predicate of SPEC_FULL.md §4.3,
// excluding the refresh-seek contribution (handled by the caller).
func (c *Cache) needMoreLocked() bool {
	for _, idx := range c.order {
		q := c.streams[idx]
		if !q.Active || c.isLazyLocked(idx) {
			continue
		}
		if q.forwardEmpty() || q.Refreshing {
			return true
		}
		if q.LastTS != NoPTS && q.BaseTS != NoPTS && q.LastTS-q.BaseTS < c.readaheadTarget(q) {
			return true
		}
	}
	return false
}

// readaheadTarget is the forward duration target in seconds. Lazy
// streams never reach here: needMoreLocked skips them entirely (see
// isLazyLocked).
func (c *Cache) readaheadTarget(q *StreamQueue) float64 {
	return c.opts.ReadaheadSecs + c.opts.CacheSecs
}

func (c *Cache) totalForwardBytesLocked() int64 {
	var total int64
	for _, idx := range c.order {
		total += c.streams[idx].FwBytes
	}
	return total
}

func (c *Cache) markStarvedQueuesEOFLocked() {
	for _, idx := range c.order {
		q := c.streams[idx]
		if q.Active && q.forwardEmpty() && !q.EOF {
			q.EOF = true
		}
	}
}

func (c *Cache) markAllEOFOnceLocked() {
	if c.eof {
		return
	}
	allIgnorable := true
	for _, idx := range c.order {
		q := c.streams[idx]
		q.EOF = true
		if !q.IgnoreEOF {
			allIgnorable = false
		}
	}
	if !allIgnorable {
		c.eof = true
		c.lastEOF = true
	}
	c.cond.Broadcast()
}

// getRefreshSeekPTSLocked implements SPEC_FULL.md §4.4's getRefreshSeekPTS.
func (c *Cache) getRefreshSeekPTSLocked() (float64, bool) {
	any := false
	for _, idx := range c.order {
		if c.streams[idx].NeedRefresh {
			any = true
			break
		}
	}
	if !any {
		return 0, false
	}
	if !c.producer.Seekable() {
		for _, idx := range c.order {
			c.streams[idx].NeedRefresh = false
		}
		cacheLog.Warn("can't issue refresh seek: source is not seekable")
		return 0, false
	}

	startTS := c.refPTS
	normal := true
	possible := true
	for _, idx := range c.order {
		q := c.streams[idx]
		if !q.Selected {
			continue
		}
		if q.Kind == KindVideo || q.Kind == KindAudio {
			if q.BaseTS != NoPTS && (startTS == NoPTS || q.BaseTS < startTS) {
				startTS = q.BaseTS
			}
		}
		if !q.NeedRefresh {
			normal = false
		}
		if !(q.CorrectDTS || q.CorrectPos) {
			possible = false
		}
	}

	for _, idx := range c.order {
		c.streams[idx].NeedRefresh = false
	}

	if normal {
		return startTS, startTS != NoPTS
	}
	if possible {
		for _, idx := range c.order {
			q := c.streams[idx]
			if q.Selected && !q.empty() {
				q.Refreshing = true
			}
		}
		if startTS == NoPTS {
			return 0, false
		}
		return startTS - 1.0, true
	}
	cacheLog.Warn("can't issue refresh seek: no monotonic reference")
	return 0, false
}

// isLazyLocked reports whether stream index is lazy per SPEC_FULL.md
// §4.3's supplement: an attached-picture stream, or a subtitle stream
// interleaved with at least one non-lazy, non-EOF, selected stream.
func (c *Cache) isLazyLocked(streamIndex int) bool {
	q, ok := c.streams[streamIndex]
	if !ok {
		return false
	}
	if q.attachedPicture != nil {
		return true
	}
	if q.Kind != KindSub {
		return false
	}
	for _, idx := range c.order {
		other := c.streams[idx]
		if other == q {
			continue
		}
		if other.Kind != KindSub && other.attachedPicture == nil && other.Selected && !other.EOF {
			return true
		}
	}
	return false
}

// ReadPacketAsync polls stream index for a packet without blocking,
// marking the stream Active only when it is not lazy, per the supplement
// in SPEC_FULL.md §4.3.
func (c *Cache) ReadPacketAsync(streamIndex int) (Packet, bool) {
	c.mu.Lock()
	q, ok := c.streams[streamIndex]
	if !ok {
		c.mu.Unlock()
		return Packet{}, false
	}
	if !c.isLazyLocked(streamIndex) {
		q.Active = true
		c.cond.Broadcast()
	}
	c.mu.Unlock()

	return c.DequeuePacket(streamIndex)
}
