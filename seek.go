package demuxcache

// trySeekCacheLocked implements SPEC_FULL.md §4.5's TrySeekCache: it
// attempts to satisfy pts purely from already-buffered packets, without
// involving the Producer. Caller holds c.mu.
//
// pts arrives in the external (offset-applied) timebase, matching
// seekRangeLocked's range; once validated against that range it is
// translated back to the internal timebase before being compared against
// buffered packet timestamps, which are never offset.
func (c *Cache) trySeekCacheLocked(pts float64, flags SeekFlags) bool {
	rng, ok := c.seekRangeLocked()
	if !ok || pts < rng.Start || pts > rng.End {
		return false
	}

	for _, idx := range c.order {
		c.streams[idx].clearDemuxState()
	}

	target := pts - c.tsOffset
	if flags&SeekHR == 0 {
		if vq := c.firstSelectedOfKindLocked(KindVideo); vq != nil {
			if n, found := findSeekTarget(vq, target, flags); found {
				target = n.pkt.rangeTS()
				flags &^= SeekForward
			}
		}
	}

	for _, idx := range c.order {
		q := c.streams[idx]
		if !q.Selected {
			continue
		}
		n, found := findSeekTarget(q, target, flags)
		if found {
			q.readerHead = n
			q.SkipToKeyframe = false
		} else {
			q.readerHead = nil
			q.SkipToKeyframe = true
		}
		c.recountForwardLocked(q)
	}

	c.forceCacheUpdate = true
	c.cond.Broadcast()
	return true
}

// recountForwardLocked recomputes Fw/Bw byte and packet counts after
// readerHead is repositioned directly (as opposed to via dequeue/append).
func (c *Cache) recountForwardLocked(q *StreamQueue) {
	var fwBytes, bwBytes int64
	var fwPackets int
	inFw := false
	for n := q.head; n != nil; n = n.next {
		if n == q.readerHead {
			inFw = true
		}
		size := n.pkt.TotalSize()
		if inFw {
			fwBytes += size
			fwPackets++
		} else {
			bwBytes += size
		}
	}
	q.FwBytes, q.BwBytes, q.FwPackets = fwBytes, bwBytes, fwPackets
}

func (c *Cache) firstSelectedOfKindLocked(kind StreamKind) *StreamQueue {
	for _, idx := range c.order {
		q := c.streams[idx]
		if q.Selected && q.Kind == kind {
			return q
		}
	}
	return nil
}

// findSeekTarget scans q's buffered packets for the keyframe-range entry
// closest to pts, honoring SeekForward, per SPEC_FULL.md §4.5. The
// explicit haveCandidate flag (rather than comparing against a NoPTS
// sentinel) resolves the distilled spec's Open Question about tie-breaks
// on the very first candidate considered.
func findSeekTarget(q *StreamQueue, pts float64, flags SeekFlags) (*packetNode, bool) {
	var best *packetNode
	var bestDiff float64
	haveCandidate := false

	for n := q.head; n != nil; n = n.next {
		if !n.pkt.Keyframe {
			continue
		}
		rangePTS := recomputeKeyframeTargetPTS(n)
		if rangePTS == NoPTS {
			continue
		}
		diff := rangePTS - pts

		if flags&SeekForward != 0 {
			if diff < 0 {
				continue
			}
			if !haveCandidate || diff < bestDiff {
				best, bestDiff, haveCandidate = n, diff, true
			}
			continue
		}

		if !haveCandidate {
			best, bestDiff, haveCandidate = n, diff, true
			continue
		}
		switch {
		case diff <= 0 && (bestDiff > 0 || diff > bestDiff):
			best, bestDiff = n, diff
		case diff > 0 && bestDiff > 0 && diff < bestDiff:
			best, bestDiff = n, diff
		}
	}
	return best, haveCandidate
}
