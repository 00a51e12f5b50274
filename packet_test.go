package demuxcache

import "testing"

func TestPacketTotalSize(t *testing.T) {
	p := Packet{Data: make([]byte, 100)}
	if got, want := p.TotalSize(), int64(100+packetOverhead); got != want {
		t.Fatalf("TotalSize() = %d, want %d", got, want)
	}
}

func TestPacketClampTS(t *testing.T) {
	p := Packet{Segmented: true, Start: 1, End: 2}

	if got := p.clampTS(1.5); got != 1.5 {
		t.Fatalf("clampTS(1.5) = %v, want 1.5", got)
	}
	if got := p.clampTS(5); got != NoPTS {
		t.Fatalf("clampTS(5) = %v, want NoPTS", got)
	}
	if got := p.clampTS(NoPTS); got != NoPTS {
		t.Fatalf("clampTS(NoPTS) = %v, want NoPTS", got)
	}
}

func TestPacketRangeTSPrefersPTS(t *testing.T) {
	p := Packet{PTS: 2, DTS: 1}
	if got := p.rangeTS(); got != 2 {
		t.Fatalf("rangeTS() = %v, want 2 (PTS)", got)
	}

	p2 := Packet{PTS: NoPTS, DTS: 3}
	if got := p2.rangeTS(); got != 3 {
		t.Fatalf("rangeTS() = %v, want 3 (DTS fallback)", got)
	}
}
