package demuxcache

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lanikai/demuxcache/internal/logging"
)

var introspectLog = logging.DefaultLogger.WithTag("introspect")

// Introspector serves reader-state snapshots over a websocket, for
// interactive debugging of a running Cache (SPEC_FULL.md §4.9). It has no
// write path back into the Cache; it only ever calls ReaderState and
// BufferBytes.
type Introspector struct {
	cache    *Cache
	upgrader websocket.Upgrader
	interval time.Duration
}

// NewIntrospector builds an Introspector that polls cache every interval.
func NewIntrospector(cache *Cache, interval time.Duration) *Introspector {
	return &Introspector{
		cache:    cache,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Debug endpoint only; every origin is accepted, and the
			// listen address is whatever the caller passes.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// tsOrNull converts the NoPTS sentinel (-Inf) to nil so it marshals as
// JSON null instead of tripping json.Marshal's "unsupported value" error
// on non-finite floats.
func tsOrNull(ts float64) *float64 {
	if ts == NoPTS {
		return nil
	}
	return &ts
}

// snapshot is the wire representation of a ReaderState plus buffer
// byte totals, with timestamp fields nullable so an absent NoPTS value
// never reaches json.Marshal as a non-finite float.
type snapshot struct {
	EOF        bool        `json:"eof"`
	Idle       bool        `json:"idle"`
	Underrun   bool        `json:"underrun"`
	TSReader   *float64    `json:"tsReader"`
	TSMax      *float64    `json:"tsMax"`
	TSMin      *float64    `json:"tsMin"`
	TSDuration float64     `json:"tsDuration"`
	SeekRanges []SeekRange `json:"seekRanges"`
	FwBytes    int64       `json:"fwBytes"`
	BwBytes    int64       `json:"bwBytes"`
}

// Handler returns the http.HandlerFunc for the /ws route.
func (in *Introspector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := in.upgrader.Upgrade(w, r, nil)
		if err != nil {
			introspectLog.Warn("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		ticker := time.NewTicker(in.interval)
		defer ticker.Stop()

		for range ticker.C {
			st := in.cache.ReaderState()
			fw, bw := in.cache.BufferBytes()

			payload := snapshot{
				EOF:        st.EOF,
				Idle:       st.Idle,
				Underrun:   st.Underrun,
				TSReader:   tsOrNull(st.TSReader),
				TSMax:      tsOrNull(st.TSMax),
				TSMin:      tsOrNull(st.TSMin),
				TSDuration: st.TSDuration,
				SeekRanges: st.SeekRanges,
				FwBytes:    fw,
				BwBytes:    bw,
			}

			data, err := json.Marshal(payload)
			if err != nil {
				introspectLog.Warn("marshal snapshot: %v", err)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// ListenAndServe runs a minimal HTTP server exposing the /ws route on
// addr, blocking until it errors out.
func (in *Introspector) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", in.Handler())
	introspectLog.Info("introspection server listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
