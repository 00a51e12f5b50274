package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	demuxcache "github.com/lanikai/demuxcache"
)

const version = "0.1.0"

func main() {
	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}

	if flagVersion {
		fmt.Println("demuxcached", version)
		os.Exit(0)
	}

	if flagInput == "" {
		fmt.Fprintln(os.Stderr, "missing required flag: --input")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	producer := demuxcache.NewFileProducer(flagInput)

	cache, err := demuxcache.NewCache(ctx, producer,
		demuxcache.WithReadaheadSecs(flagReadaheadSecs),
		demuxcache.WithMaxBytes(flagMaxBytes),
		demuxcache.WithMaxBytesBack(flagMaxBackBytes),
		demuxcache.WithForceSeekable(flagForceSeekable),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	defer cache.Close()

	if flagMetricsAddr != "" {
		reg := prometheus.NewRegistry()
		facade := demuxcache.NewMetricsFacade(cache, reg)
		facade.Start(time.Second)
		defer facade.Stop()

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go http.ListenAndServe(flagMetricsAddr, mux)
	}

	if flagDebugAddr != "" {
		in := demuxcache.NewIntrospector(cache, 500*time.Millisecond)
		go in.ListenAndServe(flagDebugAddr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			return
		case <-ticker.C:
			st := cache.ReaderState()
			fw, bw := cache.BufferBytes()
			fmt.Printf("eof=%v idle=%v underrun=%v ts_duration=%.2fs fw_bytes=%d bw_bytes=%d\n",
				st.EOF, st.Idle, st.Underrun, st.TSDuration, fw, bw)
			if st.EOF {
				return
			}
		}
	}
}
