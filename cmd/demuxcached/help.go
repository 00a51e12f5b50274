package main

import (
	"fmt"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

var (
	flagInput         string
	flagReadaheadSecs float64
	flagMaxBytes      int64
	flagMaxBackBytes  int64
	flagForceSeekable bool
	flagMetricsAddr   string
	flagDebugAddr     string
	flagHelp          bool
	flagVersion       bool
)

func init() {
	flag.StringVarP(&flagInput, "input", "i", "", "Media file to demux")
	flag.Float64VarP(&flagReadaheadSecs, "readahead-secs", "r", 1.0, "Target forward read-ahead, in seconds")
	flag.Int64VarP(&flagMaxBytes, "max-bytes", "b", 400<<20, "Forward read-ahead cap, in bytes")
	flag.Int64VarP(&flagMaxBackBytes, "max-back-bytes", "k", 0, "Back-buffer cap, in bytes (0 keeps no back-buffer)")
	flag.BoolVarP(&flagForceSeekable, "force-seekable", "", false, "Treat non-seekable input as partially seekable")
	flag.StringVarP(&flagMetricsAddr, "metrics-addr", "m", "", "Serve Prometheus metrics on this address (disabled if empty)")
	flag.StringVarP(&flagDebugAddr, "debug-addr", "d", "", "Serve a reader-state websocket on this address (disabled if empty)")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")
}

const helpString = `Demux a media file into the packet cache and report read-ahead state

Usage: demuxcached [OPTION]...

Source:
  -i, --input=FILE           Media file to demux (required)

Cache:
  -r, --readahead-secs=NUM   Target forward read-ahead, in seconds (default: 1.0)
  -b, --max-bytes=NUM        Forward read-ahead cap, in bytes (default: 400 MiB)
  -k, --max-back-bytes=NUM   Back-buffer cap, in bytes (default: 0, keeps no back-buffer)
      --force-seekable       Treat non-seekable input as partially seekable

Introspection:
  -m, --metrics-addr=ADDR    Serve Prometheus metrics on ADDR
  -d, --debug-addr=ADDR      Serve a reader-state websocket on ADDR

Miscellaneous:
  -h, --help                 Prints this help message and exits
  -v, --version              Prints version information and exits`

// help prints usage information and exits.
func help() {
	r := color.New(color.FgRed)
	y := color.New(color.FgYellow)
	b := color.New(color.FgCyan)

	//      _                                      _
	//   __| |  ___  _ __ ___   _   _ __  __  ___ | |__   ___
	//  / _` | / _ \| '_ ` _ \ | | | |\ \/ / / __|| '_ \ / _ \
	// | (_| ||  __/| | | | | || |_| | >  < | (__ | | | |  __/
	//  \__,_| \___||_| |_| |_| \__,_|/_/\_\ \___||_| |_|\___|

	r.Printf("  __| | ")
	y.Printf("___  ")
	b.Println("_ __ ___   _   _ __  __  ___  ___ | |__   ___")

	r.Printf(" / _` | ")
	y.Printf("/ _ \\ ")
	b.Println("'_ ` _ \\ | | | |\\ \\/ / / __|| '_ \\ / _ \\")

	r.Printf("| (_| | ")
	y.Printf(" __/ ")
	b.Println("| | | | || |_| | >  <  | (__ | | | |  __/")

	r.Printf(" \\__,_| ")
	y.Printf("\\___|")
	b.Println("|_| |_| |_| \\__,_|/_/\\_\\  \\___||_| |_|\\___|")

	fmt.Println(helpString)
}
