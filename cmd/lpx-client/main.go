// Command lpx-client connects to a streaming server, renders the
// received log-polar transform, and steers the scan center with the
// arrow keys (spec §6's client CLI surface).
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rascol/lpximage/client"
)

const (
	exitOK = iota
	exitArgError
	exitConnectError
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		server      = flag.String("server", "127.0.0.1", "server host")
		port        = flag.Uint("port", 5050, "server port")
		windowSize  = flag.String("window-size", "640x480", "window size as WxH")
		scale       = flag.Float64("scale", 1, "render scale passed to the renderer")
		stepSize    = flag.Float64("step", 4, "steering step size")
	)
	flag.Parse()

	w, h, err := parseWindowSize(*windowSize)
	if err != nil {
		slog.Error("invalid -window-size", "err", err)
		return exitArgError
	}

	addr := fmt.Sprintf("%s:%d", *server, *port)
	var win *client.Client
	win, err = client.Dial(addr, client.Options{WindowWidth: w, WindowHeight: h, Scale: *scale}, nil, nil)
	if err != nil {
		slog.Error("failed to connect", "addr", addr, "err", err)
		return exitConnectError
	}
	defer win.Close()

	rw := client.NewWindow(win, float32(*stepSize), 16*time.Millisecond)
	if err := rw.Run("lpximage client"); err != nil {
		slog.Error("window closed with error", "err", err)
	}
	return exitOK
}

func parseWindowSize(s string) (w, h int, err error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected WxH, got %q", s)
	}
	w, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	h, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("window dimensions must be positive, got %dx%d", w, h)
	}
	return w, h, nil
}
