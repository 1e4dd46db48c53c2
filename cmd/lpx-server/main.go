// Command lpx-server loads scan tables and streams a log-polar
// transform of a camera or video-file source to any number of TCP
// clients (spec §6's server CLI surface).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rascol/lpximage/lpx"
	"github.com/rascol/lpximage/server"
)

const (
	exitOK = iota
	exitArgError
	exitTablesError
	exitSourceError
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		tablesPath      = flag.String("scan-tables", "", "path to a scan-tables file (required)")
		port            = flag.Uint("port", 5050, "TCP port to listen on")
		cameraID        = flag.Int("camera-id", -1, "camera device index (exclusive with -video-file)")
		videoFile       = flag.String("video-file", "", "path to a video file (exclusive with -camera-id)")
		width           = flag.Int("width", 640, "capture width")
		height          = flag.Int("height", 480, "capture height")
		fps             = flag.Float64("fps", 30, "playback rate for -video-file sources")
		loop            = flag.Bool("loop", false, "loop -video-file sources")
		minSkip         = flag.Int("min-skip", 0, "minimum adaptive frame-skip rate")
		maxSkip         = flag.Int("max-skip", 4, "maximum adaptive frame-skip rate")
		motionThreshold = flag.Float64("motion-threshold", 8, "mean-abs-diff grayscale motion threshold")
	)
	flag.Parse()

	logger := slog.Default()

	if *tablesPath == "" {
		logger.Error("missing required -scan-tables")
		return exitArgError
	}
	haveCamera := *cameraID >= 0
	haveFile := *videoFile != ""
	if haveCamera == haveFile {
		logger.Error("exactly one of -camera-id or -video-file is required")
		return exitArgError
	}

	handle, err := lpx.NewTableHandle(*tablesPath)
	if err != nil {
		logger.Error("failed to load scan tables", "err", err)
		return exitTablesError
	}

	source, err := openSource(haveCamera, *cameraID, *videoFile, *width, *height, *fps, *loop)
	if err != nil {
		logger.Error("failed to open frame source", "err", err)
		return exitSourceError
	}

	cfg := server.Config{
		Addr:            fmt.Sprintf(":%d", *port),
		MinSkipRate:     *minSkip,
		MaxSkipRate:     *maxSkip,
		MotionThreshold: *motionThreshold,
		Logger:          logger,
	}
	srv, err := server.New(handle, source, cfg)
	if err != nil {
		logger.Error("failed to construct server", "err", err)
		return exitTablesError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		logger.Error("failed to start server", "err", err)
		return exitSourceError
	}
	logger.Info("lpx-server listening", "addr", srv.Addr())

	<-ctx.Done()
	logger.Info("shutting down")
	srv.Stop()
	return exitOK
}

// openSource builds the requested FrameSource. Camera acquisition
// itself is out of scope for this repository (no decode/capture
// backend is implemented), so -camera-id always reports a source-open
// failure; -video-file would require a real video decoder, also out
// of scope, so it reports the same until one is wired in by a caller
// embedding this package directly with server.NewFileSource.
func openSource(camera bool, cameraID int, videoFile string, width, height int, fps float64, loop bool) (server.FrameSource, error) {
	if camera {
		return nil, fmt.Errorf("camera acquisition is not implemented by this binary (device %d)", cameraID)
	}
	return nil, fmt.Errorf("video file decoding is not implemented by this binary (%s)", videoFile)
}
