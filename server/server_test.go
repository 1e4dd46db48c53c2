package server

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rascol/lpximage/lpx"
	"github.com/rascol/lpximage/proto"
)

// fixtureTables writes a minimal but valid scan-tables file: a single
// fovea cell at (0,0) plus a single outer run covering the whole
// mapWidth x mapWidth grid (center offset included) as cell 1. It exists purely to give the
// pipeline a working table without depending on the lpx package's
// internal test helpers, which this package can't see.
func fixtureTables(t *testing.T, mapWidth int) *lpx.TableHandle {
	t.Helper()
	yamlDoc := fmt.Sprintf(`mapWidth: %d
spiralPer: 63
length: 1
innerLength: 1
lastFoveaIndex: 0
lastCellIndex: 1
outerPixelIndex: [0]
outerPixelCellIdx: [1]
innerCells:
  - x: 0
    y: 0
`, mapWidth)
	path := filepath.Join(t.TempDir(), "tables.yaml")
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	handle, err := lpx.NewTableHandle(path)
	if err != nil {
		t.Fatalf("NewTableHandle: %v", err)
	}
	return handle
}

func solidFrame(w, h int, r, g, b uint8) *lpx.Raster {
	ras := &lpx.Raster{Width: w, Height: h, Stride: w * 4, Pix: make([]byte, w*h*4)}
	for i := 0; i < w*h; i++ {
		ras.Pix[i*4], ras.Pix[i*4+1], ras.Pix[i*4+2], ras.Pix[i*4+3] = r, g, b, 255
	}
	return ras
}

func newTestServer(t *testing.T, frames int) *Server {
	t.Helper()
	handle := fixtureTables(t, 65)
	var src []Frame
	for i := 0; i < frames; i++ {
		src = append(src, solidFrame(16, 16, 10, 20, 30))
	}
	source := NewFileSource(src, 30, true)
	srv, err := New(handle, source, Config{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

// TestServerStreamsFramesToClient is scenario S3: connecting one
// client to a looped file source delivers a steady stream of frames
// and ClientCount reports 1.
func TestServerStreamsFramesToClient(t *testing.T) {
	srv := newTestServer(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	conn.SetReadDeadline(deadline)

	received := 0
	for time.Now().Before(deadline) && received < 5 {
		cmdType, err := proto.ReadCmdType(conn)
		if err != nil {
			t.Fatalf("ReadCmdType: %v", err)
		}
		if !proto.IsFrameType(cmdType) {
			t.Fatalf("unexpected cmdType %#x", cmdType)
		}
		if _, err := proto.ReadFrame(conn); err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		received++
	}
	if received < 5 {
		t.Fatalf("received only %d frames", received)
	}
	if got := srv.ClientCount(); got != 1 {
		t.Fatalf("ClientCount() = %d, want 1", got)
	}
}

// TestServerEvictsUnknownCommandType is scenario S5: a command with an
// unrecognized cmdType gets that client's socket closed within 100ms,
// decrementing ClientCount, without affecting other clients.
func TestServerEvictsUnknownCommandType(t *testing.T) {
	srv := newTestServer(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	good, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial (good): %v", err)
	}
	defer good.Close()

	bad, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial (bad): %v", err)
	}

	waitForClientCount(t, srv, 2)

	if err := binary.Write(bad, binary.LittleEndian, uint32(0xFF)); err != nil {
		t.Fatalf("write bad cmdType: %v", err)
	}

	waitForClientCount(t, srv, 1)

	// The surviving client must still be able to read frames.
	cmdType, err := proto.ReadCmdType(good)
	if err != nil {
		t.Fatalf("good client ReadCmdType after eviction: %v", err)
	}
	if !proto.IsFrameType(cmdType) {
		t.Fatalf("unexpected cmdType %#x on surviving client", cmdType)
	}
}

func waitForClientCount(t *testing.T, srv *Server, want int) {
	t.Helper()
	deadline := time.Now().Add(1 * time.Second)
	for time.Now().Before(deadline) {
		if srv.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("ClientCount never reached %d, stuck at %d", want, srv.ClientCount())
}

func TestNewRejectsUninitializedTables(t *testing.T) {
	handle := &lpx.TableHandle{}
	if _, err := New(handle, NewFileSource(nil, 30, false), Config{}); err != lpx.ErrInvalidTables {
		t.Fatalf("expected ErrInvalidTables, got %v", err)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	srv := newTestServer(t, 3)
	ctx := context.Background()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := srv.Stop(); err != nil {
		t.Fatalf("second Stop should be a no-op, got %v", err)
	}
}

func TestStartAfterStopReturnsErrShuttingDown(t *testing.T) {
	srv := newTestServer(t, 3)
	ctx := context.Background()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := srv.Start(ctx); err != ErrShuttingDown {
		t.Fatalf("Start after Stop: got %v, want ErrShuttingDown", err)
	}
}
