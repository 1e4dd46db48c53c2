// Package proto implements the length-prefixed wire protocol shared by
// the streaming server and debug client (spec §4.G): a frame message
// server-to-client and a steering command message client-to-server,
// disambiguated by a leading cmdType word.
package proto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/rascol/lpximage/lpx"
)

// Sentinel errors for this layer, checked with errors.Is.
var (
	ErrNetworkFailure = errors.New("proto: network failure")
	ErrProtocolError  = errors.New("proto: protocol error")
)

// cmdType values identify the message that follows. There is no
// resync token in this protocol: an unknown cmdType is unrecoverable
// and callers must close the connection (spec §4.G, §9).
const (
	cmdTypeFrame   uint32 = 0x01
	cmdTypeCommand uint32 = 0x02
)

// Frame is the wire/in-memory shape of one streamed transform result.
// It carries exactly the fields in an LPXImage header plus its cell
// array; lpx.LPXImage is not reused directly here so this package has
// no compile-time dependency on LPXImage's transient scan state.
type Frame struct {
	SpiralPer float32
	Width     int32
	Height    int32
	XOfs      float32
	YOfs      float32
	Cells     []uint32
}

// FrameFromImage copies img's header and cell array into a Frame ready
// for WriteFrame.
func FrameFromImage(img *lpx.LPXImage) Frame {
	cells := make([]uint32, len(img.CellArray()))
	copy(cells, img.CellArray())
	return Frame{
		SpiralPer: img.SpiralPer(),
		Width:     int32(img.Width()),
		Height:    int32(img.Height()),
		XOfs:      img.XOfs(),
		YOfs:      img.YOfs(),
		Cells:     cells,
	}
}

// ToImage decodes f into an lpx.LPXImage, the shape the renderer and
// file format expect.
func (f Frame) ToImage() (*lpx.LPXImage, error) {
	return lpx.NewDecodedLPXImage(len(f.Cells), f.SpiralPer, int(f.Width), int(f.Height), f.XOfs, f.YOfs, f.Cells)
}

// Command is one steering delta, client to server.
type Command struct {
	DeltaX   float32
	DeltaY   float32
	StepSize float32
}

// WriteFrame encodes and writes f as cmdType 0x01.
func WriteFrame(w io.Writer, f Frame) error {
	fields := []any{
		cmdTypeFrame,
		uint32(len(f.Cells)),
		f.SpiralPer,
		f.Width, f.Height,
		f.XOfs, f.YOfs,
	}
	for _, v := range fields {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("%w: %v", ErrNetworkFailure, err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, f.Cells); err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	return nil
}

// WriteCommand encodes and writes c as cmdType 0x02.
func WriteCommand(w io.Writer, c Command) error {
	fields := []any{cmdTypeCommand, c.DeltaX, c.DeltaY, c.StepSize}
	for _, v := range fields {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("%w: %v", ErrNetworkFailure, err)
		}
	}
	return nil
}

// maxCells bounds the cellArray allocation a peer can trigger,
// mirroring lpx.NMaxCells so a corrupt length_cells can't exhaust
// memory before validation runs.
const maxCells = lpx.NMaxCells

// ReadFrame reads one frame message, having already consumed its
// cmdType (0x01) from r.
func ReadFrame(r io.Reader) (Frame, error) {
	var f Frame
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return f, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	if length > maxCells {
		return f, fmt.Errorf("%w: length_cells %d exceeds limit", ErrProtocolError, length)
	}
	if err := binary.Read(r, binary.LittleEndian, &f.SpiralPer); err != nil {
		return f, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &f.Width); err != nil {
		return f, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &f.Height); err != nil {
		return f, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &f.XOfs); err != nil {
		return f, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &f.YOfs); err != nil {
		return f, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	f.Cells = make([]uint32, length)
	if err := binary.Read(r, binary.LittleEndian, &f.Cells); err != nil {
		return f, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	return f, nil
}

// ReadCommand reads one command message, having already consumed its
// cmdType (0x02) from r.
func ReadCommand(r io.Reader) (Command, error) {
	var c Command
	fields := []any{&c.DeltaX, &c.DeltaY, &c.StepSize}
	for _, v := range fields {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return c, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
		}
	}
	return c, nil
}

// ReadCmdType reads the 4-byte type prefix common to both message
// shapes.
func ReadCmdType(r io.Reader) (uint32, error) {
	var t uint32
	if err := binary.Read(r, binary.LittleEndian, &t); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	return t, nil
}

// IsFrameType reports whether t is the frame message type.
func IsFrameType(t uint32) bool { return t == cmdTypeFrame }

// IsCommandType reports whether t is the command message type.
func IsCommandType(t uint32) bool { return t == cmdTypeCommand }
