package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/openscreen/openscreen-go/pkg/trace"
)

// Framing constants.
const (
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4

	// DefaultMaxMessageSize is the default maximum message size (1 MiB).
	DefaultMaxMessageSize = 1 << 20
)

// Framing errors.
var (
	ErrMessageTooLarge = errors.New("message too large")
	ErrMessageEmpty    = errors.New("message is empty")
	ErrFrameTruncated  = errors.New("frame truncated")
)

// FrameWriter writes length-prefixed frames.
type FrameWriter struct {
	w              io.Writer
	maxMessageSize uint32
	mu             sync.Mutex

	logger trace.Logger
	connID string
}

// NewFrameWriter creates a frame writer with the default size limit.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return NewFrameWriterWithMaxSize(w, DefaultMaxMessageSize)
}

// NewFrameWriterWithMaxSize creates a frame writer with a custom size limit.
func NewFrameWriterWithMaxSize(w io.Writer, maxSize uint32) *FrameWriter {
	return &FrameWriter{w: w, maxMessageSize: maxSize}
}

// SetLogger traces every frame under the quic category. Pass nil to disable.
func (fw *FrameWriter) SetLogger(logger trace.Logger, connID string) {
	fw.logger = logger
	fw.connID = connID
}

// WriteFrame writes one frame. Safe for concurrent use.
func (fw *FrameWriter) WriteFrame(data []byte) error {
	if len(data) == 0 {
		return ErrMessageEmpty
	}
	if uint64(len(data)) > uint64(fw.maxMessageSize) {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), fw.maxMessageSize)
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	buf := make([]byte, LengthPrefixSize+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[LengthPrefixSize:], data)

	if _, err := fw.w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	logFrame(fw.logger, fw.connID, "WriteFrame", len(data))
	return nil
}

// FrameReader reads length-prefixed frames.
type FrameReader struct {
	r              io.Reader
	maxMessageSize uint32
	lengthBuf      [LengthPrefixSize]byte

	logger trace.Logger
	connID string
}

// NewFrameReader creates a frame reader with the default size limit.
func NewFrameReader(r io.Reader) *FrameReader {
	return NewFrameReaderWithMaxSize(r, DefaultMaxMessageSize)
}

// NewFrameReaderWithMaxSize creates a frame reader with a custom size limit.
func NewFrameReaderWithMaxSize(r io.Reader, maxSize uint32) *FrameReader {
	return &FrameReader{r: r, maxMessageSize: maxSize}
}

// SetLogger traces every frame under the quic category. Pass nil to disable.
func (fr *FrameReader) SetLogger(logger trace.Logger, connID string) {
	fr.logger = logger
	fr.connID = connID
}

// ReadFrame reads one frame and returns its payload. A clean end of stream
// before the length prefix is io.EOF.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(fr.r, fr.lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read length prefix: %w", err)
	}

	length := binary.BigEndian.Uint32(fr.lengthBuf[:])
	if length == 0 {
		return nil, ErrMessageEmpty
	}
	if length > fr.maxMessageSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, fr.maxMessageSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	logFrame(fr.logger, fr.connID, "ReadFrame", len(payload))
	return payload, nil
}

// Framer reads and writes frames on one stream.
type Framer struct {
	*FrameReader
	*FrameWriter
}

// NewFramer creates a framer with the default size limit.
func NewFramer(rw io.ReadWriter) *Framer {
	return &Framer{
		FrameReader: NewFrameReader(rw),
		FrameWriter: NewFrameWriter(rw),
	}
}

// SetLogger configures tracing for both directions.
func (f *Framer) SetLogger(logger trace.Logger, connID string) {
	f.FrameReader.SetLogger(logger, connID)
	f.FrameWriter.SetLogger(logger, connID)
}

// FrameSize returns the total frame size including the length prefix.
func FrameSize(payloadSize int) int {
	return LengthPrefixSize + payloadSize
}

func logFrame(logger trace.Logger, connID, name string, size int) {
	if logger == nil || !logger.IsEnabled(trace.CategoryQuic) {
		return
	}
	logger.Log(trace.Event{
		Name:         name,
		Category:     trace.CategoryQuic,
		Phase:        trace.PhaseFlowStep,
		Start:        time.Now(),
		ConnectionID: connID,
		Args:         map[string]string{"size": strconv.Itoa(FrameSize(size))},
	})
}
