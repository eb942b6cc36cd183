package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/openscreen/openscreen-go/pkg/ipaddr"
	"github.com/openscreen/openscreen-go/pkg/trace"
	"github.com/openscreen/openscreen-go/pkg/transport"
	"github.com/openscreen/openscreen-go/pkg/wire"
)

// Sender streams media files to receivers.
type Sender struct {
	config SenderConfig
}

// NewSender creates a sender.
func NewSender(config SenderConfig) (*Sender, error) {
	if config.ChunkSize == 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.AnswerTimeout == 0 {
		config.AnswerTimeout = DefaultAnswerTimeout
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Sender{config: config}, nil
}

// Run connects to remote, offers a session for media and streams it. With
// looping enabled it runs until ctx is done or MaxLoops is reached; a
// cancelled context then ends the session cleanly rather than failing it.
func (s *Sender) Run(ctx context.Context, remote ipaddr.Endpoint, media io.ReadSeeker, name string) (SessionStats, error) {
	stats := SessionStats{Codec: s.config.Codec, FileName: name, Remote: remote}
	start := time.Now()

	span := trace.Begin(s.config.Trace, trace.CategorySender, "Sender.Run").Arg("remote", remote.String())

	dialConfig := transport.DialConfig{
		TLSConfig: s.config.TLSConfig,
		KeepAlive: s.config.KeepAlive,
		DSCP:      s.config.DSCP,
		Logger:    s.config.Logger,
		Trace:     s.config.Trace,
	}
	conn, err := transport.DialWithRetry(ctx, remote, dialConfig, s.config.ConnectAttempts, transport.NewBackoff(0, 0))
	if err != nil {
		span.EndErr(err)
		return stats, err
	}
	defer conn.Close()
	span.Connection(conn.ID()).Endpoints(conn.LocalEndpoint(), conn.RemoteEndpoint())

	stream, err := conn.OpenStream(ctx)
	if err != nil {
		span.EndErr(err)
		return stats, err
	}

	stats.SessionID = newSessionID()
	span.Arg("session", strconv.FormatUint(uint64(stats.SessionID), 10))

	if err := s.negotiate(ctx, stream, stats.SessionID, name, span.IDs()); err != nil {
		stream.Cancel()
		span.EndErr(err)
		return stats, err
	}
	s.debugLog("offer accepted", "session", stats.SessionID, "remote", remote.String())

	if err := s.stream(ctx, stream, media, &stats); err != nil {
		stream.Cancel()
		span.EndErr(err)
		return stats, err
	}

	// A cancelled run still reports its totals, so the end marker must not
	// depend on ctx.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.AnswerTimeout)
	defer cancel()
	if err := s.finish(finishCtx, stream, &stats); err != nil {
		span.EndErr(err)
		return stats, err
	}

	stats.Duration = time.Since(start)
	span.Arg("bytes", strconv.FormatUint(stats.Bytes, 10)).End()
	return stats, nil
}

// negotiate sends the Offer and waits for an accepting Answer.
func (s *Sender) negotiate(ctx context.Context, stream *transport.Stream, sessionID uint32, name string, parent trace.IDs) error {
	ids := trace.AsyncStart(s.config.Trace, trace.CategorySender, "Negotiate", parent)

	offer := &wire.Offer{
		SessionID:      sessionID,
		Codec:          s.config.Codec,
		MaxBitrate:     s.config.MaxBitrate,
		Remoting:       s.config.Remoting,
		AndroidRTPHack: s.config.AndroidRTPHack,
		FileName:       name,
		Looping:        s.config.Looping,
	}
	if err := stream.WriteMessage(offer); err != nil {
		err = fmt.Errorf("write offer: %w", err)
		trace.AsyncEnd(s.config.Trace, trace.CategorySender, "Negotiate", ids, err)
		return err
	}

	msg, err := readWithDeadline(ctx, stream, s.config.AnswerTimeout)
	if err != nil {
		err = fmt.Errorf("read answer: %w", err)
		trace.AsyncEnd(s.config.Trace, trace.CategorySender, "Negotiate", ids, err)
		return err
	}
	answer, ok := msg.(*wire.Answer)
	if !ok {
		err = fmt.Errorf("%w: %s instead of answer", ErrUnexpected, msg.Type())
	} else if answer.SessionID != sessionID {
		err = fmt.Errorf("%w: answer for session %d", ErrUnexpected, answer.SessionID)
	} else if !answer.Accepted {
		err = fmt.Errorf("%w: %s", ErrRejected, answer.Reason)
	}
	trace.AsyncEnd(s.config.Trace, trace.CategorySender, "Negotiate", ids, err)
	return err
}

// stream sends media as chunks until the file ends (or, when looping, until
// ctx is done or MaxLoops is reached).
func (s *Sender) stream(ctx context.Context, stream *transport.Stream, media io.ReadSeeker, stats *SessionStats) error {
	buf := make([]byte, s.config.ChunkSize)
	pacer := newPacer(s.config.MaxBitrate, s.config.Pace)
	flow := trace.IDs{Current: trace.NewID()}

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := io.ReadFull(media, buf)
		if n > 0 {
			chunk := &wire.MediaChunk{
				SessionID: stats.SessionID,
				Sequence:  stats.Chunks,
				Loop:      stats.Loops,
				Data:      buf[:n],
			}
			if werr := stream.WriteMessage(chunk); werr != nil {
				return fmt.Errorf("write chunk %d: %w", stats.Chunks, werr)
			}
			stats.Chunks++
			stats.Bytes += uint64(n)
			trace.Flow(s.config.Trace, trace.CategorySender, "MediaChunk", flow, false)

			if !pacer.wait(ctx, n) {
				return nil
			}
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			if !s.config.Looping || (s.config.MaxLoops > 0 && int(stats.Loops) >= s.config.MaxLoops) {
				trace.Flow(s.config.Trace, trace.CategorySender, "MediaChunk", flow, true)
				return nil
			}
			if stats.Bytes == 0 {
				return errors.New("media file is empty")
			}
			if _, err := media.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("rewind media: %w", err)
			}
			stats.Loops++
			s.debugLog("looping media", "session", stats.SessionID, "loop", stats.Loops)
		default:
			return fmt.Errorf("read media: %w", err)
		}
	}
}

// finish sends EndOfStream and waits for the receiver's acknowledgement.
func (s *Sender) finish(ctx context.Context, stream *transport.Stream, stats *SessionStats) error {
	end := &wire.EndOfStream{SessionID: stats.SessionID, TotalBytes: stats.Bytes, Chunks: stats.Chunks}
	if err := stream.WriteMessage(end); err != nil {
		return fmt.Errorf("write end of stream: %w", err)
	}
	if err := stream.Close(); err != nil {
		return err
	}

	msg, err := readWithDeadline(ctx, stream, s.config.AnswerTimeout)
	if err != nil {
		return fmt.Errorf("read acknowledgement: %w", err)
	}
	ack, ok := msg.(*wire.EndOfStream)
	if !ok {
		return fmt.Errorf("%w: %s instead of end of stream", ErrUnexpected, msg.Type())
	}
	stats.AckedBytes = ack.TotalBytes
	if ack.TotalBytes != stats.Bytes {
		return fmt.Errorf("receiver acknowledged %d of %d bytes", ack.TotalBytes, stats.Bytes)
	}
	return nil
}

func (s *Sender) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}

// readWithDeadline reads one message, giving up after timeout or when ctx
// is done.
func readWithDeadline(ctx context.Context, stream *transport.Stream, timeout time.Duration) (wire.Message, error) {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := stream.SetDeadline(deadline); err != nil {
		return nil, err
	}
	defer stream.SetDeadline(time.Time{})

	stop := context.AfterFunc(ctx, func() { stream.SetDeadline(time.Now()) })
	defer stop()

	msg, err := stream.ReadMessage()
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(err, io.EOF) {
		return nil, ErrSessionClosed
	}
	return msg, err
}

// newSessionID returns a random nonzero id.
func newSessionID() uint32 {
	for {
		if id := uuid.New().ID(); id != 0 {
			return id
		}
	}
}

// pacer spaces writes so the average rate stays at or below bitsPerSecond.
type pacer struct {
	enabled bool
	rate    float64 // bytes per second
	start   time.Time
	sent    int
}

func newPacer(bitsPerSecond int, enabled bool) *pacer {
	return &pacer{enabled: enabled && bitsPerSecond > 0, rate: float64(bitsPerSecond) / 8, start: time.Now()}
}

// wait accounts for n bytes and sleeps until they are due. It returns false
// if ctx ended first.
func (p *pacer) wait(ctx context.Context, n int) bool {
	if !p.enabled {
		return true
	}
	p.sent += n
	due := p.start.Add(p.delay())
	d := time.Until(due)
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *pacer) delay() time.Duration {
	return time.Duration(float64(p.sent) / p.rate * float64(time.Second))
}
