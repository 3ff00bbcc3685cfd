package llm

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// StreamDecoder turns the payload of one server-sent event into a text
// fragment. Returning done terminates the stream cleanly (some dialects
// mark the end with a sentinel event rather than EOF). An empty text with
// done == false means the event carried no printable delta and is skipped.
type StreamDecoder func(data []byte) (text string, done bool, err error)

// TextStream is a finite, non-restartable sequence of text fragments pulled
// from a streaming transport response. Fragments are yielded in transport
// order with no buffering beyond line reads.
//
// The stream owns the underlying connection. It is released when the stream
// is fully drained, when Recv returns an error, or when the caller abandons
// consumption via Close. Close is safe to call at any point, from any
// goroutine, including concurrently with a blocked Recv.
type TextStream struct {
	provider string
	body     io.ReadCloser
	reader   *bufio.Reader
	decode   StreamDecoder

	closeOnce sync.Once
	closed    atomic.Bool
	done      bool
}

// NewTextStream wraps an SSE response body. The decoder is the only
// dialect-specific piece; everything else (line framing, data: prefix,
// cleanup) is shared across adapters.
func NewTextStream(provider string, body io.ReadCloser, decode StreamDecoder) *TextStream {
	return &TextStream{
		provider: provider,
		body:     body,
		reader:   bufio.NewReader(body),
		decode:   decode,
	}
}

// Recv returns the next text fragment. It returns io.EOF when the stream is
// exhausted and an ErrProviderRequest error on mid-stream transport
// failure; fragments already returned remain valid either way. After a
// non-nil error the underlying connection has been released.
func (s *TextStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			abandoned := s.closed.Load()
			s.finish()
			if err == io.EOF || abandoned {
				return "", io.EOF
			}
			return "", WrapProviderError(s.provider, err)
		}
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := bytes.TrimSpace([]byte(strings.TrimPrefix(line, "data:")))

		text, done, err := s.decode(data)
		if err != nil {
			s.finish()
			return "", WrapProviderError(s.provider, err)
		}
		if done {
			s.finish()
			return "", io.EOF
		}
		if text == "" {
			continue
		}
		return text, nil
	}
}

// Close releases the underlying transport connection. Calling Close after
// the stream is drained, or more than once, is a no-op.
func (s *TextStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		err = s.body.Close()
	})
	return err
}

func (s *TextStream) finish() {
	s.done = true
	s.Close()
}
