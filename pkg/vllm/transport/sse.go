package transport

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
)

// doneSentinel terminates a well-formed event stream after the terminal
// complete frame.
const doneSentinel = "[DONE]"

// sseStream reads GenerateResponse frames off a text/event-stream body.
type sseStream struct {
	body   io.ReadCloser
	r      *bufio.Reader
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

func newSSEStream(body io.ReadCloser, cancel context.CancelFunc) *sseStream {
	return &sseStream{
		body:   body,
		r:      bufio.NewReader(body),
		cancel: cancel,
	}
}

func (s *sseStream) Recv() (*GenerateResponse, error) {
	data, err := s.nextData()
	if err != nil {
		return nil, err
	}
	if data == doneSentinel {
		return nil, io.EOF
	}
	var resp GenerateResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *sseStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	return s.body.Close()
}

// nextData returns the payload of the next data: event, joining multi-line
// payloads with newlines. Returns io.EOF when the body ends.
func (s *sseStream) nextData() (string, error) {
	var buf []string
	for {
		line, err := s.r.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if len(buf) > 0 {
				return strings.Join(buf, "\n"), nil
			}
			if err == io.EOF {
				return "", io.EOF
			}
			continue
		}
		if strings.HasPrefix(line, "data:") {
			buf = append(buf, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
		if err == io.EOF {
			if len(buf) > 0 {
				return strings.Join(buf, "\n"), nil
			}
			return "", io.EOF
		}
	}
}
