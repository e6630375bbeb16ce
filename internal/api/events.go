package api

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"sync"
)

// ErrStreamClosed is yielded when the server ends the event stream.
var ErrStreamClosed = errors.New("event stream closed by server")

// Event is one dispatched server-sent event.
type Event struct {
	Name string
	Data string
	ID   string
}

// EventStream is an open text/event-stream subscription.
type EventStream struct {
	body   io.ReadCloser
	cancel context.CancelFunc
	once   sync.Once
}

// OpenEvents subscribes to the analysis progress stream of an estimate. The
// subscription lives until Close is called or ctx is cancelled.
func (c *Client) OpenEvents(ctx context.Context, estimateID int64) (*EventStream, error) {
	ctx, cancel := context.WithCancel(ctx)
	url := fmt.Sprintf("%s/api/v1/estimates/%d/sse", c.baseURL, estimateID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create event stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		return nil, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	return &EventStream{body: resp.Body, cancel: cancel}, nil
}

// All yields events in arrival order. A transport failure or the server ending
// the stream is yielded once as an error, after which iteration stops.
// Breaking out of the loop leaves the stream open; call Close.
func (s *EventStream) All() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		scanner := bufio.NewScanner(s.body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		scanner.Split(scanLines)

		var ev Event
		var data []string
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				if len(data) == 0 {
					ev = Event{}
					continue
				}
				ev.Data = strings.Join(data, "\n")
				if ev.Name == "" {
					ev.Name = "message"
				}
				if !yield(ev, nil) {
					return
				}
				ev, data = Event{}, nil
				continue
			}
			if strings.HasPrefix(line, ":") {
				continue
			}
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				ev.Name = value
			case "data":
				data = append(data, value)
			case "id":
				ev.ID = value
			}
		}
		if err := scanner.Err(); err != nil {
			yield(Event{}, fmt.Errorf("event stream interrupted: %w", err))
			return
		}
		yield(Event{}, ErrStreamClosed)
	}
}

// scanLines splits on "\r\n", "\n" or a lone "\r".
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Close ends the subscription. It is safe to call more than once.
func (s *EventStream) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.body.Close()
	})
	return err
}
