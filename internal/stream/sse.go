package stream

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Event is one dispatched server-sent event.
type Event struct {
	ID    string
	Type  string // "message" when the frame had no event field
	Data  string
	Retry int // milliseconds, 0 when absent
}

// Decoder reads server-sent events from a text/event-stream body.
type Decoder struct {
	scanner *bufio.Scanner
}

// maxLineSize caps a single SSE line; batched power outputs for 50 turbines
// stay far below it.
const maxLineSize = 1 << 20

// NewDecoder wraps r.
func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Decoder{scanner: s}
}

// Next returns the next event with a non-empty data buffer. It returns
// io.EOF when the stream ends cleanly.
func (d *Decoder) Next() (Event, error) {
	var (
		ev      Event
		data    strings.Builder
		hasData bool
	)
	for d.scanner.Scan() {
		line := strings.TrimSuffix(d.scanner.Text(), "\r")

		if line == "" {
			if !hasData {
				ev = Event{}
				continue
			}
			ev.Data = strings.TrimSuffix(data.String(), "\n")
			if ev.Type == "" {
				ev.Type = "message"
			}
			return ev, nil
		}
		if strings.HasPrefix(line, ":") {
			continue // comment / keepalive
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.Type = value
		case "data":
			data.WriteString(value)
			data.WriteByte('\n')
			hasData = true
		case "id":
			ev.ID = value
		case "retry":
			if n, err := strconv.Atoi(value); err == nil {
				ev.Retry = n
			}
		}
	}
	if err := d.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}
