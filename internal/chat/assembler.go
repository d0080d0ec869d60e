package chat

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"
)

// FallbackMessage is shown when a turn produced no assistant content
const FallbackMessage = "Sorry, I'm having trouble connecting. Please try again!"

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

// ErrNoContent is reported when the stream ended without any delta
var ErrNoContent = errors.New("stream ended without content")

type EventKind int

const (
	// EventDelta carries the next fragment of assistant text
	EventDelta EventKind = iota + 1
	// EventDone is emitted for the [DONE] sentinel
	EventDone
	// EventError means the turn failed before producing any text; Text holds FallbackMessage
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventDelta:
		return "delta"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	}
	return "unknown"
}

type Event struct {
	Kind EventKind
	Text string
	Err  error
}

type deltaFrame struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (f *deltaFrame) content() string {
	if len(f.Choices) == 0 || f.Choices[0].Delta.Content == nil {
		return ""
	}
	return *f.Choices[0].Delta.Content
}

// Assembler turns SSE chunks of a chat completion stream into events.
// It is not safe for concurrent use and serves exactly one turn.
type Assembler struct {
	pending   []byte
	buf       string
	content   strings.Builder
	done      bool
	truncated bool
	finished  bool
}

func NewAssembler() *Assembler {
	return &Assembler{}
}

// Consume feeds the next chunk of the response body. Chunks may split UTF-8
// sequences, lines or JSON objects at any byte.
func (a *Assembler) Consume(chunk []byte) []Event {
	if a.finished {
		return nil
	}

	data := make([]byte, 0, len(a.pending)+len(chunk))
	data = append(data, a.pending...)
	data = append(data, chunk...)

	complete, rest := splitIncompleteRune(data)
	a.pending = rest
	a.buf += strings.ToValidUTF8(string(complete), string(utf8.RuneError))

	return a.drain()
}

// Finish marks the end of the stream. cause is the transport or status error
// that ended it, or nil for a clean end. When no content was produced an
// EventError carrying FallbackMessage is returned.
func (a *Assembler) Finish(cause error) []Event {
	if a.finished {
		return nil
	}
	a.finished = true

	if len(a.pending) > 0 {
		a.buf += strings.ToValidUTF8(string(a.pending), string(utf8.RuneError))
		a.pending = nil
	}
	// An unterminated trailing frame is dropped; remember that it happened.
	a.truncated = hasDataLine(a.buf)
	a.buf = ""

	if a.content.Len() > 0 {
		return nil
	}

	if cause == nil {
		cause = ErrNoContent
	}
	return []Event{{Kind: EventError, Text: FallbackMessage, Err: cause}}
}

// Content is the assistant text assembled so far
func (a *Assembler) Content() string {
	return a.content.String()
}

// Done reports whether the [DONE] sentinel was seen
func (a *Assembler) Done() bool {
	return a.done
}

// Truncated reports whether Finish discarded an incomplete data frame
func (a *Assembler) Truncated() bool {
	return a.truncated
}

func (a *Assembler) drain() []Event {
	var events []Event

	for {
		idx := strings.IndexByte(a.buf, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimSuffix(a.buf[:idx], "\r")
		a.buf = a.buf[idx+1:]

		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		payload := strings.TrimSpace(line[len(dataPrefix):])
		if payload == doneSentinel {
			a.done = true
			events = append(events, Event{Kind: EventDone})
			break
		}

		if !json.Valid([]byte(payload)) {
			// Partial object: put the line back and wait for more bytes.
			a.buf = line + "\n" + a.buf
			break
		}

		var frame deltaFrame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			continue
		}
		if text := frame.content(); text != "" {
			a.content.WriteString(text)
			events = append(events, Event{Kind: EventDelta, Text: text})
		}
	}

	return events
}

// splitIncompleteRune separates a trailing partial UTF-8 sequence from b
func splitIncompleteRune(b []byte) (complete, rest []byte) {
	n := len(b)
	for i := n - 1; i >= 0 && n-i < utf8.UTFMax; i-- {
		c := b[i]
		if c < utf8.RuneSelf {
			break
		}
		if utf8.RuneStart(c) {
			if !utf8.FullRune(b[i:]) {
				return b[:i], append([]byte(nil), b[i:]...)
			}
			break
		}
	}
	return b, nil
}

func hasDataLine(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, dataPrefix) && strings.TrimSpace(line[len(dataPrefix):]) != doneSentinel {
			return true
		}
	}
	return false
}
