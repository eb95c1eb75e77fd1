package bridge

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

type jsonlReader struct {
	reader *bufio.Reader
}

type decodeError struct {
	line []byte
	err  error
}

func (e *decodeError) Error() string {
	if e == nil || e.err == nil {
		return "bridge decode error"
	}
	return e.err.Error()
}

func (e *decodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

func (e *decodeError) Line() []byte {
	if e == nil {
		return nil
	}
	return e.line
}

func newJSONLReader(r io.Reader) *jsonlReader {
	return &jsonlReader{reader: bufio.NewReader(r)}
}

// Next returns the next envelope, skipping blank lines. Malformed lines are
// reported as *decodeError and the stream stays usable.
func (s *jsonlReader) Next() (Message, error) {
	for {
		line, err := s.reader.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			return Message{}, err
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if err != nil {
				return Message{}, err
			}
			continue
		}
		msg, decodeErr := decodeMessage(line)
		if decodeErr != nil {
			return Message{}, &decodeError{line: append([]byte(nil), line...), err: decodeErr}
		}
		return msg, nil
	}
}

func decodeMessage(line []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return Message{}, err
	}
	if err := msg.validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

func encodeMessage(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
