package session

import (
	"bufio"
	"context"
	"io"
)

// LineReader turns a blocking input stream into context-aware line reads so
// an interrupt during a prompt cancels cleanly instead of hanging on stdin.
type LineReader struct {
	lines chan string
	errs  chan error
	err   error
}

// NewLineReader starts reading lines from r in the background
func NewLineReader(r io.Reader) *LineReader {
	lr := &LineReader{
		lines: make(chan string),
		errs:  make(chan error, 1),
	}
	go lr.pump(r)
	return lr
}

func (lr *LineReader) pump(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lr.lines <- scanner.Text()
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	lr.errs <- err
}

// ReadLine returns the next input line. It returns io.EOF when the stream
// ends and ctx.Err() when the context is canceled mid-read.
func (lr *LineReader) ReadLine(ctx context.Context) (string, error) {
	if lr.err != nil {
		return "", lr.err
	}

	select {
	case line := <-lr.lines:
		return line, nil
	case err := <-lr.errs:
		lr.err = err
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
