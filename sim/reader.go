package sim

import (
	"bufio"
	"errors"
	"io"
)

// ErrNoData is returned by ByteReader.ReadByte when no input is buffered yet
var ErrNoData = errors.New("no data available")

// ByteReader turns a blocking reader, like stdin, into the polled byte source that
// commands.Session.Run expects
type ByteReader struct {
	ch  chan byte
	err error
}

// NewByteReader starts reading r in the background
func NewByteReader(r io.Reader) *ByteReader {
	br := &ByteReader{ch: make(chan byte, 4096)}
	go br.fill(bufio.NewReader(r))
	return br
}

func (br *ByteReader) fill(r *bufio.Reader) {
	defer close(br.ch)
	for {
		b, err := r.ReadByte()
		if err != nil {
			br.err = err
			return
		}
		br.ch <- b
	}
}

// ReadByte never blocks. It returns ErrNoData when nothing is buffered and the
// underlying reader's error, usually io.EOF, once it is exhausted
func (br *ByteReader) ReadByte() (byte, error) {
	select {
	case b, ok := <-br.ch:
		if !ok {
			return 0, br.err
		}
		return b, nil
	default:
		return 0, ErrNoData
	}
}
