package protocol

import (
	"io"
)

// WriteCommand writes a single command line to varnishd. The command
// text is omitted entirely when empty, but the terminating '\n' is
// always sent: a bare newline is a legal request.
func WriteCommand(w io.Writer, command string) error {
	b := make([]byte, 0, len(command)+1)
	b = append(b, command...)
	b = append(b, '\n')

	n, err := w.Write(b)
	if err != nil {
		return err
	}

	if n != len(b) {
		return io.ErrShortWrite
	}

	return nil
}
