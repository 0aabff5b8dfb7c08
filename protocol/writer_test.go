package protocol_test

import (
	"bytes"
	"io"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/neighborhoods/VarnishAdmin/protocol"
)

// shortWriter claims to have accepted fewer bytes than it was given.
type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) {
	return len(p) - 1, nil
}

var _ = Describe("Writer", func() {
	Describe("WriteCommand", func() {
		It("terminates the command with a newline", func() {
			w := bytes.NewBuffer([]byte{})

			Expect(protocol.WriteCommand(w, "status")).To(Succeed())
			Expect(w.String()).To(Equal("status\n"))
		})

		It("sends an empty command as a bare newline", func() {
			w := bytes.NewBuffer([]byte{})

			Expect(protocol.WriteCommand(w, "")).To(Succeed())
			Expect(w.String()).To(Equal("\n"))
		})

		It("fails when not all bytes were accepted", func() {
			err := protocol.WriteCommand(shortWriter{}, "status")
			Expect(err).To(MatchError(io.ErrShortWrite))
		})
	})
})
