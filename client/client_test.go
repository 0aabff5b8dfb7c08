package client_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/neighborhoods/VarnishAdmin/client"
	"github.com/neighborhoods/VarnishAdmin/protocol"
)

// fakeTransport scripts the server side of a session: reads come from
// a pre-filled buffer, writes are recorded for inspection.
type fakeTransport struct {
	reads      bytes.Buffer
	writes     bytes.Buffer
	connects   int
	closes     int
	connectErr error
}

func (f *fakeTransport) Connect() error {
	f.connects++
	return f.connectErr
}

func (f *fakeTransport) Read(p []byte) (int, error) {
	return f.reads.Read(p)
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	return f.writes.Write(p)
}

func (f *fakeTransport) Close() error {
	f.closes++
	return nil
}

// serves scripts a sequence of framed responses.
func serves(responses ...string) *fakeTransport {
	f := &fakeTransport{}
	for _, r := range responses {
		f.reads.WriteString(r)
	}
	return f
}

func frame(code int, body string) string {
	return fmt.Sprintf("%d %d\n%s\n", code, len(body), body)
}

func newClient(f *fakeTransport, opts client.Options) *client.Client {
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	opts.Transport = f

	c, err := client.New(opts)
	Expect(err).To(Succeed())
	return c
}

const greeting = "Varnish Cache CLI 1.0\n-----------------------------\nType 'help' for command list."

var _ = Describe("Client", func() {
	Describe("New()", func() {
		It("rejects unsupported versions, naming the supported ones", func() {
			_, err := client.New(client.Options{Version: "7"})
			Expect(errors.Is(err, protocol.ErrUnsupportedVersion)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("3, 4, 5 and 6"))

			_, err = client.New(client.Options{Version: "7.1"})
			Expect(errors.Is(err, protocol.ErrUnsupportedVersion)).To(BeTrue())
		})

		It("accepts every supported version", func() {
			for _, v := range []string{"3", "4", "4.1", "5", "6", ""} {
				_, err := client.New(client.Options{Version: v})
				Expect(err).To(Succeed())
			}
		})
	})

	Describe("Connect()", func() {
		It("returns a 200 greeting verbatim without writing anything", func() {
			f := serves(frame(200, greeting))
			c := newClient(f, client.Options{})

			banner, err := c.Connect()
			Expect(err).To(Succeed())
			Expect(banner).To(Equal(greeting))
			Expect(f.writes.Len()).To(Equal(0))
			Expect(c.Authenticated()).To(BeFalse())
		})

		It("fails on a 107 challenge when no secret is configured, writing nothing", func() {
			challenge := strings.Repeat("c", 32)
			f := serves(frame(107, challenge+"\n\nAuthentication required."))
			c := newClient(f, client.Options{})

			_, err := c.Connect()
			Expect(err).To(MatchError(client.ErrSecretRequired))
			Expect(f.writes.Len()).To(Equal(0))
		})

		It("answers a 107 challenge with the auth digest", func() {
			challenge := "abcdefghijklmnopqrstuvwxyz012345"
			secret := "s3cr3t"

			f := serves(
				frame(107, challenge+"\n\nAuthentication required."),
				frame(200, greeting),
			)
			c := newClient(f, client.Options{Secret: secret})

			banner, err := c.Connect()
			Expect(err).To(Succeed())
			Expect(banner).To(HavePrefix(challenge))
			Expect(c.Authenticated()).To(BeTrue())

			sum := sha256.Sum256([]byte(challenge + "\n" + secret + challenge + "\n"))
			digest := hex.EncodeToString(sum[:])

			Expect(f.writes.String()).To(Equal("auth " + digest + "\n"))
		})

		It("reports any failed auth exchange as authentication failed", func() {
			challenge := strings.Repeat("c", 32)
			f := serves(
				frame(107, challenge),
				frame(407, "i don't think so"),
			)
			c := newClient(f, client.Options{Secret: "wrong"})

			_, err := c.Connect()
			Expect(errors.Is(err, client.ErrAuthenticationFailed)).To(BeTrue())
		})

		It("rejects any other banner code", func() {
			f := serves(frame(503, "on fire"))
			c := newClient(f, client.Options{})

			_, err := c.Connect()
			Expect(errors.Is(err, client.ErrBadBanner)).To(BeTrue())
		})
	})

	Describe("command execution", func() {
		connect := func(f *fakeTransport, opts client.Options) *client.Client {
			c := newClient(f, opts)
			_, err := c.Connect()
			Expect(err).To(Succeed())
			f.writes.Reset()
			return c
		}

		It("sends ban for Purge", func() {
			f := serves(frame(200, greeting), frame(200, ""))
			c := connect(f, client.Options{})

			_, err := c.Purge(`obj.http.x-host ~ example.com`)
			Expect(err).To(Succeed())
			Expect(f.writes.String()).To(Equal("ban obj.http.x-host ~ example.com\n"))
		})

		It("sends ban.url for PurgeURL on Varnish 3", func() {
			f := serves(frame(200, greeting), frame(200, ""))
			c := connect(f, client.Options{Version: "3"})

			_, err := c.PurgeURL("http://x")
			Expect(err).To(Succeed())
			Expect(f.writes.String()).To(Equal("ban.url http://x\n"))
		})

		It("sends a ban expression for PurgeURL on Varnish 4 and later", func() {
			f := serves(frame(200, greeting), frame(200, ""))
			c := connect(f, client.Options{Version: "4.1"})

			_, err := c.PurgeURL("http://x")
			Expect(err).To(Succeed())
			Expect(f.writes.String()).To(Equal("ban req.url ~ http://x\n"))
		})

		It("raises a CommandError carrying command, code and quoted body", func() {
			f := serves(frame(200, greeting), frame(104, "no\nluck"))
			c := connect(f, client.Options{})

			_, err := c.Purge("obj.status == 404")

			cmdErr := &client.CommandError{}
			Expect(errors.As(err, &cmdErr)).To(BeTrue())
			Expect(cmdErr.Code).To(Equal(104))
			Expect(err.Error()).To(ContainSubstring("ban obj.status == 404"))
			Expect(err.Error()).To(ContainSubstring("104"))
			Expect(err.Error()).To(ContainSubstring("> no\n> luck"))
		})

		It("does nothing at all when no host is configured", func() {
			f := serves()
			opts := client.Options{Transport: f}

			c, err := client.New(opts)
			Expect(err).To(Succeed())

			body, err := c.Purge("whatever")
			Expect(err).To(Succeed())
			Expect(body).To(BeNil())
			Expect(f.writes.Len()).To(Equal(0))
		})

		Describe("ChildState() / Status()", func() {
			It("reports a running child", func() {
				f := serves(frame(200, greeting), frame(200, "Child in state running"))
				c := connect(f, client.Options{})

				Expect(c.ChildState()).To(Equal(client.StateRunning))
			})

			It("reports a stopped child", func() {
				f := serves(frame(200, greeting), frame(200, "Child in state stopped"))
				c := connect(f, client.Options{})

				Expect(c.ChildState()).To(Equal(client.StateStopped))
				Expect(c.Status()).To(BeFalse())
			})

			It("folds command failures into unreachable, not an error", func() {
				// Nothing scripted beyond the banner: the status command hits
				// end of stream.
				f := serves(frame(200, greeting))
				c := connect(f, client.Options{})

				Expect(c.ChildState()).To(Equal(client.StateUnreachable))
				Expect(c.Status()).To(BeFalse())
			})
		})

		Describe("Start()", func() {
			It("is a no-op when the child already runs", func() {
				f := serves(frame(200, greeting), frame(200, "Child in state running"))
				c := connect(f, client.Options{})

				Expect(c.Start()).To(Succeed())
				Expect(f.writes.String()).To(Equal("status\n"))
			})

			It("sends start when the child is stopped", func() {
				f := serves(
					frame(200, greeting),
					frame(200, "Child in state stopped"),
					frame(200, ""),
				)
				c := connect(f, client.Options{})

				Expect(c.Start()).To(Succeed())
				Expect(f.writes.String()).To(Equal("status\nstart\n"))
			})
		})

		Describe("Stop()", func() {
			It("is a no-op when the child is already stopped", func() {
				f := serves(frame(200, greeting), frame(200, "Child in state stopped"))
				c := connect(f, client.Options{})

				Expect(c.Stop()).To(Succeed())
				Expect(f.writes.String()).To(Equal("status\n"))
			})

			It("sends stop when the child runs", func() {
				f := serves(
					frame(200, greeting),
					frame(200, "Child in state running"),
					frame(200, ""),
				)
				c := connect(f, client.Options{})

				Expect(c.Stop()).To(Succeed())
				Expect(f.writes.String()).To(Equal("status\nstop\n"))
			})
		})

		Describe("Quit()", func() {
			It("closes the transport exactly once when varnishd acknowledges", func() {
				f := serves(frame(200, greeting), frame(500, "Closing CLI connection"))
				c := connect(f, client.Options{})

				Expect(c.Quit()).To(Succeed())
				Expect(f.writes.String()).To(Equal("quit\n"))
				Expect(f.closes).To(Equal(1))
			})

			It("closes the transport exactly once when the quit command fails", func() {
				f := serves(frame(200, greeting))
				c := connect(f, client.Options{})

				Expect(c.Quit()).To(Succeed())
				Expect(f.closes).To(Equal(1))

				Expect(c.Close()).To(Succeed())
				Expect(f.closes).To(Equal(1))
			})
		})

		It("refuses commands once closed", func() {
			f := serves(frame(200, greeting))
			c := connect(f, client.Options{})

			Expect(c.Close()).To(Succeed())

			_, err := c.Purge("whatever")
			Expect(err).To(MatchError(client.ErrClosed))

			_, err = c.Connect()
			Expect(err).To(MatchError(client.ErrClosed))
		})
	})
})
