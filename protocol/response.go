package protocol

// Result codes varnishd is known to send.
const (
	// CodeOK means the command succeeded.
	CodeOK = 200

	// CodeAuthRequired is only valid as the very first response after
	// connecting: the banner is an authentication challenge.
	CodeAuthRequired = 107

	// CodeClose acknowledges a quit, varnishd closes the connection after
	// sending it.
	CodeClose = 500
)

// Response is one framed response from varnishd: the 3-digit result
// code from the status line and the body of the declared length.
type Response struct {
	Code int
	Body []byte
}

// IsOK returns true if the response indicates success.
func (r *Response) IsOK() bool {
	return r.Code == CodeOK
}

// NeedsAuth returns true if the response is an authentication challenge.
func (r *Response) NeedsAuth() bool {
	return r.Code == CodeAuthRequired
}
