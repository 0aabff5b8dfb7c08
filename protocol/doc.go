package protocol

// This package implements framing and vocabulary for the Varnish Cache
// management CLI protocol, the line-oriented text protocol varnishd
// speaks on its -T admin socket.
//
// === General syntax
//
// - requests are a single command line terminated by '\n'
// - an empty request (a bare '\n') is legal and is answered like any
//   other command; it is usable as a cheap liveness probe
// - every response starts with a status line followed by a body of a
//   declared length
//
// The status line is
//
//   ```
//   <code> <length>\n
//   ```
//
// where `<code>` is a 3-digit result code and `<length>` is the body
// size in bytes, in decimal. Exactly `<length>` bytes of body follow
// the status line. varnishd writes a blank line after the body; the
// framer treats anything between responses that is not a status line
// as noise and skips it.
//
// === Result codes
//
// - `200` - the command succeeded, the body is its output
// - `107` - authentication required. Only ever sent as the very first
//           response after connecting. The body starts with a 32-byte
//           challenge used to compute the auth digest.
// - `500` - sent in acknowledgement of `quit`, after which varnishd
//           closes the connection
// - anything else - the command failed, the body is diagnostic text
//
// === Authentication
//
// When varnishd runs with a shared secret file (-S) the banner is a
// 107 challenge instead of a 200 greeting. The client answers with
//
//   ```
//   auth <digest>\n
//   ```
//
// where `<digest>` is the lowercase hex SHA-256 of
//
//   ```
//   <challenge> '\n' <secret> <challenge> '\n'
//   ```
//
// A 200 response to `auth` completes the handshake; any other outcome
// means the secret was wrong.
//
// === Command vocabulary
//
// The vocabulary shifted between Varnish major versions: Varnish 3
// invalidates with `ban` / `ban.url`, Varnish 4 dropped `ban.url` in
// favour of an explicit `ban req.url ~` expression. Versions 4 through
// 6 share a vocabulary. `CommandSet` captures the per-version command
// names and `Commands` resolves them from a `Version`.
