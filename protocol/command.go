package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnsupportedVersion = errors.New("unsupported Varnish version")

// Version is a supported major version of the Varnish management CLI.
type Version int

const (
	V3 Version = 3
	V4 Version = 4
	V5 Version = 5
	V6 Version = 6
)

// DefaultVersion is assumed when no version is configured.
const DefaultVersion = V3

var supportedVersions = []Version{V3, V4, V5, V6}

// CommandSet is the command vocabulary of one protocol version. It is
// resolved once, at client construction, and never changes afterwards.
type CommandSet struct {
	Auth     string
	Quit     string
	Start    string
	Stop     string
	Status   string
	Ping     string
	Purge    string
	PurgeURL string
}

// ParseVersion resolves a version string such as "4" or "4.1" to the
// major Version it belongs to. An empty or unparsable string resolves
// to DefaultVersion; a parsable version outside the supported set is
// an error.
func ParseVersion(s string) (Version, error) {
	major, _, _ := strings.Cut(s, ".")

	n, err := strconv.Atoi(strings.TrimSpace(major))
	if err != nil {
		return DefaultVersion, nil
	}

	v := Version(n)

	switch v {
	case V3, V4, V5, V6:
		return v, nil
	}

	return 0, fmt.Errorf("%w %d: supported versions are %s",
		ErrUnsupportedVersion, n, supportedList())
}

// supportedList renders the supported versions for error messages,
// e.g. "3, 4, 5 and 6".
func supportedList() string {
	names := make([]string, 0, len(supportedVersions))
	for _, v := range supportedVersions {
		names = append(names, strconv.Itoa(int(v)))
	}

	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

// Commands resolves the command vocabulary for a Version.
//
// Versions 4 through 6 intentionally share an entry: the management
// CLI did not change between those releases.
func Commands(v Version) CommandSet {
	switch v {
	case V3:
		return CommandSet{
			Auth:     "auth",
			Quit:     "quit",
			Start:    "start",
			Stop:     "stop",
			Status:   "status",
			Ping:     "ping",
			Purge:    "ban",
			PurgeURL: "ban.url",
		}

	case V4, V5, V6:
		return CommandSet{
			Auth:     "auth",
			Quit:     "quit",
			Start:    "start",
			Stop:     "stop",
			Status:   "status",
			Ping:     "ping",
			Purge:    "ban",
			PurgeURL: "ban req.url ~",
		}
	}

	// Unreachable: ParseVersion only hands out members of the set above.
	panic(fmt.Sprintf("no command set for version %d", v))
}
