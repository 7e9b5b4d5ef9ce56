package cache

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrRemoteNotConfigured is returned by a remote client built without a URL or token.
var ErrRemoteNotConfigured = errors.New("cache: remote not configured")

// ErrUnexpectedReply is returned when the remote service answers with a reply
// that does not match the command that was sent.
var ErrUnexpectedReply = errors.New("cache: unexpected remote reply")

// RemoteError is returned when the remote service rejects a command, either
// with a non-2xx status or an {"error": ...} body.
type RemoteError struct {
	Command    string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("cache: remote %s: http %d: %s", e.Command, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("cache: remote %s: %s", e.Command, e.Message)
}

// IsRemoteError reports whether err carries a *RemoteError.
func IsRemoteError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
