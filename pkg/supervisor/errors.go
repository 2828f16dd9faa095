package supervisor

import "errors"

// ErrAlreadyStarted is returned by Start when the supervisor is not in
// a state that can begin connecting (Idle or Error).
var ErrAlreadyStarted = errors.New("supervisor: already started")
