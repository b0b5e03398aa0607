package async

import "errors"

// ErrNotComplete is returned by Result while the future is still running.
var ErrNotComplete = errors.New("async: future has not completed")
