package ackproc

import "errors"

// ErrConcurrentReconfig is fatal: JOIN or REMOVE arrived while a
// reconfiguration was already pending. The worker terminates and
// Shutdown surfaces this error.
var ErrConcurrentReconfig = errors.New("ackproc: reconfiguration already pending")
