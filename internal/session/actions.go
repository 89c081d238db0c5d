package session

// Action types recorded via tracing.Tracer.RecordAction, grounded on
// the teacher's powlib.PowlibMiningBegin / PowlibMiningComplete /
// PowlibSuccess pattern in powlib/powlib.go: one plain struct per
// milestone, passed straight to RecordAction.

// ActionPOWBegin is recorded when a POW command is received and the
// solver is about to be invoked.
type ActionPOWBegin struct {
	Authdata   string
	Difficulty int
}

// ActionPOWSuccess is recorded once the solver returns a nonce and the
// session has transitioned to Authenticated.
type ActionPOWSuccess struct {
	Authdata string
	Nonce    string
}

// ActionIdentityReply is recorded each time an authenticated identity
// verb is answered.
type ActionIdentityReply struct {
	Verb      string
	Challenge string
}

// ActionSessionClosed is recorded once when the session transitions to
// Closed, carrying the reason (END, ERROR, transport EOF, fatal error).
type ActionSessionClosed struct {
	Reason string
}
