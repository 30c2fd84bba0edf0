package session

import "errors"

var (
	// ErrAlreadyOpen is returned by Create when the user already has an
	// open session.
	ErrAlreadyOpen = errors.New("session already open")

	// ErrNoOpenSession is returned by Append when the user has no open
	// session. Finish deliberately does not return it: racing finishers
	// are expected and the losers simply get a nil snapshot.
	ErrNoOpenSession = errors.New("no open session")
)
