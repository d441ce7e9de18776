package engine

import (
	"errors"
	"strings"
)

// DefaultSubject is the placeholder subject identity used when none is
// configured. Access models beyond owner and subject are out of scope.
const DefaultSubject = "0xPatientAddress"

// Session is the explicit context of one connected client: who writes
// records and whom they concern. It is created on connect and discarded on
// disconnect together with its Engine; sessions never share state.
type Session struct {
	Owner   string
	Subject string
}

// NewSession validates and normalizes a session. An empty subject means
// DefaultSubject.
func NewSession(owner, subject string) (Session, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return Session{}, errors.New("session: owner is required")
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = DefaultSubject
	}
	return Session{Owner: owner, Subject: subject}, nil
}

// Owns reports whether the session's owner wrote r, compared case-insensitively
// as ledger addresses are.
func (s Session) Owns(owner string) bool {
	return strings.EqualFold(s.Owner, owner)
}
