package model

import "fmt"

// Identity identifies a subscriber. A session id alone is not unique: an
// anonymous session may reuse the name of an authenticated user, so both
// fields always travel together and both take part in equality.
type Identity struct {
	SID           string `json:"sid"`
	Authenticated bool   `json:"authenticated"`
}

// NewIdentity creates an Identity.
func NewIdentity(sid string, authenticated bool) Identity {
	return Identity{SID: sid, Authenticated: authenticated}
}

// IsZero reports whether the identity has no session id.
func (i Identity) IsZero() bool {
	return i.SID == ""
}

// String renders the identity for logs.
func (i Identity) String() string {
	if i.Authenticated {
		return fmt.Sprintf("%s (authenticated)", i.SID)
	}
	return fmt.Sprintf("%s (anonymous)", i.SID)
}

// Equal reports whether both identities name the same subscriber.
func (i Identity) Equal(other Identity) bool {
	return i.SID == other.SID && i.Authenticated == other.Authenticated
}

// Key returns a string usable as a map or lock key.
func (i Identity) Key() string {
	if i.Authenticated {
		return "1:" + i.SID
	}
	return "0:" + i.SID
}
