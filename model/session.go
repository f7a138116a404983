package model

// SessionAttribute is a per-session preference stored by the host
// application, such as a user's e-mail address.
type SessionAttribute struct {
	SID           string `json:"sid" db:"sid"`
	Authenticated bool   `json:"authenticated" db:"authenticated"`
	Name          string `json:"name" db:"name"`
	Value         string `json:"value" db:"value"`
}

// TableName returns the database table name for SessionAttribute.
func (s SessionAttribute) TableName() string {
	return "session_attribute"
}

// Well known session attribute names.
const (
	SessionEmail          = "email"
	SessionSpecifiedEmail = "announcer_specified_email"
	SessionSpecifiedXMPP  = "specified_xmpp"
)
