package model

// Attribute is a fact a rule class keeps about a subscriber, such as "watches
// wiki page Foo". Attributes of the same (subscriber, class) are independent
// and usually read as a set.
type Attribute struct {
	ID            int64  `json:"id" db:"id"`
	SID           string `json:"sid" db:"sid"`
	Authenticated bool   `json:"authenticated" db:"authenticated"`
	Class         string `json:"class" db:"class"`
	Realm         string `json:"realm" db:"realm"`
	Target        string `json:"target" db:"target"`
}

// TableName returns the database table name for Attribute.
func (a Attribute) TableName() string {
	return "subscription_attribute"
}

// NewAttribute creates an unsaved attribute.
func NewAttribute(subscriber Identity, class, realm, target string) Attribute {
	return Attribute{
		SID:           subscriber.SID,
		Authenticated: subscriber.Authenticated,
		Class:         class,
		Realm:         realm,
		Target:        target,
	}
}

// Subscriber returns the identity owning the attribute.
func (a Attribute) Subscriber() Identity {
	return Identity{SID: a.SID, Authenticated: a.Authenticated}
}
