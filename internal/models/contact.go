package models

// Contact is a followed identity plus the name shown for it this session.
type Contact struct {
	Identity    Identity `json:"identity" yaml:"identity"`
	DisplayName string   `json:"name" yaml:"name"`
}

// NewContact builds a contact, falling back to the canonical identity string
// when no name is known.
func NewContact(id Identity, name string) Contact {
	if name == "" {
		name = id.String()
	}
	return Contact{Identity: id, DisplayName: name}
}
