package models

// RawTag is a tag as it arrives from an event source: a kind discriminator and
// its positional string values (the kind itself is not repeated in Values).
type RawTag struct {
	Kind   string
	Values []string
}

// Role is the thread role marker on an event reference.
type Role int

const (
	RoleNone Role = iota
	RoleRoot
	RoleReply
	RoleMention
	RoleOther
)

func (r Role) String() string {
	switch r {
	case RoleRoot:
		return "root"
	case RoleReply:
		return "reply"
	case RoleMention:
		return "mention"
	case RoleOther:
		return "other"
	default:
		return ""
	}
}

// ParseRole maps a marker string to a Role.
func ParseRole(marker string) Role {
	switch marker {
	case "":
		return RoleNone
	case "root":
		return RoleRoot
	case "reply":
		return RoleReply
	case "mention":
		return RoleMention
	default:
		return RoleOther
	}
}

// Tag is one typed tag, parsed once at the ingestion boundary.
type Tag interface {
	isTag()
}

// EventRef references another post.
type EventRef struct {
	ID   string
	Role Role
}

// IdentityRef references an author taking part in the thread.
type IdentityRef struct {
	ID string
}

// UnknownTag is any tag kind the feed does not interpret.
type UnknownTag struct {
	Kind string
}

func (EventRef) isTag()    {}
func (IdentityRef) isTag() {}
func (UnknownTag) isTag()  {}
