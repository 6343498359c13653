// Package threading derives thread relationships from flat post tags and
// groups posts into conversations for display.
package threading

import (
	"strings"

	"github.com/tOgg1/nostrfeed/internal/models"
)

const (
	tagEvent    = "e"
	tagIdentity = "p"

	// Marker position inside an "e" tag's values: [id, relay-hint, marker, ...].
	eventMarkerIndex = 2
)

// Thread is the structured thread metadata of one post.
type Thread struct {
	RootID       *string
	ReplyID      *string
	Mentions     []string
	Participants []string
}

// ParseTags converts raw source tags into typed tags. Tags without a target
// id are treated as unknown.
func ParseTags(raw []models.RawTag) []models.Tag {
	out := make([]models.Tag, 0, len(raw))
	for _, tag := range raw {
		id := ""
		if len(tag.Values) > 0 {
			id = strings.TrimSpace(tag.Values[0])
		}
		switch {
		case tag.Kind == tagEvent && id != "":
			marker := ""
			if len(tag.Values) > eventMarkerIndex {
				marker = strings.ToLower(strings.TrimSpace(tag.Values[eventMarkerIndex]))
			}
			out = append(out, models.EventRef{ID: id, Role: models.ParseRole(marker)})
		case tag.Kind == tagIdentity && id != "":
			out = append(out, models.IdentityRef{ID: id})
		default:
			out = append(out, models.UnknownTag{Kind: tag.Kind})
		}
	}
	return out
}

// Resolve maps typed tags to thread fields.
//
// Explicit markers always win. The positional convention only applies when
// no event reference carries any marker (root, reply, mention or other): one
// reference is the parent, two are root then parent, and with more the first
// is the root, the last the parent and the rest mentions.
func Resolve(tags []models.Tag) Thread {
	var (
		th         Thread
		unmarked   []string
		explicit   bool
		seenMent   = make(map[string]struct{})
		seenPeople = make(map[string]struct{})
	)

	addMention := func(id string) {
		if _, ok := seenMent[id]; ok {
			return
		}
		seenMent[id] = struct{}{}
		th.Mentions = append(th.Mentions, id)
	}

	for _, tag := range tags {
		switch typed := tag.(type) {
		case models.EventRef:
			if typed.Role != models.RoleNone {
				explicit = true
			}
			switch typed.Role {
			case models.RoleRoot:
				if th.RootID == nil {
					th.RootID = models.StringPtr(typed.ID)
				}
			case models.RoleReply:
				if th.ReplyID == nil {
					th.ReplyID = models.StringPtr(typed.ID)
				}
			case models.RoleNone:
				unmarked = append(unmarked, typed.ID)
			default:
				addMention(typed.ID)
			}
		case models.IdentityRef:
			if _, ok := seenPeople[typed.ID]; ok {
				continue
			}
			seenPeople[typed.ID] = struct{}{}
			th.Participants = append(th.Participants, typed.ID)
		}
	}

	switch {
	case explicit || len(unmarked) == 0:
		for _, id := range unmarked {
			addMention(id)
		}
	case len(unmarked) == 1:
		th.ReplyID = models.StringPtr(unmarked[0])
	default:
		th.RootID = models.StringPtr(unmarked[0])
		th.ReplyID = models.StringPtr(unmarked[len(unmarked)-1])
		for _, id := range unmarked[1 : len(unmarked)-1] {
			addMention(id)
		}
	}

	// A mention that is also the root or parent is not a separate mention.
	if len(th.Mentions) > 0 {
		filtered := th.Mentions[:0]
		for _, id := range th.Mentions {
			if (th.RootID != nil && *th.RootID == id) || (th.ReplyID != nil && *th.ReplyID == id) {
				continue
			}
			filtered = append(filtered, id)
		}
		th.Mentions = filtered
	}

	if th.Mentions == nil {
		th.Mentions = []string{}
	}
	if th.Participants == nil {
		th.Participants = []string{}
	}
	return th
}

// ResolveRaw parses and resolves in one step.
func ResolveRaw(raw []models.RawTag) Thread {
	return Resolve(ParseTags(raw))
}

// Apply copies the thread fields onto post.
func (t Thread) Apply(post *models.Post) {
	post.RootID = t.RootID
	post.ReplyID = t.ReplyID
	post.Mentions = append([]string{}, t.Mentions...)
	post.Participants = append([]string{}, t.Participants...)
}
