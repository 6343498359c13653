package threading

import (
	"github.com/tOgg1/nostrfeed/internal/models"
)

// ReplyTags builds marked tags for a reply to parent: a root reference, a reply
// reference when the parent is not itself the root, and identity references
// for the parent's author and the thread participants.
func ReplyTags(parent models.Post) []models.RawTag {
	if parent.ID == "" {
		return nil
	}

	rootID := parent.ID
	if parent.RootID != nil && *parent.RootID != "" {
		rootID = *parent.RootID
	}

	tags := []models.RawTag{{Kind: tagEvent, Values: []string{rootID, "", "root"}}}
	if rootID != parent.ID {
		tags = append(tags, models.RawTag{Kind: tagEvent, Values: []string{parent.ID, "", "reply"}})
	}

	seen := make(map[string]struct{}, len(parent.Participants)+1)
	addPerson := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		tags = append(tags, models.RawTag{Kind: tagIdentity, Values: []string{id}})
	}
	addPerson(parent.Author.Hex())
	for _, p := range parent.Participants {
		addPerson(p)
	}
	return tags
}
