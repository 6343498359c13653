package threading

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/nostrfeed/internal/models"
)

func eTag(id string, marker ...string) models.RawTag {
	values := []string{id, ""}
	values = append(values, marker...)
	return models.RawTag{Kind: "e", Values: values}
}

func pTag(id string) models.RawTag {
	return models.RawTag{Kind: "p", Values: []string{id}}
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func TestResolve_ExplicitMarkers(t *testing.T) {
	th := ResolveRaw([]models.RawTag{
		eTag("P", "reply"),
		eTag("R", "root"),
		eTag("M", "mention"),
	})
	require.Equal(t, "R", deref(th.RootID))
	require.Equal(t, "P", deref(th.ReplyID))
	require.Equal(t, []string{"M"}, th.Mentions)
}

func TestResolve_TwoUnmarkedAreRootThenReply(t *testing.T) {
	th := ResolveRaw([]models.RawTag{eTag("A"), eTag("B")})
	require.Equal(t, "A", deref(th.RootID))
	require.Equal(t, "B", deref(th.ReplyID))
	require.Empty(t, th.Mentions)
}

func TestResolve_SingleUnmarkedIsReply(t *testing.T) {
	th := ResolveRaw([]models.RawTag{eTag("X")})
	require.Nil(t, th.RootID)
	require.Equal(t, "X", deref(th.ReplyID))
}

func TestResolve_ManyUnmarkedPositional(t *testing.T) {
	th := ResolveRaw([]models.RawTag{eTag("A"), eTag("M1"), eTag("M2"), eTag("B")})
	require.Equal(t, "A", deref(th.RootID))
	require.Equal(t, "B", deref(th.ReplyID))
	require.Equal(t, []string{"M1", "M2"}, th.Mentions)
}

func TestResolve_ExplicitBeatsPositional(t *testing.T) {
	th := ResolveRaw([]models.RawTag{eTag("U1"), eTag("R", "root"), eTag("U2")})
	require.Equal(t, "R", deref(th.RootID))
	require.Nil(t, th.ReplyID)
	require.Equal(t, []string{"U1", "U2"}, th.Mentions)
}

func TestResolve_MentionMarkerDisablesPositional(t *testing.T) {
	th := ResolveRaw([]models.RawTag{eTag("quoted", "mention"), eTag("other")})
	require.Nil(t, th.RootID)
	require.Nil(t, th.ReplyID)
	require.Equal(t, []string{"quoted", "other"}, th.Mentions)

	th = ResolveRaw([]models.RawTag{eTag("A"), eTag("B", "other"), eTag("C")})
	require.Nil(t, th.RootID)
	require.Nil(t, th.ReplyID)
	require.Equal(t, []string{"B", "A", "C"}, th.Mentions)
}

func TestResolve_IdentitiesAndUnknownTags(t *testing.T) {
	th := ResolveRaw([]models.RawTag{
		pTag("alice"),
		{Kind: "t", Values: []string{"nostr"}},
		pTag("bob"),
		pTag("alice"),
		{Kind: "e"},
	})
	require.Nil(t, th.RootID)
	require.Nil(t, th.ReplyID)
	require.Equal(t, []string{"alice", "bob"}, th.Participants)
	require.Empty(t, th.Mentions)
}

func TestResolve_NoTags(t *testing.T) {
	th := Resolve(nil)
	require.Nil(t, th.RootID)
	require.Nil(t, th.ReplyID)
	require.NotNil(t, th.Mentions)
	require.NotNil(t, th.Participants)
}

func TestParseTags_MarkerPosition(t *testing.T) {
	tags := ParseTags([]models.RawTag{
		{Kind: "e", Values: []string{"id1", "wss://relay.example", "ROOT"}},
		{Kind: "e", Values: []string{"id2"}},
		{Kind: "p", Values: []string{"pk"}},
		{Kind: "x", Values: []string{"?"}},
	})
	require.Equal(t, []models.Tag{
		models.EventRef{ID: "id1", Role: models.RoleRoot},
		models.EventRef{ID: "id2", Role: models.RoleNone},
		models.IdentityRef{ID: "pk"},
		models.UnknownTag{Kind: "x"},
	}, tags)
}

func TestReplyTags(t *testing.T) {
	root := models.Post{ID: "a1", Author: "pk-alice"}
	tags := ReplyTags(root)
	require.Equal(t, []models.RawTag{
		{Kind: "e", Values: []string{"a1", "", "root"}},
		{Kind: "p", Values: []string{"pk-alice"}},
	}, tags)

	reply := models.Post{ID: "a2", Author: "pk-bob", RootID: models.StringPtr("a1"), Participants: []string{"pk-alice", "pk-bob"}}
	tags = ReplyTags(reply)
	require.Equal(t, []models.RawTag{
		{Kind: "e", Values: []string{"a1", "", "root"}},
		{Kind: "e", Values: []string{"a2", "", "reply"}},
		{Kind: "p", Values: []string{"pk-bob"}},
		{Kind: "p", Values: []string{"pk-alice"}},
	}, tags)

	// Round trip: the tags we emit resolve back to the intended parent.
	th := ResolveRaw(tags)
	require.Equal(t, "a1", deref(th.RootID))
	require.Equal(t, "a2", deref(th.ReplyID))
}
