package threading

import (
	"sort"
	"strings"
	"time"

	"github.com/tOgg1/nostrfeed/internal/models"
)

const maxDisplayDepth = 10

// Conversation is one thread: a root post and every post that descends from
// it within the loaded set.
type Conversation struct {
	Root         *models.Post // post with no known parent in the set
	Posts        []*Node      // all posts in chronological order
	Depth        int          // max nesting depth (clamped)
	Authors      []string     // unique display names
	LastActivity time.Time
}

// Node is a post placed in its conversation's reply tree.
type Node struct {
	Post     *models.Post
	Parent   *Node
	Children []*Node
	Depth    int // nesting level (0 = root, clamped)
}

// BuildConversations groups a flat list of posts into conversations, oldest
// root first.
func BuildConversations(posts []models.Post) []*Conversation {
	nodes := indexNodes(posts)
	linkParents(nodes)

	roots := make([]*Node, 0)
	for _, node := range nodes {
		if node.Parent == nil {
			roots = append(roots, node)
		}
	}

	sort.SliceStable(roots, func(i, j int) bool {
		return postLess(*roots[i].Post, *roots[j].Post)
	})

	out := make([]*Conversation, 0, len(roots))
	for _, root := range roots {
		out = append(out, buildConversation(root))
	}
	return out
}

// ConversationFor reconstructs the conversation containing postID.
func ConversationFor(posts []models.Post, postID string) *Conversation {
	nodes := indexNodes(posts)
	linkParents(nodes)

	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil
	}
	start := nodes[postID]
	if start == nil {
		return nil
	}

	root := start
	seen := make(map[string]struct{}, 8)
	for root.Parent != nil {
		if _, ok := seen[root.Post.ID]; ok {
			break
		}
		seen[root.Post.ID] = struct{}{}
		root = root.Parent
	}
	return buildConversation(root)
}

// Flatten returns posts in display order: depth-first, siblings oldest first.
func Flatten(conv *Conversation) []*Node {
	if conv == nil || conv.Root == nil || len(conv.Posts) == 0 {
		return nil
	}

	var root *Node
	for _, node := range conv.Posts {
		if node.Parent == nil && node.Post.ID == conv.Root.ID {
			root = node
			break
		}
	}
	if root == nil {
		root = conv.Posts[0]
	}

	out := make([]*Node, 0, len(conv.Posts))
	var walk func(n *Node)
	walk = func(n *Node) {
		out = append(out, n)
		children := append([]*Node(nil), n.Children...)
		sort.SliceStable(children, func(i, j int) bool {
			return postLess(*children[i].Post, *children[j].Post)
		})
		for _, child := range children {
			walk(child)
		}
	}
	walk(root)
	return out
}

func indexNodes(posts []models.Post) map[string]*Node {
	nodes := make(map[string]*Node, len(posts))
	for i := range posts {
		if strings.TrimSpace(posts[i].ID) == "" {
			continue
		}
		if _, dup := nodes[posts[i].ID]; dup {
			continue
		}
		clone := posts[i]
		nodes[clone.ID] = &Node{Post: &clone}
	}
	return nodes
}

func linkParents(nodes map[string]*Node) {
	if len(nodes) == 0 {
		return
	}

	// Deterministic: link in chronological order.
	ordered := make([]*Node, 0, len(nodes))
	for _, node := range nodes {
		ordered = append(ordered, node)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return postLess(*ordered[i].Post, *ordered[j].Post)
	})

	for _, node := range ordered {
		parentID := node.Post.ParentID()
		if parentID == "" || parentID == node.Post.ID {
			continue
		}
		parent := nodes[parentID]
		if parent == nil && node.Post.RootID != nil {
			// Parent not fetched: hang the post off the root if we have it.
			parent = nodes[*node.Post.RootID]
		}
		if parent == nil || parent == node || wouldCreateCycle(node, parent) {
			continue
		}
		node.Parent = parent
		parent.Children = append(parent.Children, node)
	}

	for _, node := range ordered {
		node.Depth = clampedDepth(node)
	}
}

func wouldCreateCycle(node, parent *Node) bool {
	for cur := parent; cur != nil; cur = cur.Parent {
		if cur == node {
			return true
		}
	}
	return false
}

func clampedDepth(node *Node) int {
	depth := 0
	for cur := node; cur.Parent != nil; cur = cur.Parent {
		depth++
		if depth >= maxDisplayDepth {
			return maxDisplayDepth
		}
	}
	return depth
}

func buildConversation(root *Node) *Conversation {
	if root == nil || root.Post == nil {
		return nil
	}

	collected := make([]*Node, 0, 16)
	stack := []*Node{root}
	seen := make(map[*Node]struct{}, 32)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		collected = append(collected, n)
		stack = append(stack, n.Children...)
	}

	sort.SliceStable(collected, func(i, j int) bool {
		return postLess(*collected[i].Post, *collected[j].Post)
	})

	authorSet := make(map[string]struct{}, 8)
	authors := make([]string, 0, 8)
	var last time.Time
	maxDepth := 0
	for _, node := range collected {
		name := strings.TrimSpace(node.Post.AuthorDisplay)
		if name != "" {
			if _, ok := authorSet[name]; !ok {
				authorSet[name] = struct{}{}
				authors = append(authors, name)
			}
		}
		if t := node.Post.Time(); t.After(last) {
			last = t
		}
		if node.Depth > maxDepth {
			maxDepth = node.Depth
		}
	}
	sort.Strings(authors)

	return &Conversation{
		Root:         root.Post,
		Posts:        collected,
		Depth:        maxDepth,
		Authors:      authors,
		LastActivity: last,
	}
}

func postLess(a, b models.Post) bool {
	if a.AuthoredAt != b.AuthoredAt {
		return a.AuthoredAt < b.AuthoredAt
	}
	return a.ID < b.ID
}
