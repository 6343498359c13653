package navlist

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func selected[T any](t *testing.T, l *List[T]) int {
	t.Helper()
	idx, ok := l.Selected()
	require.True(t, ok, "expected a selection")
	return idx
}

func TestNew_SelectsFirst(t *testing.T) {
	l := New([]string{"a", "b"})
	require.Equal(t, 0, selected(t, l))
	item, ok := l.SelectedItem()
	require.True(t, ok)
	require.Equal(t, "a", item)
}

func TestNext_ClampsAtLast(t *testing.T) {
	for _, n := range []int{1, 2, 7} {
		items := make([]int, n)
		l := New(items)
		for i := 0; i < n+5; i++ {
			l.Next()
		}
		require.Equal(t, n-1, selected(t, l))
	}
}

func TestPrevious_ClampsAtFirst(t *testing.T) {
	l := New([]int{1, 2, 3})
	l.Previous()
	require.Equal(t, 0, selected(t, l))
}

func TestJumps_StayInBounds(t *testing.T) {
	l := New([]int{0, 1, 2, 3, 4})
	l.JumpDown(3)
	require.Equal(t, 3, selected(t, l))
	l.JumpDown(10)
	require.Equal(t, 4, selected(t, l))
	l.JumpUp(2)
	require.Equal(t, 2, selected(t, l))
	l.JumpUp(100)
	require.Equal(t, 0, selected(t, l))
	l.JumpDown(-1)
	require.Equal(t, 0, selected(t, l))
}

func TestFirstLast(t *testing.T) {
	l := New([]int{0, 1, 2})
	l.Last()
	require.Equal(t, 2, selected(t, l))
	l.First()
	require.Equal(t, 0, selected(t, l))
}

func TestEmptyList_NoOps(t *testing.T) {
	l := New[string](nil)
	_, ok := l.Selected()
	require.False(t, ok)

	l.Next()
	l.Previous()
	l.JumpDown(10)
	l.JumpUp(10)
	l.First()
	l.Last()
	l.SortStable(func(a, b string) bool { return a < b })

	_, ok = l.Selected()
	require.False(t, ok)
	_, ok = l.SelectedItem()
	require.False(t, ok)
}

func TestAppend_KeepsIndex(t *testing.T) {
	l := New([]string{"a", "b", "c"})
	l.Next()
	l.Append("d", "e")
	require.Equal(t, 1, selected(t, l))
	require.Equal(t, 5, l.Len())

	empty := New[string](nil)
	empty.Append("x")
	require.Equal(t, 0, selected(t, empty))
}

func TestSortStable_IndexNotFollowed(t *testing.T) {
	l := New([]int{1, 2, 3})
	l.Last() // selects 3
	l.SortStable(func(a, b int) bool { return a > b })
	require.Equal(t, 2, selected(t, l))
	item, _ := l.SelectedItem()
	require.Equal(t, 1, item)

	require.True(t, l.Reselect(func(v int) bool { return v == 3 }))
	require.Equal(t, 0, selected(t, l))
	require.False(t, l.Reselect(func(v int) bool { return v == 99 }))
	require.Equal(t, 0, selected(t, l))
}

func TestSortStable_IsStable(t *testing.T) {
	type row struct {
		key int
		tag string
	}
	l := New([]row{{1, "a"}, {0, "b"}, {1, "c"}, {0, "d"}})
	l.SortStable(func(a, b row) bool { return a.key < b.key })
	got := ""
	for _, r := range l.Items() {
		got += r.tag
	}
	require.Equal(t, "bdac", got)
}
