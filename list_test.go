package sqlist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlist/codec"
)

// newList opens a list for the test and closes it on cleanup.
func newList[T any](t *testing.T, cfg Config[T], values ...T) *List[T] {
	t.Helper()
	l, err := Open(context.Background(), cfg, values...)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

// contents returns every value of l in logical order.
func contents[T any](t *testing.T, l *List[T]) []T {
	t.Helper()
	vals, err := l.ToSlice(context.Background())
	require.NoError(t, err)
	return vals
}

func byLen(s string) any { return len(s) }

func TestOpen_NaturalOrder(t *testing.T) {
	ctx := context.Background()
	l := newList(t, Config[string]{}, "c", "a", "b")

	n, err := l.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	first, err := l.Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "c", first)
	assert.Equal(t, []string{"c", "a", "b"}, contents(t, l))
	assert.False(t, l.HasKey())
}

func TestOpen_WithKey(t *testing.T) {
	l := newList(t, Config[string]{Key: byLen}, "bb", "a", "ccc")
	assert.Equal(t, []string{"a", "bb", "ccc"}, contents(t, l))
	assert.True(t, l.HasKey())
}

func TestOpen_TiesKeepInsertionOrder(t *testing.T) {
	l := newList(t, Config[string]{Key: byLen}, "bb", "x", "aa", "y", "cc")
	assert.Equal(t, []string{"x", "y", "bb", "aa", "cc"}, contents(t, l))
}

func TestOpen_NullKeysSortFirst(t *testing.T) {
	key := func(s string) any {
		if strings.HasPrefix(s, "_") {
			return nil
		}
		return len(s)
	}
	l := newList(t, Config[string]{Key: key}, "ccc", "_b", "a", "_a")
	assert.Equal(t, []string{"_b", "_a", "a", "ccc"}, contents(t, l))
}

func TestOpen_InvalidConfig(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Config[string]{Table: "bad name; DROP"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Open(ctx, Config[string]{BatchSize: -1})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Open(ctx, Config[string]{Strategy: SortStrategy(9)})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestOpen_UnsupportedKeyType(t *testing.T) {
	ctx := context.Background()
	bad := func(s string) any { return struct{}{} }

	_, err := Open(ctx, Config[string]{Key: bad}, "a")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	l := newList(t, Config[string]{}, "a")
	err = l.Rekey(ctx, bad)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.False(t, l.HasKey(), "failed rekey must not install the function")
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "list.db")

	l, err := Open(ctx, Config[string]{Path: path}, "x", "y")
	require.NoError(t, err)
	require.NoError(t, l.Append(ctx, "z"))
	require.NoError(t, l.Close())

	kept, err := Open(ctx, Config[string]{Path: path, KeepExisting: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, contents(t, kept))
	require.NoError(t, kept.Close())

	dropped, err := Open(ctx, Config[string]{Path: path})
	require.NoError(t, err)
	defer dropped.Close()
	assert.Empty(t, contents(t, dropped))
}

func TestOpen_SeparateTables(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "list.db")

	a := newList(t, Config[int]{Path: path, Table: "a"}, 1, 2)
	require.NoError(t, a.Close())
	b := newList(t, Config[int]{Path: path, Table: "b"}, 3)
	require.NoError(t, b.Close())

	a2 := newList(t, Config[int]{Path: path, Table: "a", KeepExisting: true})
	n, err := a2.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestTemp_AutoRemove(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	l, err := Temp(ctx, TempConfig{Dir: dir, Prefix: "sqlist-", Suffix: ".db"}, Config[string]{}, "a")
	require.NoError(t, err)

	path := l.Path()
	assert.True(t, strings.HasPrefix(filepath.Base(path), "sqlist-"))
	assert.True(t, strings.HasSuffix(path, ".db"))
	_, err = os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, l.Close())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "temp file should be removed on close")
}

func TestTemp_Keep(t *testing.T) {
	ctx := context.Background()
	l, err := Temp(ctx, TempConfig{Dir: t.TempDir(), Keep: true}, Config[string]{})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	_, err = os.Stat(l.Path())
	assert.NoError(t, err)
}

func TestGet_PositiveAndNegative(t *testing.T) {
	ctx := context.Background()
	values := []string{"a", "b", "c", "d"}

	for _, headScan := range []bool{false, true} {
		t.Run("headScan="+strconv.FormatBool(headScan), func(t *testing.T) {
			l := newList(t, Config[string]{HeadScan: headScan}, values...)
			n := len(values)

			for i := range values {
				got, err := l.Get(ctx, i)
				require.NoError(t, err)
				assert.Equal(t, values[i], got)

				neg, err := l.Get(ctx, i-n)
				require.NoError(t, err)
				assert.Equal(t, values[i], neg, "Get(%d) must equal Get(%d)", i-n, i)
			}

			for _, i := range []int{n, n + 5, -n - 1, -n - 10} {
				_, err := l.Get(ctx, i)
				require.Error(t, err)
				assert.True(t, IsIndexError(err))

				var le *Error
				require.True(t, errors.As(err, &le))
				assert.Equal(t, i, le.Index)
				assert.Equal(t, "get", le.Op)
			}
		})
	}
}

func TestGet_TailAndHeadScanAgree(t *testing.T) {
	ctx := context.Background()
	values := []string{"dd", "a", "ccc", "b", "ee", "f"}
	tail := newList(t, Config[string]{Key: byLen}, values...)
	head := newList(t, Config[string]{Key: byLen, HeadScan: true}, values...)

	for i := -len(values); i < 0; i++ {
		a, err := tail.Get(ctx, i)
		require.NoError(t, err)
		b, err := head.Get(ctx, i)
		require.NoError(t, err)
		assert.Equal(t, b, a, "index %d", i)
	}
}

func TestGet_EmptyList(t *testing.T) {
	l := newList(t, Config[string]{})
	_, err := l.Get(context.Background(), 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = l.Get(context.Background(), -1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestSlice(t *testing.T) {
	ctx := context.Background()
	l := newList(t, Config[int]{}, 0, 1, 2, 3, 4)

	tests := []struct {
		r    Range
		want []int
	}{
		{All(), []int{0, 1, 2, 3, 4}},
		{Span(1, 3), []int{1, 2}},
		{From(3), []int{3, 4}},
		{To(2), []int{0, 1}},
		{Span(-2, 10), []int{3, 4}},
		{Span(-10, 1), []int{0}},
		{Span(3, 1), []int{}},
		{From(10), []int{}},
		{To(-10), []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.r.String(), func(t *testing.T) {
			got, err := l.Slice(ctx, tt.r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAppend(t *testing.T) {
	ctx := context.Background()
	l := newList(t, Config[[]int]{}, []int{1}, []int{2, 3})

	require.NoError(t, l.Append(ctx, []int{1, 2, 3}))

	n, err := l.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	last, err := l.Get(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, last)

	ok, err := l.Contains(ctx, []int{1, 2, 3})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExtend(t *testing.T) {
	ctx := context.Background()
	l := newList(t, Config[string]{}, "a", "b", "c")

	require.NoError(t, l.Extend(ctx, "x", "y"))

	n, err := l.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	last, err := l.Get(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, "y", last)
	prev, err := l.Get(ctx, -2)
	require.NoError(t, err)
	assert.Equal(t, "x", prev)
}

func TestExtend_LargeBatchKeepsOrder(t *testing.T) {
	values := make([]int, 1000)
	for i := range values {
		values[i] = i
	}
	l := newList(t, Config[int]{BatchSize: 7}, values...)
	assert.Equal(t, values, contents(t, l))
}

func TestExtend_BadKeyIsAtomic(t *testing.T) {
	ctx := context.Background()
	key := func(s string) any {
		if s == "bad" {
			return []string{"unsupported"}
		}
		return nil
	}
	l := newList(t, Config[string]{Key: key}, "a")

	err := l.Extend(ctx, "b", "bad", "c")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, []string{"a"}, contents(t, l))
}

func TestSet(t *testing.T) {
	ctx := context.Background()
	l := newList(t, Config[string]{}, "a", "b", "c")

	require.NoError(t, l.Set(ctx, 1, "Z"))
	assert.Equal(t, []string{"a", "Z", "c"}, contents(t, l))

	require.NoError(t, l.Set(ctx, -1, "Y"))
	assert.Equal(t, []string{"a", "Z", "Y"}, contents(t, l))
}

func TestSet_OutOfRangeChangesNothing(t *testing.T) {
	ctx := context.Background()
	l := newList(t, Config[string]{}, "a", "b", "c")

	err := l.Set(ctx, 10, "Z")
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.Equal(t, []string{"a", "b", "c"}, contents(t, l))

	err = l.Set(ctx, -4, "Z")
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.Equal(t, []string{"a", "b", "c"}, contents(t, l))
}

func TestSet_RecomputesKey(t *testing.T) {
	ctx := context.Background()
	l := newList(t, Config[string]{Key: byLen}, "a", "bb", "ccc")

	require.NoError(t, l.Set(ctx, 0, "zzzz"))
	assert.Equal(t, []string{"bb", "ccc", "zzzz"}, contents(t, l))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	l := newList(t, Config[string]{}, "a", "b", "c", "d")

	require.NoError(t, l.Delete(ctx, 0))
	require.NoError(t, l.Delete(ctx, -1))
	assert.Equal(t, []string{"b", "c"}, contents(t, l))

	ok, err := l.Contains(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	err = l.Delete(ctx, 7)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.Equal(t, []string{"b", "c"}, contents(t, l))
}

func TestDeleteRange(t *testing.T) {
	ctx := context.Background()
	l := newList(t, Config[int]{Key: func(i int) any { return -i }}, 1, 2, 3, 4, 5, 6)
	require.Equal(t, []int{6, 5, 4, 3, 2, 1}, contents(t, l))

	n, err := l.DeleteRange(ctx, Span(1, 3))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{6, 3, 2, 1}, contents(t, l))

	n, err = l.DeleteRange(ctx, From(-2))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{6, 3}, contents(t, l))

	n, err = l.DeleteRange(ctx, From(10))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []int{6, 3}, contents(t, l))
}

func TestPop(t *testing.T) {
	ctx := context.Background()
	values := []string{"w", "x", "y", "z"}
	l := newList(t, Config[string]{}, values...)

	for _, i := range []int{-1, 0, 1} {
		before, err := l.Get(ctx, i)
		require.NoError(t, err)
		n, err := l.Len(ctx)
		require.NoError(t, err)

		got, err := l.Pop(ctx, i)
		require.NoError(t, err)
		assert.Equal(t, before, got)

		after, err := l.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, n-1, after)
	}
	assert.Equal(t, []string{"x"}, contents(t, l))
}

func TestPop_OutOfRange(t *testing.T) {
	ctx := context.Background()
	l := newList(t, Config[string]{}, "a")

	_, err := l.Pop(ctx, 1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = l.Pop(ctx, -2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.Equal(t, []string{"a"}, contents(t, l))

	_, err = l.Pop(ctx, -1)
	require.NoError(t, err)
	_, err = l.Pop(ctx, -1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestContainsAndIndex(t *testing.T) {
	ctx := context.Background()
	type item struct {
		Name string
		Tags map[string]int
	}
	a := item{Name: "a", Tags: map[string]int{"x": 1, "y": 2}}
	b := item{Name: "b"}
	l := newList(t, Config[item]{}, a, b, a)

	ok, err := l.Contains(ctx, item{Name: "a", Tags: map[string]int{"y": 2, "x": 1}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Contains(ctx, item{Name: "spam"})
	require.NoError(t, err)
	assert.False(t, ok)

	i, err := l.Index(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	i, err = l.Index(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	_, err = l.Index(ctx, item{Name: "spam"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEqual(t *testing.T) {
	ctx := context.Background()
	l := newList(t, Config[string]{}, "a", "b", "c")

	for _, tt := range []struct {
		other []string
		want  bool
	}{
		{[]string{"a", "b", "c"}, true},
		{[]string{"a", "b"}, false},
		{[]string{"a", "b", "x"}, false},
		{[]string{}, false},
	} {
		got, err := l.Equal(ctx, tt.other)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v", tt.other)
	}
}

func TestValues_IsRestartable(t *testing.T) {
	ctx := context.Background()
	l := newList(t, Config[int]{BatchSize: 2}, 1, 2, 3, 4, 5)

	var seen []int
	for v, err := range l.Values(ctx) {
		require.NoError(t, err)
		seen = append(seen, v)
		if v == 3 {
			break
		}
	}
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, contents(t, l))
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	l := newList(t, Config[string]{}, "a", "b")

	require.NoError(t, l.Clear(ctx))
	n, err := l.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, l.Append(ctx, "c"))
	assert.Equal(t, []string{"c"}, contents(t, l))
}

func TestRekey(t *testing.T) {
	ctx := context.Background()
	l := newList(t, Config[string]{BatchSize: 2}, "ccc", "a", "bb", "dddd")

	require.NoError(t, l.Rekey(ctx, byLen))
	assert.True(t, l.HasKey())
	assert.Equal(t, []string{"a", "bb", "ccc", "dddd"}, contents(t, l))

	// New entries follow the installed function.
	require.NoError(t, l.Append(ctx, "ee"))
	assert.Equal(t, []string{"a", "bb", "ee", "ccc", "dddd"}, contents(t, l))

	require.NoError(t, l.Rekey(ctx, nil))
	assert.False(t, l.HasKey())
	assert.Equal(t, []string{"ccc", "a", "bb", "dddd", "ee"}, contents(t, l))
}

func TestFormat(t *testing.T) {
	ctx := context.Background()
	l := newList(t, Config[string]{}, "a", "b")

	s, err := l.Format(ctx)
	require.NoError(t, err)
	assert.Equal(t, `sqlist.List(["a", "b"])`, s)
	assert.Equal(t, s, l.String())

	values := make([]int, 25)
	for i := range values {
		values[i] = i
	}
	long := newList(t, Config[int]{}, values...)
	s, err = long.Format(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(s, "19]...)"), s)
}

func TestCodecs(t *testing.T) {
	ctx := context.Background()
	z, err := codec.NewZstd(nil)
	require.NoError(t, err)

	for _, c := range []codec.Codec{codec.CBOR{}, codec.JSON{}, z, codec.LZ4{}} {
		t.Run(c.Name(), func(t *testing.T) {
			values := []string{"埃亚菲亚德拉冰盖", "Eyjafjallajökull", ""}
			l := newList(t, Config[string]{Codec: c}, values...)
			assert.Equal(t, values, contents(t, l))

			ok, err := l.Contains(ctx, "Eyjafjallajökull")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, c.Name(), l.Codec().Name())
		})
	}
}
