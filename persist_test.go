package chronicle_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrabchevskiy/chronicle"
	"github.com/mrabchevskiy/chronicle/codec"
	"github.com/mrabchevskiy/chronicle/storage"
)

func sequentialIDs() func() uint32 {
	var n uint32
	return func() uint32 {
		n++
		return n
	}
}

// feed streams the symbols of text through the chronicle.
func feed(t *testing.T, ch *chronicle.Chronicle, s *storage.Store, text string) {
	t.Helper()
	for i := 0; i < len(text); i++ {
		require.True(t, ch.Incl(s.Atom(text[i])), "Incl of symbol %q", text[i])
	}
}

func TestSaveWritesDecodableLines(t *testing.T) {
	s := storage.New(4096, storage.WithIDSource(sequentialIDs()))
	ch, err := chronicle.New(s, chronicle.WithCapacity(64))
	require.NoError(t, err)
	feed(t, ch, s, "abcab")

	path := filepath.Join(t.TempDir(), "seq.txt")
	require.NoError(t, ch.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Fields(string(raw))
	assert.Equal(t, ch.Len(), len(lines), "one line per live element, holes skipped")
	for _, line := range lines {
		u, err := codec.Decode(line)
		require.NoError(t, err)
		assert.NotZero(t, u)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := storage.New(4096, storage.WithIDSource(sequentialIDs()))
	ch, err := chronicle.New(s, chronicle.WithCapacity(64))
	require.NoError(t, err)
	feed(t, ch, s, "abcab")
	want := liveIDs(ch)
	require.Greater(t, ch.Gap(), 0, "the scenario folds and leaves a hole")

	path := filepath.Join(t.TempDir(), "seq.txt")
	require.NoError(t, ch.Save(path))

	loaded, err := chronicle.New(s, chronicle.WithCapacity(64))
	require.NoError(t, err)
	require.Equal(t, chronicle.LoadOK, loaded.Load(path, s.Exists))
	assert.Equal(t, want, liveIDs(loaded), "the identity sequence survives the round trip")
	assert.True(t, loaded.Consistent())
}

func TestLoadErrorCodes(t *testing.T) {
	s := storage.New(4096, storage.WithIDSource(sequentialIDs()))
	dir := t.TempDir()

	newChronicle := func() *chronicle.Chronicle {
		ch, err := chronicle.New(s)
		require.NoError(t, err)
		return ch
	}
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("open failure", func(t *testing.T) {
		assert.Equal(t, chronicle.LoadOpenFailed,
			newChronicle().Load(filepath.Join(dir, "absent.txt"), s.Exists))
	})

	t.Run("nihil record", func(t *testing.T) {
		a := s.Atom('a')
		path := write("nihil.txt", codec.Encode(uint32(a))+"\n0\n")
		ch := newChronicle()
		assert.Equal(t, chronicle.LoadBadRecord, ch.Load(path, s.Exists))
		assert.True(t, ch.Empty(), "a rejected file leaves the chronicle untouched")
	})

	t.Run("record outside the alphabet", func(t *testing.T) {
		path := write("bad.txt", "1#\n")
		assert.Equal(t, chronicle.LoadBadRecord, newChronicle().Load(path, s.Exists))
	})

	t.Run("unknown identity", func(t *testing.T) {
		path := write("unknown.txt", codec.Encode(123456)+"\n")
		ch := newChronicle()
		assert.Equal(t, 123456, ch.Load(path, s.Exists))
		assert.True(t, ch.Empty())
	})

	t.Run("inclusion failure", func(t *testing.T) {
		oversized := uint32(chronicle.IdentityLimit)
		path := write("oversized.txt", codec.Encode(oversized)+"\n")
		ch := newChronicle()
		got := ch.Load(path, func(chronicle.Identity) bool { return true })
		assert.Equal(t, -int(oversized), got)
	})
}

func TestLoadExtendsExistingContent(t *testing.T) {
	s := storage.New(4096, storage.WithIDSource(sequentialIDs()))
	a, b := s.Atom('a'), s.Atom('b')
	s.MarkUnconnectable(a)
	s.MarkUnconnectable(b)

	ch, err := chronicle.New(s)
	require.NoError(t, err)
	require.True(t, ch.Incl(a))

	path := filepath.Join(t.TempDir(), "seq.txt")
	require.NoError(t, os.WriteFile(path,
		[]byte(codec.Encode(uint32(b))+"\n"), 0o644))
	require.Equal(t, chronicle.LoadOK, ch.Load(path, s.Exists))
	assert.Equal(t, []chronicle.Identity{a, b}, liveIDs(ch))
}

func TestTextStreamEndToEnd(t *testing.T) {
	// The full collaboration: atoms minted per symbol, spacing excluded
	// from fusion, repeated words folding into patterns.
	s := storage.New(64*1024, storage.WithIDSource(sequentialIDs()))
	s.MarkUnconnectable(s.Atom(' '))
	ch, err := chronicle.New(s, chronicle.WithCapacity(256))
	require.NoError(t, err)

	text := strings.Repeat("the cat sat on the mat ", 8)
	for i := 0; i < len(text); i++ {
		require.True(t, ch.Incl(s.Atom(text[i])))
		require.True(t, ch.Consistent(), "after symbol %d", i)
	}
	assert.Less(t, ch.Len(), len(text), "repetition must compress")
	assert.Greater(t, s.NumPatterns(), 0)
	assert.Equal(t, ch.Len(), ch.Size()-ch.Gap())

	ch.Compact()
	assert.Zero(t, ch.Gap())
	assert.True(t, ch.Consistent())
}
