package codec_test

import (
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mrabchevskiy/chronicle/codec"
)

func TestEncodeKnownValues(t *testing.T) {
	cases := map[uint32]string{
		0:  "0",
		1:  "1",
		9:  "9",
		10: "a",
		35: "z",
		36: "A",
		61: "Z",
		62: "@",
		63: "$",
		64: "10",
		65: "11",
	}
	for u, want := range cases {
		if got := codec.Encode(u); got != want {
			t.Errorf("Encode(%d) = %q, want %q", u, got, want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	fixed := []uint32{0, 1, 63, 64, 65, 4095, 4096, 1 << 24, 1<<24 - 1, math.MaxUint32}
	for _, u := range fixed {
		got, err := codec.Decode(codec.Encode(u))
		if err != nil {
			t.Fatalf("Decode(Encode(%d)): %v", u, err)
		}
		if got != u {
			t.Errorf("round trip %d -> %d", u, got)
		}
	}
	rng := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 100000; i++ {
		u := rng.Uint32()
		got, err := codec.Decode(codec.Encode(u))
		if err != nil {
			t.Fatalf("Decode(Encode(%d)): %v", u, err)
		}
		if got != u {
			t.Fatalf("round trip %d -> %d", u, got)
		}
	}
}

func TestDecodeRejectsBadSymbols(t *testing.T) {
	for _, text := range []string{"", "a-b", "#", " "} {
		if _, err := codec.Decode(text); !errors.Is(err, codec.ErrBadSymbol) {
			t.Errorf("Decode(%q) err = %v, want ErrBadSymbol", text, err)
		}
	}
}

func TestReaderRecords(t *testing.T) {
	r := codec.NewReader(strings.NewReader(" 10\n0\n\t $ \n\nzZ"))
	var got []uint32
	for {
		u, ok, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, u)
	}
	want := []uint32{64, 0, 63, 35*64 + 61}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Error(diff)
	}
}

func TestReaderEmptyStream(t *testing.T) {
	for _, src := range []string{"", "  \n\t "} {
		r := codec.NewReader(strings.NewReader(src))
		if _, ok, err := r.Next(); ok || err != nil {
			t.Errorf("Next on %q = ok=%v err=%v, want end of stream", src, ok, err)
		}
	}
}

func TestReaderBadSymbol(t *testing.T) {
	r := codec.NewReader(strings.NewReader("10 !"))
	if _, ok, err := r.Next(); !ok || err != nil {
		t.Fatalf("first record: ok=%v err=%v", ok, err)
	}
	if _, _, err := r.Next(); !errors.Is(err, codec.ErrBadSymbol) {
		t.Errorf("second record err = %v, want ErrBadSymbol", err)
	}
}

func TestAppendReusesBuffer(t *testing.T) {
	buf := make([]byte, 0, 8)
	buf = codec.Append(buf, 64)
	buf = append(buf, ' ')
	buf = codec.Append(buf, 63)
	if string(buf) != "10 $" {
		t.Errorf("buffer = %q, want %q", buf, "10 $")
	}
}
