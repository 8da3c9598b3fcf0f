package bytesize

import (
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want ByteSize
	}{
		{"1024", 1024},
		{"1Ki", KiB},
		{"1KiB", KiB},
		{"64Mi", 64 * MiB},
		{"1Gi", GiB},
		{"100GB", 100 * GB},
		{"1.5Gi", ByteSize(1.5 * float64(GiB))},
		{"  2 Mi ", 2 * MiB},
		{"0", 0},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if err != nil {
			t.Errorf("Parse(%q) error = %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "  ", "abc", "1Xi", "-5", "1..5Gi"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", in)
		}
	}
}

func TestString_RoundTrip(t *testing.T) {
	for _, b := range []ByteSize{KiB, 64 * MiB, GiB, 2 * TiB, 777} {
		got, err := Parse(b.String())
		if err != nil {
			t.Errorf("Parse(String(%d)) error = %v", b, err)
			continue
		}
		if got != b {
			t.Errorf("round trip %d -> %q -> %d", b, b.String(), got)
		}
	}
}

func TestUnmarshalText(t *testing.T) {
	var b ByteSize
	if err := b.UnmarshalText([]byte("512Mi")); err != nil {
		t.Fatalf("UnmarshalText error = %v", err)
	}
	if b != 512*MiB {
		t.Errorf("got %d, want %d", b, 512*MiB)
	}
}
