package journal

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/causetlabs/causet/pkg/event"
)

func testConfig() Config {
	return Config{
		TotalSize:       64 * 1024,
		IndexRegionSize: 64 * event.Size,
		BlobPolicy:      BlobPolicyRefuse,
	}
}

func openTestJournal(t *testing.T, cfg Config) *Journal {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.dat")
	j, err := Open(path, cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpen_CreatesPreallocatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.dat")
	cfg := testConfig()

	j, err := Open(path, cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer j.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if uint64(info.Size()) != cfg.TotalSize {
		t.Errorf("file size = %d, want %d", info.Size(), cfg.TotalSize)
	}

	geo := j.Geometry()
	if geo.SlotCount != 64 {
		t.Errorf("SlotCount = %d, want 64", geo.SlotCount)
	}
	if geo.BlobCapacity != cfg.TotalSize-cfg.IndexRegionSize {
		t.Errorf("BlobCapacity = %d, want %d", geo.BlobCapacity, cfg.TotalSize-cfg.IndexRegionSize)
	}
}

func TestOpen_GeometryMismatchFailsFast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.dat")
	cfg := testConfig()

	j, err := Open(path, cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	j.Close()

	// Reopen with a different total size: must refuse.
	cfg.TotalSize *= 2
	if _, err := Open(path, cfg); !errors.Is(err, ErrGeometryMismatch) {
		t.Errorf("Open() with mismatched size: error = %v, want ErrGeometryMismatch", err)
	}
}

func TestOpen_RejectsBadGeometry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.dat")

	cases := []struct {
		name string
		cfg  Config
	}{
		{"index not multiple of record", Config{TotalSize: 4096, IndexRegionSize: event.Size + 1}},
		{"zero index region", Config{TotalSize: 4096, IndexRegionSize: 0}},
		{"single slot ring", Config{TotalSize: 4096, IndexRegionSize: event.Size}},
		{"no blob region", Config{TotalSize: 64 * event.Size, IndexRegionSize: 64 * event.Size}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Open(path, tc.cfg); err == nil {
				t.Error("Open() succeeded, want geometry error")
			}
		})
	}
}

func TestSlotRoundTrip(t *testing.T) {
	j := openTestJournal(t, testConfig())

	want := event.WithFlags(99, 4, 2, 512, 0xCAFEBABE, event.FlagHasPayload)
	if err := j.WriteSlot(17, want); err != nil {
		t.Fatalf("WriteSlot() error = %v", err)
	}

	got, err := j.ReadSlot(17)
	if err != nil {
		t.Fatalf("ReadSlot() error = %v", err)
	}
	if got != want {
		t.Errorf("ReadSlot() = %+v, want %+v", got, want)
	}
}

func TestSlotOutOfRange(t *testing.T) {
	j := openTestJournal(t, testConfig())

	if err := j.WriteSlot(j.SlotCount(), event.Event{}); !errors.Is(err, ErrSlotOutOfRange) {
		t.Errorf("WriteSlot(count) error = %v, want ErrSlotOutOfRange", err)
	}
	if _, err := j.ReadSlot(j.SlotCount()); !errors.Is(err, ErrSlotOutOfRange) {
		t.Errorf("ReadSlot(count) error = %v, want ErrSlotOutOfRange", err)
	}
}

func TestAppendBlob_RoundTrip(t *testing.T) {
	j := openTestJournal(t, testConfig())

	a := []byte("first payload")
	b := []byte("second payload")

	offA, err := j.AppendBlob(a)
	if err != nil {
		t.Fatalf("AppendBlob(a) error = %v", err)
	}
	offB, err := j.AppendBlob(b)
	if err != nil {
		t.Fatalf("AppendBlob(b) error = %v", err)
	}

	if offA != 0 {
		t.Errorf("first blob offset = %d, want 0", offA)
	}
	if offB != uint64(len(a)) {
		t.Errorf("second blob offset = %d, want %d (monotonic cursor)", offB, len(a))
	}

	gotA, err := j.ReadBlob(offA, len(a))
	if err != nil {
		t.Fatalf("ReadBlob(a) error = %v", err)
	}
	if !bytes.Equal(gotA, a) {
		t.Errorf("ReadBlob(a) = %q, want %q", gotA, a)
	}
	gotB, _ := j.ReadBlob(offB, len(b))
	if !bytes.Equal(gotB, b) {
		t.Errorf("ReadBlob(b) = %q, want %q", gotB, b)
	}
}

func TestAppendBlob_RefusePolicy(t *testing.T) {
	cfg := Config{
		TotalSize:       4*event.Size + 100,
		IndexRegionSize: 4 * event.Size,
		BlobPolicy:      BlobPolicyRefuse,
	}
	j := openTestJournal(t, cfg)

	if _, err := j.AppendBlob(make([]byte, 80)); err != nil {
		t.Fatalf("AppendBlob() error = %v", err)
	}
	if _, err := j.AppendBlob(make([]byte, 30)); !errors.Is(err, ErrBlobExhausted) {
		t.Errorf("AppendBlob() past capacity: error = %v, want ErrBlobExhausted", err)
	}
	// Existing data untouched after refusal.
	if j.BlobCursor() != 80 {
		t.Errorf("BlobCursor() = %d after refusal, want 80", j.BlobCursor())
	}
}

func TestAppendBlob_WrapPolicy(t *testing.T) {
	cfg := Config{
		TotalSize:       4*event.Size + 100,
		IndexRegionSize: 4 * event.Size,
		BlobPolicy:      BlobPolicyWrap,
	}
	j := openTestJournal(t, cfg)

	if _, err := j.AppendBlob(make([]byte, 80)); err != nil {
		t.Fatalf("AppendBlob() error = %v", err)
	}
	off, err := j.AppendBlob([]byte("wrapped"))
	if err != nil {
		t.Fatalf("AppendBlob() with wrap policy: error = %v", err)
	}
	if off != 0 {
		t.Errorf("wrapped blob offset = %d, want 0", off)
	}
}

func TestAppendBlob_TooLarge(t *testing.T) {
	j := openTestJournal(t, testConfig())
	if _, err := j.AppendBlob(make([]byte, j.BlobCapacity()+1)); !errors.Is(err, ErrBlobTooLarge) {
		t.Errorf("AppendBlob(oversized) error = %v, want ErrBlobTooLarge", err)
	}
}

func TestReadBlob_OutOfRange(t *testing.T) {
	j := openTestJournal(t, testConfig())

	cases := []struct {
		name string
		off  uint64
		n    int
	}{
		{"past region", j.BlobCapacity() - 1, 2},
		{"offset beyond capacity", j.BlobCapacity() + 1, 1},
		// A torn slot can carry an arbitrary PayloadOffset; off+n must not
		// wrap around and slip past the guard into the index region.
		{"offset near uint64 max", math.MaxUint64 - 4, 8},
		{"offset at uint64 max", math.MaxUint64, 1},
	}
	for _, tc := range cases {
		if _, err := j.ReadBlob(tc.off, tc.n); !errors.Is(err, ErrBlobOutOfRange) {
			t.Errorf("ReadBlob(%s): error = %v, want ErrBlobOutOfRange", tc.name, err)
		}
	}
}

func TestClose_Idempotent(t *testing.T) {
	j := openTestJournal(t, testConfig())
	if err := j.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := j.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := j.WriteSlot(0, event.Event{}); !errors.Is(err, ErrJournalClosed) {
		t.Errorf("WriteSlot after close: error = %v, want ErrJournalClosed", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.dat")
	cfg := testConfig()

	j, err := Open(path, cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	want := event.New(7, 1, 1, 0, 0x1234)
	if err := j.WriteSlot(3, want); err != nil {
		t.Fatalf("WriteSlot() error = %v", err)
	}
	if err := j.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	j2, err := Open(path, cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer j2.Close()

	got, err := j2.ReadSlot(3)
	if err != nil {
		t.Fatalf("ReadSlot() after reopen: error = %v", err)
	}
	if got != want {
		t.Errorf("slot after reopen = %+v, want %+v", got, want)
	}
}
