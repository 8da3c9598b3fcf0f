package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/causetlabs/causet/internal/bytesize"
	"github.com/causetlabs/causet/pkg/config"
	"github.com/causetlabs/causet/pkg/event"
	"github.com/causetlabs/causet/pkg/ipc"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	tmpDir := t.TempDir()

	cfg := config.GetDefaultConfig()
	cfg.Journal.Path = filepath.Join(tmpDir, "journal")
	cfg.Journal.TotalSize = 1 * bytesize.MiB
	cfg.Journal.IndexRegionSize = 32 * bytesize.KiB
	cfg.Ingest.BindAddr = "127.0.0.1:0"
	cfg.Ingest.Depth = 4
	cfg.IPC.SocketPath = filepath.Join(tmpDir, "causet.sock")
	return cfg
}

// sendEvent fires one well-formed datagram at the server's ingest socket.
func sendEvent(t *testing.T, addr net.Addr, payload []byte) {
	t.Helper()
	conn, err := net.Dial("udp", addr.String())
	if err != nil {
		t.Fatalf("dial ingest: %v", err)
	}
	defer conn.Close()

	hdr := event.New(0, 7, 3, 0, 0)
	pkt := make([]byte, event.Size+len(payload))
	if err := hdr.Marshal(pkt[:event.Size]); err != nil {
		t.Fatalf("marshal header: %v", err)
	}
	copy(pkt[event.Size:], payload)

	if _, err := conn.Write(pkt); err != nil {
		t.Fatalf("send datagram: %v", err)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestServerLifecycle(t *testing.T) {
	cfg := testConfig(t)

	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() { serveDone <- s.Serve(ctx) }()

	// Attach an observer before producing so it sees the notification.
	client, err := ipc.Dial(cfg.IPC.SocketPath)
	if err != nil {
		t.Fatalf("ipc.Dial() error = %v", err)
	}
	defer client.Close()

	sendEvent(t, s.IngestAddr(), []byte("hello"))

	waitFor(t, func() bool { return s.View().Head() == 1 }, "event never journaled")

	nextCtx, nextCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer nextCancel()
	logical, err := client.Next(nextCtx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if logical != 0 {
		t.Errorf("first committed logical index = %d, want 0", logical)
	}

	ev, err := s.View().ReadEvent(0)
	if err != nil {
		t.Fatalf("ReadEvent(0) error = %v", err)
	}
	if ev.LamportTS != 1 || ev.NodeID != 7 || ev.StreamID != 3 {
		t.Errorf("journaled event = %+v", ev)
	}

	cancel()
	select {
	case err := <-serveDone:
		if err != nil && err != context.Canceled {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestStatusEndpoint(t *testing.T) {
	cfg := testConfig(t)

	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveDone := make(chan error, 1)
	go func() { serveDone <- s.Serve(ctx) }()

	sendEvent(t, s.IngestAddr(), []byte("status probe"))
	waitFor(t, func() bool { return s.View().Head() == 1 }, "event never journaled")

	rec := httptest.NewRecorder()
	s.newRouter().ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))

	if rec.Code != 200 {
		t.Fatalf("GET /status = %d", rec.Code)
	}
	var status Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Head != 1 || status.Tail != 0 {
		t.Errorf("status window = [%d, %d), want [0, 1)", status.Tail, status.Head)
	}
	if status.Capacity != cfg.Journal.IndexRegionSize.Uint64()/event.Size {
		t.Errorf("status capacity = %d", status.Capacity)
	}
	if status.Counters.EventsTotal != 1 {
		t.Errorf("status events_total = %d, want 1", status.Counters.EventsTotal)
	}
	if status.InstanceID == "" {
		t.Error("status missing instance id")
	}

	cancel()
	<-serveDone
}
