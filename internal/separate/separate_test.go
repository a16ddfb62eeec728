package separate

import (
	"archive/zip"
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestFirstSeenOrder(t *testing.T) {
	segs := []SegmentRequest{
		{Speaker: 3, StartTime: 0, EndTime: 1},
		{Speaker: 1, StartTime: 1, EndTime: 2},
		{Speaker: 3, StartTime: 2, EndTime: 3},
	}
	order := firstSeenOrder(segs)
	if order[3] != 0 {
		t.Fatalf("expected speaker 3 first-seen index 0, got %d", order[3])
	}
	if order[1] != 1 {
		t.Fatalf("expected speaker 1 first-seen index 1, got %d", order[1])
	}
}

func TestTempSet_CleanupRemovesTrackedFiles(t *testing.T) {
	f1, err := os.CreateTemp("", "ts1-*")
	if err != nil {
		t.Fatal(err)
	}
	f1.Close()
	f2, err := os.CreateTemp("", "ts2-*")
	if err != nil {
		t.Fatal(err)
	}
	f2.Close()

	ts := &tempSet{}
	ts.track(f1.Name())
	ts.track(f2.Name())
	ts.cleanup()

	if _, err := os.Stat(f1.Name()); !os.IsNotExist(err) {
		t.Fatal("expected f1 to be removed")
	}
	if _, err := os.Stat(f2.Name()); !os.IsNotExist(err) {
		t.Fatal("expected f2 to be removed")
	}
}

func TestTempSet_UntrackSurvivesCleanup(t *testing.T) {
	f, err := os.CreateTemp("", "ts-untrack-*")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	defer os.Remove(f.Name())

	ts := &tempSet{}
	ts.track(f.Name())
	ts.untrack(f.Name())
	ts.cleanup()

	if _, err := os.Stat(f.Name()); err != nil {
		t.Fatal("expected untracked file to survive cleanup")
	}
}

func TestBuildArchive_EntryNamesMatchSpec(t *testing.T) {
	f, err := os.CreateTemp("", "clip-*.wav")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	f.WriteString("fake-wav-bytes")
	f.Close()

	outputs := []Output{
		{Speaker: 0, StartTime: 0, EndTime: 7.4, AudioPath: f.Name()},
	}
	data, err := buildArchive(outputs)
	if err != nil {
		t.Fatal(err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if len(zr.File) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(zr.File))
	}
	if zr.File[0].Name != "Speaker 1_0.00-7.40.wav" {
		t.Fatalf("unexpected entry name: %s", zr.File[0].Name)
	}
}

func TestReadCappedLastLine_PicksFinalNonEmptyLine(t *testing.T) {
	r := strings.NewReader("Loading model...\n{\"success\":true,\"output_paths\":[\"a.wav\"]}\n")
	line, err := readCappedLastLine(r, 1024)
	if err != nil {
		t.Fatal(err)
	}
	if line != `{"success":true,"output_paths":["a.wav"]}` {
		t.Fatalf("unexpected last line: %q", line)
	}
}

func TestReadCappedLastLine_OverCapFails(t *testing.T) {
	r := strings.NewReader(strings.Repeat("x", 100) + "\n")
	_, err := readCappedLastLine(r, 10)
	if err == nil {
		t.Fatal("expected cap-exceeded error")
	}
}
