package plansaver_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/royalcat/spatialsample/plansaver"
	"github.com/royalcat/spatialsample/samplemodel"
	"google.golang.org/protobuf/encoding/protowire"
)

var discard = slog.New(slog.DiscardHandler)

func testPlan() plansaver.Plan {
	return plansaver.Plan{
		Metadata: plansaver.Metadata{
			Version:     1,
			Seed:        1 << 40,
			Method:      "poisson",
			Size:        2,
			DateCreated: time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC),
		},
		Candidates: []orb.Point{{0, 0}, {1.5, -2.25}, {3, 4}},
		Sample:     []orb.Point{{1.5, -2.25}, {3, 4}},
	}
}

func TestSaveLoad(t *testing.T) {
	plan := testPlan()

	var buf bytes.Buffer
	if err := plansaver.Save(plan, &buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("SSPL\x01\x00\x00\x00")) {
		t.Fatalf("unexpected header % x", buf.Bytes()[:8])
	}

	got, err := plansaver.Load(&buf, discard)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(plan, got); diff != "" {
		t.Fatalf("plan changed (-want +got):\n%s", diff)
	}
}

func TestSaveLoadFile(t *testing.T) {
	dir := t.TempDir()
	plan := testPlan()

	for _, name := range []string{"plan.sspl", "plan.sspl.zst"} {
		path := filepath.Join(dir, name)
		if err := plansaver.SaveToFile(plan, path); err != nil {
			t.Fatal(err)
		}
		got, err := plansaver.LoadFromFile(path, discard)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(plan, got); diff != "" {
			t.Fatalf("%s: plan changed (-want +got):\n%s", name, diff)
		}
	}
}

func TestLoadSkipsUnknownFields(t *testing.T) {
	var buf bytes.Buffer
	if err := plansaver.Save(testPlan(), &buf); err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()
	b = protowire.AppendTag(b, 15, protowire.BytesType)
	b = protowire.AppendString(b, "from a newer writer")
	b = protowire.AppendTag(b, 16, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)

	got, err := plansaver.Load(bytes.NewReader(b), discard)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(testPlan(), got); diff != "" {
		t.Fatalf("plan changed (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	level := func(l uint32) []byte {
		return binary.LittleEndian.AppendUint32([]byte("SSPL"), l)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"wrong magic", []byte("RGC1\x01\x00\x00\x00")},
		{"wrong level", level(2)},
		{"truncated points", append(level(1), 0x12, 0x10, 0x00)},
		{"odd points length", append(level(1), 0x12, 0x08, 0, 0, 0, 0, 0, 0, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := plansaver.Load(bytes.NewReader(tt.data), discard)
			if !errors.Is(err, samplemodel.ErrInvalidArgument) {
				t.Fatalf("expected invalid argument, got %v", err)
			}
		})
	}

	if _, err := plansaver.Load(bytes.NewReader([]byte("SS")), discard); err == nil {
		t.Fatal("expected an error for a short header")
	}
}

func TestEmptyPlan(t *testing.T) {
	var buf bytes.Buffer
	if err := plansaver.Save(plansaver.Plan{}, &buf); err != nil {
		t.Fatal(err)
	}
	got, err := plansaver.Load(&buf, discard)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Candidates) != 0 || len(got.Sample) != 0 || !got.DateCreated.IsZero() {
		t.Fatalf("expected an empty plan, got %+v", got)
	}
}
