package extract

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"g30insight/internal/bag/bagtest"
	"g30insight/internal/cdr"
	"g30insight/internal/cdr/cdrtest"
	"g30insight/internal/config"
	"g30insight/internal/table"
)

// fakeSource は決まったレコードを順に返す
type fakeSource struct {
	records []Record
	err     error // 全部返した後に返すエラー
	calls   int
}

func (f *fakeSource) Next() (Record, error) {
	f.calls++
	if len(f.records) == 0 {
		if f.err != nil {
			return Record{}, f.err
		}
		return Record{}, io.EOF
	}
	r := f.records[0]
	f.records = f.records[1:]
	return r, nil
}

// 1バイト目をそのまま値にする
func firstByte(p []byte) (float64, error) {
	if len(p) == 0 {
		return 0, errors.New("empty payload")
	}
	return float64(p[0]), nil
}

func TestExtractNoMatchingRecords(t *testing.T) {
	src := &fakeSource{records: []Record{
		{Channel: "/sensing/imu/imu_data", Payload: []byte{1}, Time: 1},
		{Channel: "/g30esli/status/extra", Payload: []byte{2}, Time: 2},
	}}
	tbl, err := Extract(src, "/g30esli/status", table.IndexName, "speed_actual", firstByte)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if tbl.Len() != 0 {
		t.Fatalf("rows = %d, want 0", tbl.Len())
	}
	if len(tbl.Columns) != 1 || tbl.Columns[0] != "speed_actual" {
		t.Fatalf("columns = %v", tbl.Columns)
	}
}

func TestExtractKeepsScanOrder(t *testing.T) {
	src := &fakeSource{records: []Record{
		{Channel: "/g30esli/status", Payload: []byte{5}, Time: 1_000_000_000},
		{Channel: "/other", Payload: []byte{9}, Time: 1_200_000_000},
		{Channel: "/g30esli/status", Payload: []byte{7}, Time: 1_500_000_000},
		{Channel: "/g30esli/status", Payload: []byte{7}, Time: 1_500_000_000},
		{Channel: "/g30esli/status", Payload: []byte{1}, Time: 3_000_000_001},
	}}
	tbl, err := Extract(src, "/g30esli/status", table.IndexName, "v", firstByte)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	wantT := []float64{1.0, 1.5, 1.5, 3.000000001}
	wantV := []float64{5, 7, 7, 1}
	v, _ := tbl.Column("v")
	if tbl.Len() != len(wantT) {
		t.Fatalf("rows = %d, want %d", tbl.Len(), len(wantT))
	}
	for i := range wantT {
		if math.Abs(tbl.Index[i]-wantT[i]) > 1e-12 || v[i] != wantV[i] {
			t.Fatalf("row %d = (%v,%v), want (%v,%v)", i, tbl.Index[i], v[i], wantT[i], wantV[i])
		}
	}
}

func TestExtractDecodeFailureAborts(t *testing.T) {
	src := &fakeSource{records: []Record{
		{Channel: "/g30esli/status", Payload: []byte{5}, Time: 1},
		{Channel: "/g30esli/status", Payload: nil, Time: 2},
		{Channel: "/g30esli/status", Payload: []byte{6}, Time: 3},
	}}
	tbl, err := Extract(src, "/g30esli/status", table.IndexName, "v", firstByte)
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if tbl != nil {
		t.Fatalf("expected no partial table")
	}
	if src.calls != 2 {
		t.Fatalf("scan continued after failure: %d calls", src.calls)
	}
}

func TestExtractSourceError(t *testing.T) {
	boom := errors.New("disk I/O error")
	src := &fakeSource{err: boom}
	if _, err := Extract(src, "/a", table.IndexName, "v", firstByte); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func statusPayload(actual float32) []byte {
	return cdrtest.NewEncoder(true).
		Int32(0).Uint32(0).Text("base_link").
		Float32(0).Float32(actual).
		Bytes()
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	bagPath := filepath.Join(dir, "run.db3")
	bagtest.Write(t, bagPath, nil, []bagtest.Message{
		{Topic: "/g30esli/status", Timestamp: 1_000_000_000, Data: statusPayload(3.5)},
		{Topic: "/sensing/imu/imu_data", Timestamp: 2_000_000_000, Data: []byte{0, 1, 0, 0}},
		{Topic: "/g30esli/status", Timestamp: 2_500_000_000, Data: statusPayload(4.25)},
	})

	cfg := config.Default().Extract
	cfg.Output = filepath.Join(dir, "speed_actual.csv")

	n, err := Run(cfg, bagPath)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}
	b, err := os.ReadFile(cfg.Output)
	if err != nil {
		t.Fatal(err)
	}
	want := "timestamp,speed_actual\n1.0,3.5\n2.5,4.25\n"
	if string(b) != want {
		t.Fatalf("got\n%s\nwant\n%s", b, want)
	}

	// 読み戻しても同じ値
	tbl, err := table.Load(cfg.Output, table.IndexName)
	if err != nil {
		t.Fatal(err)
	}
	v, _ := tbl.Column("speed_actual")
	if tbl.Index[0] != 1.0 || tbl.Index[1] != 2.5 || v[0] != 3.5 || v[1] != 4.25 {
		t.Fatalf("round trip = %v %v", tbl.Index, v)
	}
}

func TestRunEmptyTopicWritesHeader(t *testing.T) {
	dir := t.TempDir()
	bagPath := filepath.Join(dir, "run.db3")
	bagtest.Write(t, bagPath, nil, []bagtest.Message{
		{Topic: "/sensing/imu/imu_data", Timestamp: 1, Data: []byte{0, 1, 0, 0}},
	})
	cfg := config.Default().Extract
	cfg.Output = filepath.Join(dir, "speed_actual.csv")

	if n, err := Run(cfg, bagPath); err != nil || n != 0 {
		t.Fatalf("Run = %d, %v", n, err)
	}
	b, _ := os.ReadFile(cfg.Output)
	if string(b) != "timestamp,speed_actual\n" {
		t.Fatalf("got %q", b)
	}
}

func TestRunDecodeFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	bagPath := filepath.Join(dir, "run.db3")
	bagtest.Write(t, bagPath, nil, []bagtest.Message{
		{Topic: "/g30esli/status", Timestamp: 1, Data: statusPayload(1)},
		{Topic: "/g30esli/status", Timestamp: 2, Data: []byte{0, 1, 0, 0, 9}},
	})
	cfg := config.Default().Extract
	cfg.Output = filepath.Join(dir, "speed_actual.csv")

	if _, err := Run(cfg, bagPath); !errors.Is(err, cdr.ErrShortBuffer) {
		t.Fatalf("err = %v, want ErrShortBuffer", err)
	}
	if _, err := os.Stat(cfg.Output); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("output should not exist, stat err = %v", err)
	}
}

func TestRunMissingBag(t *testing.T) {
	cfg := config.Default().Extract
	cfg.Output = filepath.Join(t.TempDir(), "out.csv")
	if _, err := Run(cfg, filepath.Join(t.TempDir(), "nope.db3")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v", err)
	}
}
