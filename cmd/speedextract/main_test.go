package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v2"

	"g30insight/internal/bag/bagtest"
	"g30insight/internal/cdr/cdrtest"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func run(t *testing.T, args ...string) (int, error) {
	t.Helper()
	code := 0
	origExiter, origWriter := cli.OsExiter, cli.ErrWriter
	cli.OsExiter = func(c int) { code = c }
	cli.ErrWriter = io.Discard
	t.Cleanup(func() { cli.OsExiter, cli.ErrWriter = origExiter, origWriter })

	err := newApp().Run(append([]string{"speedextract"}, args...))
	return code, err
}

func TestExtractWritesFixedOutput(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	payload := func(v float32) []byte {
		return cdrtest.NewEncoder(true).Int32(0).Uint32(0).Text("").Float32(0).Float32(v).Bytes()
	}
	bagtest.Write(t, "rosbag2_0.db3", nil, []bagtest.Message{
		{Topic: "/g30esli/status", Timestamp: 1_000_000_000, Data: payload(3.5)},
		{Topic: "/g30esli/status", Timestamp: 2_500_000_000, Data: payload(4.25)},
	})

	if code, err := run(t, "rosbag2_0.db3"); err != nil || code != 0 {
		t.Fatalf("code = %d, err = %v", code, err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "speed_actual.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "timestamp,speed_actual\n1.0,3.5\n2.5,4.25\n" {
		t.Fatalf("got %q", b)
	}
}

func TestMissingArgument(t *testing.T) {
	chdir(t, t.TempDir())
	code, err := run(t)
	if err == nil || code != 2 {
		t.Fatalf("code = %d, err = %v", code, err)
	}
}

func TestMissingBag(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := run(t, "nope.db3"); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := os.Stat("speed_actual.csv"); err == nil {
		t.Fatalf("no output expected")
	}
}
