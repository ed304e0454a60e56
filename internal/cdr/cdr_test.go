package cdr

import (
	"errors"
	"testing"

	"g30insight/internal/cdr/cdrtest"
)

var statusSchema = []string{
	"header.stamp.sec:int32",
	"header.stamp.nanosec:uint32",
	"header.frame_id:string",
	"status.speed.ref:float32",
	"status.speed.actual:float32",
}

func statusPayload(little bool, frame string, ref, actual float32) []byte {
	return cdrtest.NewEncoder(little).
		Int32(1700000000).
		Uint32(250000000).
		Text(frame).
		Float32(ref).
		Float32(actual).
		Bytes()
}

func TestFloatBothByteOrders(t *testing.T) {
	schema, err := ParseSchema(statusSchema)
	if err != nil {
		t.Fatalf("ParseSchema: %v", err)
	}
	for _, little := range []bool{true, false} {
		// frame_id の長さで後続フィールドの整列位置が変わる
		for _, frame := range []string{"", "b", "base_link", "abc"} {
			payload := statusPayload(little, frame, 1.5, 3.5)
			got, err := schema.Float(payload, "status.speed.actual")
			if err != nil {
				t.Fatalf("little=%v frame=%q: %v", little, frame, err)
			}
			if got != 3.5 {
				t.Fatalf("little=%v frame=%q: got %v, want 3.5", little, frame, got)
			}
			sec, err := schema.Float(payload, "header.stamp.sec")
			if err != nil || sec != 1700000000 {
				t.Fatalf("sec = %v, %v", sec, err)
			}
		}
	}
}

func TestFloat64Alignment(t *testing.T) {
	schema, err := ParseSchema([]string{"flag:uint8", "value:float64"})
	if err != nil {
		t.Fatal(err)
	}
	payload := cdrtest.NewEncoder(true).Uint8(1).Float64(-0.0025).Bytes()
	if len(payload) != 4+16 {
		t.Fatalf("payload length %d, want 20", len(payload))
	}
	got, err := schema.Float(payload, "value")
	if err != nil || got != -0.0025 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestFloatErrors(t *testing.T) {
	schema, _ := ParseSchema(statusSchema)
	full := statusPayload(true, "base_link", 0, 4.25)

	if _, err := schema.Float(full[:len(full)-2], "status.speed.actual"); !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("truncated: err = %v", err)
	}
	if _, err := schema.Float([]byte{0, 1}, "status.speed.actual"); !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("no header: err = %v", err)
	}
	if _, err := schema.Float(full, "status.speed.target"); !errors.Is(err, ErrNoField) {
		t.Fatalf("unknown field: err = %v", err)
	}
	if _, err := schema.Float(full, "header.frame_id"); !errors.Is(err, ErrNotNumeric) {
		t.Fatalf("string field: err = %v", err)
	}
}

func TestDecoder(t *testing.T) {
	schema, _ := ParseSchema(statusSchema)
	if _, err := schema.Decoder("status.speed.missing"); !errors.Is(err, ErrNoField) {
		t.Fatalf("err = %v", err)
	}
	if _, err := schema.Decoder("header.frame_id"); !errors.Is(err, ErrNotNumeric) {
		t.Fatalf("err = %v", err)
	}
	decode, err := schema.Decoder("status.speed.actual")
	if err != nil {
		t.Fatal(err)
	}
	got, err := decode(statusPayload(true, "x", 0, 4.25))
	if err != nil || got != 4.25 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestParseSchema(t *testing.T) {
	tests := []struct {
		in      []string
		wantErr bool
	}{
		{[]string{"a:int32", " b : float64 "}, false},
		{[]string{"a"}, true},
		{[]string{":int32"}, true},
		{[]string{"a:complex128"}, true},
	}
	for _, tt := range tests {
		_, err := ParseSchema(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseSchema(%v) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}
