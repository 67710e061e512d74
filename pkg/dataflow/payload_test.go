package dataflow

import (
	"errors"
	"testing"

	"firestige.xyz/otusflow/internal/errs"
)

func TestPayloadRoundTrip(t *testing.T) {
	p := NewPayload(42)

	v, err := As[int](p)
	if err != nil {
		t.Fatalf("As[int] failed: %v", err)
	}
	if v != 42 {
		t.Errorf("want 42, got %d", v)
	}
}

func TestPayloadTypeMismatch(t *testing.T) {
	p := NewPayload("hello")

	_, err := As[int](p)
	if err == nil {
		t.Fatal("expected a type mismatch error")
	}
	if !errors.Is(err, errs.ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestPayloadZero(t *testing.T) {
	var p Payload
	if !p.IsZero() {
		t.Error("expected zero-value Payload to report IsZero")
	}
}

type customStruct struct {
	A int
	B string
}

func TestPayloadStructRoundTrip(t *testing.T) {
	in := customStruct{A: 1, B: "x"}
	p := NewPayload(in)

	out, err := As[customStruct](p)
	if err != nil {
		t.Fatalf("As[customStruct] failed: %v", err)
	}
	if out != in {
		t.Errorf("want %+v, got %+v", in, out)
	}

	// Downcasting to an unrelated struct type must fail, not panic.
	_, err = As[struct{ X int }](p)
	if !errors.Is(err, errs.ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}
