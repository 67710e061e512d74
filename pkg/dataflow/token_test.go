package dataflow

import "testing"

func TestNewReadyTokenDefaultsToConsume(t *testing.T) {
	msg := NewDataMessage(NewPayload(1), Timestamp{})
	tok := NewReadyToken(msg)

	if !tok.IsReady() {
		t.Fatal("expected token to be ready")
	}
	if tok.Action != Consume {
		t.Errorf("expected default action Consume, got %v", tok.Action)
	}
}

func TestSetActionMutatesInPlace(t *testing.T) {
	tok := NewReadyToken(NewDataMessage(NewPayload(1), Timestamp{}))
	tok.SetAction(Drop)

	if tok.Action != Drop {
		t.Errorf("expected Drop, got %v", tok.Action)
	}
}

func TestPendingTokenIsNotReady(t *testing.T) {
	tok := NewPendingToken()
	if tok.IsReady() {
		t.Error("expected pending token to not be ready")
	}
}
