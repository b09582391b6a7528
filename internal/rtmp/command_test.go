package rtmp

import "testing"

func TestEncodeDecodeCommandRoundTrip(t *testing.T) {
	status := StatusObject("status", "NetStream.Play.Start", "Started playing stream.")
	encoded := EncodeCommand("onStatus", 0, status)

	cmd := DecodeCommand(encoded)

	if cmd.Name != "onStatus" {
		t.Fatalf("Name = %q, want onStatus", cmd.Name)
	}
	if cmd.TransactionID != 0 {
		t.Fatalf("TransactionID = %v, want 0", cmd.TransactionID)
	}

	info := cmd.Arg(2)
	if info.Prop("level").Str() != "status" {
		t.Fatalf("level = %q, want status", info.Prop("level").Str())
	}
	if info.Prop("code").Str() != "NetStream.Play.Start" {
		t.Fatalf("code = %q", info.Prop("code").Str())
	}
}

func TestStatusObjectOmitsEmptyDescription(t *testing.T) {
	info := StatusObject("error", "NetStream.Play.StreamNotFound", "")

	if !info.Prop("description").IsUndefined() {
		t.Fatal("expected no description field when description is empty")
	}
}
