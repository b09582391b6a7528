package rtmp

import "testing"

func TestBuildParseFLVTagRoundTrip(t *testing.T) {
	payload := []byte{0xAF, 0x01, 0x02, 0x03}

	built := BuildFLVTag(TypeAudio, 12345, payload)

	tag, err := ParseFLVTag(built)
	if err != nil {
		t.Fatalf("ParseFLVTag returned error: %v", err)
	}
	if tag.Type != TypeAudio {
		t.Fatalf("Type = %d, want %d", tag.Type, TypeAudio)
	}
	if tag.Timestamp != 12345 {
		t.Fatalf("Timestamp = %d, want 12345", tag.Timestamp)
	}
	if string(tag.Payload) != string(payload) {
		t.Fatalf("Payload = %v, want %v", tag.Payload, payload)
	}
}

func TestParseFLVTagTooShort(t *testing.T) {
	if _, err := ParseFLVTag([]byte{0x01, 0x02}); err == nil {
		t.Fatal("expected an error for a truncated tag")
	}
}
