package httpgw

import "testing"

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("curl/8.0", "10.0.0.1", "mystream", TagLive)
	b := Fingerprint("curl/8.0", "10.0.0.1", "mystream", TagLive)

	if a != b {
		t.Fatalf("expected deterministic fingerprint, got %q and %q", a, b)
	}
}

func TestFingerprintVariesByInput(t *testing.T) {
	base := Fingerprint("curl/8.0", "10.0.0.1", "mystream", TagLive)

	if other := Fingerprint("curl/8.1", "10.0.0.1", "mystream", TagLive); other == base {
		t.Fatal("expected fingerprint to change with user agent")
	}
	if other := Fingerprint("curl/8.0", "10.0.0.2", "mystream", TagLive); other == base {
		t.Fatal("expected fingerprint to change with remote host")
	}
	if other := Fingerprint("curl/8.0", "10.0.0.1", "otherstream", TagLive); other == base {
		t.Fatal("expected fingerprint to change with stream name")
	}
	if other := Fingerprint("curl/8.0", "10.0.0.1", "mystream", TagProgressive); other == base {
		t.Fatal("expected fingerprint to change with tag")
	}
}
