package httpgw

import "testing"

func TestPoolEvictRemovesEntry(t *testing.T) {
	p := NewPool()
	p.entries["fp1"] = &entry{}

	p.evict("fp1")

	if _, found := p.entries["fp1"]; found {
		t.Fatal("expected evict to remove the entry")
	}
}

func TestPoolEvictUnknownFingerprintIsNoop(t *testing.T) {
	p := NewPool()
	p.evict("does-not-exist")
}

func TestPoolDetachReplacesBridge(t *testing.T) {
	p := NewPool()
	original := &entry{}
	p.entries["fp1"] = original

	p.detach("fp1")

	if p.entries["fp1"].bridge == nil {
		t.Fatal("expected detach to leave a fresh, non-nil bridge in place")
	}
}

func TestHttpBackendPath(t *testing.T) {
	if got := httpBackendPath(TagLive); got != "/tmp/mist/http_live" {
		t.Fatalf("httpBackendPath = %q", got)
	}
}
