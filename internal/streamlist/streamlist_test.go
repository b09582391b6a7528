package streamlist

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestDocument(t *testing.T, body string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "streamlist")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing test streamlist: %v", err)
	}
	t.Setenv("STREAM_LIST_PATH", path)
}

func TestPathDefault(t *testing.T) {
	t.Setenv("STREAM_LIST_PATH", "")
	if Path() != defaultPath {
		t.Fatalf("expected default path, got %q", Path())
	}
}

func TestReadAndLookup(t *testing.T) {
	writeTestDocument(t, `{
		"streams": {
			"mystream": {"meta": {"video": {"width": 1280, "height": 720}}}
		},
		"config": {"protocols": [{"connector": "RTMP", "port": 1935}]}
	}`)

	stream, doc, err := Lookup("mystream")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if stream == nil {
		t.Fatal("expected stream to be found")
	}
	if stream.Meta.Video.Width != 1280 || stream.Meta.Video.Height != 720 {
		t.Fatalf("unexpected video meta: %+v", stream.Meta.Video)
	}
	if len(doc.Config.Protocols) != 1 || doc.Config.Protocols[0].Connector != "RTMP" {
		t.Fatalf("unexpected protocols: %+v", doc.Config.Protocols)
	}

	missing, _, err := Lookup("nosuchstream")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for a stream that does not exist")
	}
}

func TestReadMissingFile(t *testing.T) {
	t.Setenv("STREAM_LIST_PATH", filepath.Join(t.TempDir(), "does-not-exist"))
	if _, err := Read(); err == nil {
		t.Fatal("expected an error reading a missing stream-list file")
	}
}
