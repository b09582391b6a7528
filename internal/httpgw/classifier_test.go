package httpgw

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		path     string
		wantTag  Tag
		wantName string
	}{
		{"/mystream/index.m3u8.f4m", TagDynamic, "mystream"},
		{"/smooth/mystream.ism/Manifest", TagSmooth, "mystream"},
		{"/hls/mystream/index.m3u8", TagLive, "mystream"},
		{"/hls/mystream/0.ts", TagLive, "mystream"},
		{"/mystream.flv", TagProgressive, "mystream"},
		{"/audio/mystream.mp3", TagProgressive, "mystream"},
		{"/crossdomain.xml", TagInternal, ""},
		{"/clientaccesspolicy.xml", TagInternal, ""},
		{"/embed_MyStream.js", TagInternal, "mystream"},
		{"/info_MyStream.js", TagInternal, "mystream"},
		{"/unknown/path", TagNone, ""},
	}

	for _, c := range cases {
		tag, name := Classify(c.path)
		if tag != c.wantTag || name != c.wantName {
			t.Errorf("Classify(%q) = (%q, %q), want (%q, %q)", c.path, tag, name, c.wantTag, c.wantName)
		}
	}
}

func TestSanitize(t *testing.T) {
	if got := sanitize("My-Stream 01"); got != "my_stream_01" {
		t.Fatalf("sanitize produced %q", got)
	}
}
