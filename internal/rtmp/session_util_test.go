package rtmp

import "testing"

func TestSanitizeStreamName(t *testing.T) {
	cases := map[string]string{
		"MyStream":      "mystream",
		"my-stream 1":   "my_stream_1",
		"already_clean": "already_clean",
	}

	for in, want := range cases {
		if got := sanitizeStreamName(in); got != want {
			t.Errorf("sanitizeStreamName(%q) = %q, want %q", in, got, want)
		}
	}
}
