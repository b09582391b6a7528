// Package streamlist reads the JSON document describing configured streams
// and protocols, produced by an external collaborator (§6).
package streamlist

import (
	"encoding/json"
	"os"
)

const defaultPath = "/tmp/mist/streamlist"

// Meta is the subset of a stream's metadata the inline responder needs.
type Meta struct {
	Video struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"video"`
}

// Stream is one entry under the document's "streams" key.
type Stream struct {
	Meta Meta `json:"meta"`
}

// Protocol is one entry under the document's "config.protocols" key.
type Protocol struct {
	Connector string `json:"connector"`
	Port      int    `json:"port"`
}

// Document is the full parsed shape of the stream-list file.
type Document struct {
	Streams map[string]Stream `json:"streams"`
	Config  struct {
		Protocols []Protocol `json:"protocols"`
	} `json:"config"`
}

// Path returns the configured stream-list path, defaulting to
// /tmp/mist/streamlist.
func Path() string {
	if p := os.Getenv("STREAM_LIST_PATH"); p != "" {
		return p
	}
	return defaultPath
}

// Read loads and parses the stream-list document from disk. The base spec
// re-reads it on every request (no in-memory cache); a "reload" admin
// command (§ HTTP admin commands) exists only to acknowledge a future
// cache layer this spec does not otherwise add.
func Read() (*Document, error) {
	data, err := os.ReadFile(Path())
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Lookup reads the document and returns the named stream, if present.
func Lookup(name string) (*Stream, *Document, error) {
	doc, err := Read()
	if err != nil {
		return nil, nil, err
	}
	s, ok := doc.Streams[name]
	if !ok {
		return nil, doc, nil
	}
	return &s, doc, nil
}
