package httpgw

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/brasswatch/streamconnector/internal/streamlist"
)

//go:embed assets/embed.js
var embedJS string

const crossdomainXML = `<?xml version="1.0"?><!DOCTYPE cross-domain-policy SYSTEM "http://www.adobe.com/xml/dtds/cross-domain-policy.dtd"><cross-domain-policy><allow-access-from domain="*" /><site-control permitted-cross-domain-policies="all"/></cross-domain-policy>`

const clientAccessPolicyXML = `<?xml version="1.0" encoding="utf-8"?><access-policy><cross-domain-access><policy><allow-from http-methods="*" http-request-headers="*"><domain uri="*"/></allow-from><grant-to><resource path="/" include-subpaths="true"/></grant-to></policy></cross-domain-access></access-policy>`

type sourceEntry struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type infoResponse struct {
	Width  int           `json:"width,omitempty"`
	Height int           `json:"height,omitempty"`
	Source []sourceEntry `json:"source,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// ServeCrossdomain serves the fixed crossdomain.xml payload (§4.2).
func ServeCrossdomain(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/xml")
	w.Header().Set("Server", serverHeader)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(crossdomainXML)) //nolint:errcheck
}

// ServeClientAccessPolicy serves the fixed clientaccesspolicy.xml payload.
func ServeClientAccessPolicy(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/xml")
	w.Header().Set("Server", serverHeader)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(clientAccessPolicyXML)) //nolint:errcheck
}

// ServeInfo serves info_<stream>.js (isEmbed=false) or embed_<stream>.js
// (isEmbed=true), per §4.2.
func ServeInfo(w http.ResponseWriter, host string, stream string, isEmbed bool) {
	if idx := strings.IndexByte(host, ':'); idx >= 0 {
		host = host[:idx]
	}

	resp := buildInfoResponse(host, stream)

	encoded, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var body strings.Builder
	body.WriteString("// Generating info code for stream " + stream + "\n\n")
	body.WriteString("if (!mistvideo){var mistvideo = {};}\n")
	body.WriteString("mistvideo['" + stream + "'] = " + string(encoded) + ";\n")

	if isEmbed && resp.Error == "" {
		body.WriteString("\n(")
		body.WriteString(strings.TrimSuffix(strings.TrimSpace(embedJS), ";"))
		body.WriteString("(\"" + stream + "\"));\n")
	}

	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Server", serverHeader)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body.String())) //nolint:errcheck
}

func buildInfoResponse(host, stream string) infoResponse {
	doc, err := streamlist.Read()
	if err != nil {
		return infoResponse{Error: "The specified stream is not available on this server."}
	}

	s, ok := doc.Streams[stream]
	if !ok || len(doc.Config.Protocols) == 0 {
		return infoResponse{Error: "The specified stream is not available on this server."}
	}

	resp := infoResponse{Width: s.Meta.Video.Width, Height: s.Meta.Video.Height}

	for _, proto := range doc.Config.Protocols {
		if proto.Connector == "RTMP" {
			resp.Source = append(resp.Source, sourceEntry{Type: "rtmp", URL: urlFor("rtmp", host, proto.Port, "/play/"+stream)})
		}
	}
	for _, proto := range doc.Config.Protocols {
		if proto.Connector == "HTTP" {
			resp.Source = append(resp.Source, sourceEntry{Type: "f4v", URL: urlFor("http", host, proto.Port, "/"+stream+"/manifest.f4m")})
		}
	}
	for _, proto := range doc.Config.Protocols {
		if proto.Connector == "HTTP" {
			resp.Source = append(resp.Source, sourceEntry{Type: "flv", URL: urlFor("http", host, proto.Port, "/"+stream+".flv")})
		}
	}

	return resp
}

func urlFor(scheme, host string, port int, path string) string {
	return scheme + "://" + host + ":" + strconv.Itoa(port) + path
}
