package wms

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"mime"
	"strings"
)

// Capabilities is the part of a GetCapabilities document this client models.
type Capabilities struct {
	Service Service `json:"service" xml:"Service"`
}

// Service identifies the WMS service.
type Service struct {
	Name  string `json:"name" xml:"Name"`
	Title string `json:"title" xml:"Title"`
}

// rawCapabilities tracks field presence so missing fields can be rejected.
// The root XML element is left unconstrained to accept both WMS_Capabilities
// and the 1.1.x WMT_MS_Capabilities.
type rawCapabilities struct {
	Service *rawService `json:"service" xml:"Service"`
}

type rawService struct {
	Name  *string `json:"name" xml:"Name"`
	Title *string `json:"title" xml:"Title"`
}

// DecodeCapabilities decodes a JSON capabilities document.
func DecodeCapabilities(data []byte) (Capabilities, error) {
	var raw rawCapabilities
	if err := json.Unmarshal(data, &raw); err != nil {
		return Capabilities{}, fmt.Errorf("%w: decode json: %w", ErrDeserialization, err)
	}
	return raw.resolve()
}

// DecodeCapabilitiesXML decodes a WMS XML capabilities document.
func DecodeCapabilitiesXML(data []byte) (Capabilities, error) {
	var raw rawCapabilities
	if err := xml.Unmarshal(data, &raw); err != nil {
		return Capabilities{}, fmt.Errorf("%w: decode xml: %w", ErrDeserialization, err)
	}
	return raw.resolve()
}

// ParseCapabilities decodes the body of resp as XML or JSON, chosen from the
// Content-Type header or, failing that, from the first non-blank byte.
func ParseCapabilities(resp Response) (Capabilities, error) {
	if resp == nil {
		return Capabilities{}, fmt.Errorf("%w: nil response", ErrDeserialization)
	}

	body := resp.Body()
	if isXMLPayload(resp.Header().Get("Content-Type"), body) {
		return DecodeCapabilitiesXML(body)
	}
	return DecodeCapabilities(body)
}

func (r rawCapabilities) resolve() (Capabilities, error) {
	switch {
	case r.Service == nil:
		return Capabilities{}, fmt.Errorf("%w: missing field service", ErrDeserialization)
	case r.Service.Name == nil:
		return Capabilities{}, fmt.Errorf("%w: missing field service.name", ErrDeserialization)
	case r.Service.Title == nil:
		return Capabilities{}, fmt.Errorf("%w: missing field service.title", ErrDeserialization)
	}

	return Capabilities{
		Service: Service{
			Name:  *r.Service.Name,
			Title: *r.Service.Title,
		},
	}, nil
}

func isXMLPayload(contentType string, body []byte) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch {
		case strings.HasSuffix(mediaType, "xml"):
			return true
		case strings.HasSuffix(mediaType, "json"):
			return false
		}
	}

	trimmed := bytes.TrimLeft(body, " \t\r\n\ufeff")
	return len(trimmed) > 0 && trimmed[0] == '<'
}
