package wms

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// Version is the WMS protocol version sent with every request.
	Version = "1.3.0"
	// ServiceName is the value of the service query parameter.
	ServiceName = "WMS"
)

// RequestKind selects the WMS operation a URL is built for.
type RequestKind int

const (
	RequestCapabilities RequestKind = iota + 1
	RequestMap
)

// String returns the value sent in the request query parameter.
func (k RequestKind) String() string {
	switch k {
	case RequestCapabilities:
		return "GetCapabilities"
	case RequestMap:
		return "GetMap"
	default:
		return fmt.Sprintf("RequestKind(%d)", int(k))
	}
}

// ParseRequestKind maps an operation name (case-insensitive) to its RequestKind.
func ParseRequestKind(s string) (RequestKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "getcapabilities", "capabilities":
		return RequestCapabilities, nil
	case "getmap", "map":
		return RequestMap, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRequest, s)
	}
}

type queryParam struct {
	key   string
	value string
}

// params returns the query parameters for the kind, in the order they are appended.
// GetMap carries no service parameter and none of the map parameters.
func (k RequestKind) params() ([]queryParam, error) {
	switch k {
	case RequestCapabilities:
		return []queryParam{
			{key: "version", value: Version},
			{key: "service", value: ServiceName},
			{key: "request", value: k.String()},
		}, nil
	case RequestMap:
		return []queryParam{
			{key: "version", value: Version},
			{key: "request", value: k.String()},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownRequest, k)
	}
}

// BuildURL appends the query parameters for kind to base. Parameters already present
// on base are kept as-is and precede the appended ones.
func BuildURL(base string, kind RequestKind) (*url.URL, error) {
	u, err := parseBase(base)
	if err != nil {
		return nil, err
	}

	params, err := kind.params()
	if err != nil {
		return nil, err
	}

	var query strings.Builder
	query.WriteString(u.RawQuery)
	for _, p := range params {
		if query.Len() > 0 && !strings.HasSuffix(query.String(), "&") {
			query.WriteByte('&')
		}
		query.WriteString(url.QueryEscape(p.key))
		query.WriteByte('=')
		query.WriteString(url.QueryEscape(p.value))
	}

	built := *u
	built.RawQuery = query.String()
	built.ForceQuery = false

	reparsed, err := url.Parse(built.String())
	if err != nil {
		return nil, fmt.Errorf("%w: reparse %q: %w", ErrMalformedURL, built.String(), err)
	}
	return reparsed, nil
}

func parseBase(base string) (*url.URL, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: base url is empty", ErrMalformedURL)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute url with scheme and host", ErrMalformedURL, base)
	}
	return u, nil
}
