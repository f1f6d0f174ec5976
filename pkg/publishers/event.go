package publishers

import "time"

// Event represents the outcome of probing one WMS endpoint.
type Event struct {
	EndpointID    string       `json:"endpoint_id"`
	EndpointName  string       `json:"endpoint_name"`
	Request       string       `json:"request"`
	RequestURL    string       `json:"request_url"`
	StatusCode    int          `json:"status_code"`
	ContentType   string       `json:"content_type,omitempty"`
	ContentLength int          `json:"content_length"`
	Service       *ServiceInfo `json:"service,omitempty"`
	Changed       bool         `json:"changed"`
	ProbedAt      time.Time    `json:"probed_at"`
}

// ServiceInfo is the service identity decoded from a capabilities response.
type ServiceInfo struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// NewEvent constructs an Event for the given endpoint + request.
func NewEvent(endpointID, endpointName, request string) Event {
	return Event{
		EndpointID:   endpointID,
		EndpointName: endpointName,
		Request:      request,
		ProbedAt:     time.Now().UTC(),
	}
}

// attributes returns the message attributes attached by queue/topic sinks.
func (e Event) attributes() map[string]string {
	attrs := map[string]string{
		"endpoint_id": e.EndpointID,
		"request":     e.Request,
	}
	if e.Changed {
		attrs["changed"] = "true"
	}
	return attrs
}
