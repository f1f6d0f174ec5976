package wms

import "errors"

// Failure causes surfaced by the client. Match them with errors.Is.
var (
	// ErrMalformedURL reports a base or constructed URL that does not parse.
	ErrMalformedURL = errors.New("wms: malformed url")
	// ErrTransport reports a network-level failure while performing the GET.
	ErrTransport = errors.New("wms: transport failure")
	// ErrDeserialization reports a capabilities payload that could not be decoded.
	ErrDeserialization = errors.New("wms: deserialization failure")
	// ErrUnknownRequest reports a request kind outside the supported set.
	ErrUnknownRequest = errors.New("wms: unknown request kind")
)
