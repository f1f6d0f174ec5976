package endpoints

import "strings"

// ConfigString returns the trimmed string value for key from endpoint.Config or a fallback.
func ConfigString(ep Endpoint, key, fallback string) string {
	if ep.Config != nil {
		if raw, ok := ep.Config[key]; ok {
			if val, ok := raw.(string); ok {
				if trimmed := strings.TrimSpace(val); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return fallback
}

const (
	ConfigUserAgentKey      = "user_agent"
	ConfigAcceptKey         = "accept"
	ConfigAcceptLanguageKey = "accept_language"
	ConfigAuthorizationKey  = "authorization"
)

// Headers builds request headers from an endpoint config (skips empty values).
// An endpoint without config sends no extra headers.
func Headers(ep Endpoint) map[string]string {
	headers := make(map[string]string, 4)

	if v := ConfigString(ep, ConfigUserAgentKey, ""); v != "" {
		headers["User-Agent"] = v
	}
	if v := ConfigString(ep, ConfigAcceptKey, ""); v != "" {
		headers["Accept"] = v
	}
	if v := ConfigString(ep, ConfigAcceptLanguageKey, ""); v != "" {
		headers["Accept-Language"] = v
	}
	if v := ConfigString(ep, ConfigAuthorizationKey, ""); v != "" {
		headers["Authorization"] = v
	}

	return headers
}
