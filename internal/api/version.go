// Package api provides the HTTP handlers that sit beside the dispatcher:
// health and status reporting on the public listener and the internal
// admin API.
package api

// APIVersion represents the current API version supported by this server.
// Clients use the api_version field of /status to detect capabilities.
const (
	// APIVersion1 is the original API version.
	APIVersion1 = 1

	// CurrentAPIVersion is the highest API version supported by this server.
	CurrentAPIVersion = APIVersion1
)

// APICapabilities describes the features available at each API version.
var APICapabilities = map[int][]string{
	APIVersion1: {
		"dispatch",
		"sessions",
		"basic-auth",
		"bearer-token",
		"route-listing",
	},
}

// StatusResponse is the response from the /status endpoint.
type StatusResponse struct {
	Status       string   `json:"status"`
	Service      string   `json:"service"`
	Prefix       string   `json:"prefix,omitempty"`
	Routes       int      `json:"routes"`
	APIVersion   int      `json:"api_version"`
	Capabilities []string `json:"capabilities,omitempty"`
	Version      string   `json:"version,omitempty"`
}
