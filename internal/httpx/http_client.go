package httpx

import (
	"net/http"
	"time"
)

const DefaultExternalTimeout = 90 * time.Second

// Shared by the Slack and Anthropic clients so one setting bounds every
// outbound call.
var externalHTTPClient = &http.Client{
	Timeout: DefaultExternalTimeout,
}

func ExternalHTTPClient() *http.Client {
	return externalHTTPClient
}

// ConfigureExternalHTTPClient sets the outbound timeout and returns the
// value applied. Zero or negative keeps the default.
func ConfigureExternalHTTPClient(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		timeout = DefaultExternalTimeout
	}
	externalHTTPClient.Timeout = timeout
	return timeout
}
