package llm

import (
	"tallyreport/internal/httpx"
)

var externalHTTPClient = httpx.ExternalHTTPClient()
