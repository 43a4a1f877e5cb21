// Package device derives session device metadata from the User-Agent header.
package device

import (
	"github.com/mssola/useragent"

	"virasat/internal/auth/models"
)

// FromUserAgent parses a raw User-Agent string. Unknown agents yield an
// empty browser/OS rather than an error.
func FromUserAgent(rawUA, clientIP string) models.Device {
	ua := useragent.New(rawUA)
	browser, version := ua.Browser()
	if version != "" {
		browser = browser + " " + version
	}
	return models.Device{
		Browser:  browser,
		OS:       ua.OS(),
		Mobile:   ua.Mobile(),
		ClientIP: clientIP,
	}
}
