package auth

import (
	"strings"

	"github.com/mileusna/useragent"
)

const unknownDevice = "Unknown device"

// DeviceSummary condenses a User-Agent header into the short label stored on
// a token family, e.g. "Firefox 120.0 on Linux (Desktop)".
func DeviceSummary(userAgentString string) string {
	if strings.TrimSpace(userAgentString) == "" {
		return unknownDevice
	}

	ua := useragent.Parse(userAgentString)

	browser := ua.Name
	if browser == "" {
		browser = "Unknown browser"
	} else if ua.Version != "" {
		browser += " " + ua.Version
	}

	os := ua.OS
	if os == "" {
		os = "unknown OS"
	} else if ua.OSVersion != "" {
		os += " " + ua.OSVersion
	}

	deviceType := "Desktop"
	switch {
	case ua.Bot:
		deviceType = "Bot"
	case ua.Tablet:
		deviceType = "Tablet"
	case ua.Mobile:
		deviceType = "Mobile"
	}

	summary := browser + " on " + os + " (" + deviceType + ")"
	if len(summary) > 255 {
		summary = summary[:255]
	}
	return summary
}
