package sessions

import (
	"strings"

	"github.com/mssola/useragent"
)

const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceBot     = "bot"
	unknown       = "unknown"
)

// ClientMetadata describes the client a session was created from.
type ClientMetadata struct {
	IPAddress string
	UserAgent string
	Browser   string
	Device    string
	OS        string
}

// ParseClientMetadata derives browser, device class and OS from a User-Agent header.
func ParseClientMetadata(ip, userAgent string) ClientMetadata {
	md := ClientMetadata{
		IPAddress: ip,
		UserAgent: userAgent,
		Browser:   unknown,
		Device:    unknown,
		OS:        unknown,
	}
	if strings.TrimSpace(userAgent) == "" {
		return md
	}

	ua := useragent.New(userAgent)
	if name, version := ua.Browser(); name != "" {
		md.Browser = strings.TrimSpace(name + " " + version)
	}
	if os := ua.OS(); os != "" {
		md.OS = os
	}

	switch {
	case ua.Bot():
		md.Device = DeviceBot
	case ua.Mobile():
		md.Device = DeviceMobile
	default:
		md.Device = DeviceDesktop
	}
	return md
}
