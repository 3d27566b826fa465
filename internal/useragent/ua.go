package useragent

import "strings"

// Classification is the coarse result of parsing a User-Agent string.
type Classification struct {
	Browser        string
	BrowserVersion string
	OS             string
	OSVersion      string
	DeviceType     string
	IsBot          bool
}

// DefaultBotPatterns is the baseline automation deny list. Matching is
// case-insensitive substring; the list is extendable through configuration.
var DefaultBotPatterns = []string{
	"bot", "crawler", "spider", "scraper", "headless",
	"phantom", "selenium", "puppeteer", "playwright",
}

// Classify performs a best-effort classification of a raw User-Agent string.
// Anything not recognized as mobile or tablet is treated as desktop.
func Classify(ua string, botPatterns []string) Classification {
	return Classification{
		Browser:        parseBrowser(ua),
		BrowserVersion: parseBrowserVersion(ua),
		OS:             parseOS(ua),
		OSVersion:      parseOSVersion(ua),
		DeviceType:     parseDeviceType(ua),
		IsBot:          IsBot(ua, botPatterns),
	}
}

// IsBot checks the UA against a deny list of automation fragments.
func IsBot(ua string, patterns []string) bool {
	if ua == "" {
		return false
	}
	if len(patterns) == 0 {
		patterns = DefaultBotPatterns
	}
	uaLower := strings.ToLower(ua)
	for _, fragment := range patterns {
		fragment = strings.ToLower(strings.TrimSpace(fragment))
		if fragment == "" {
			continue
		}
		if strings.Contains(uaLower, fragment) {
			return true
		}
	}
	return false
}

func parseDeviceType(ua string) string {
	ua = strings.ToLower(ua)
	switch {
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		return "tablet"
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "android"):
		return "mobile"
	default:
		return "desktop"
	}
}

func parseBrowser(ua string) string {
	uaLower := strings.ToLower(ua)
	switch {
	case strings.Contains(uaLower, "edg/") || strings.Contains(uaLower, "edge"):
		return "edge"
	case strings.Contains(uaLower, "opr/") || strings.Contains(uaLower, "opera"):
		return "opera"
	case strings.Contains(uaLower, "firefox"):
		return "firefox"
	case strings.Contains(uaLower, "chrome"):
		return "chrome"
	case strings.Contains(uaLower, "safari"):
		return "safari"
	default:
		return "unknown"
	}
}

func parseBrowserVersion(ua string) string {
	uaLower := strings.ToLower(ua)
	for _, marker := range []string{"edg/", "opr/", "firefox/", "chrome/", "version/"} {
		if v := versionAfter(ua, uaLower, marker); v != "" {
			return v
		}
	}
	return ""
}

func parseOS(ua string) string {
	ua = strings.ToLower(ua)
	switch {
	case strings.Contains(ua, "windows"):
		return "windows"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") || strings.Contains(ua, "ios"):
		return "ios"
	case strings.Contains(ua, "mac os") || strings.Contains(ua, "macos") || strings.Contains(ua, "darwin"):
		return "macos"
	case strings.Contains(ua, "android"):
		return "android"
	case strings.Contains(ua, "linux"):
		return "linux"
	default:
		return "unknown"
	}
}

func parseOSVersion(ua string) string {
	uaLower := strings.ToLower(ua)
	for _, marker := range []string{"windows nt ", "android ", "os x ", "cpu iphone os ", "cpu os "} {
		if v := versionAfter(ua, uaLower, marker); v != "" {
			return strings.ReplaceAll(v, "_", ".")
		}
	}
	return ""
}

// versionAfter extracts the dotted (or underscored) version token that
// directly follows marker, preserving the original casing of ua.
func versionAfter(ua, uaLower, marker string) string {
	idx := strings.Index(uaLower, marker)
	if idx < 0 {
		return ""
	}
	rest := ua[idx+len(marker):]
	end := 0
	for end < len(rest) {
		c := rest[end]
		if (c < '0' || c > '9') && c != '.' && c != '_' {
			break
		}
		end++
	}
	return strings.Trim(rest[:end], "._")
}
