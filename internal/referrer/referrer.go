package referrer

import (
	"net/url"
	"strings"
)

// Labels for referrers that carry no usable hostname.
const (
	Direct  = "Direct"
	Unknown = "Unknown"
)

// sources maps hostname fragments to display labels. Order matters: the
// first fragment contained in the hostname wins.
var sources = []struct {
	fragment string
	label    string
}{
	{"google", "Google"},
	{"bing", "Bing"},
	{"duckduckgo", "DuckDuckGo"},
	{"yahoo", "Yahoo"},
	{"yandex", "Yandex"},
	{"baidu", "Baidu"},
	{"ecosia", "Ecosia"},
	{"facebook", "Facebook"},
	{"instagram", "Instagram"},
	{"twitter", "Twitter"},
	{"t.co", "Twitter"},
	{"x.com", "X"},
	{"linkedin", "LinkedIn"},
	{"reddit", "Reddit"},
	{"youtube", "YouTube"},
	{"pinterest", "Pinterest"},
	{"tiktok", "TikTok"},
	{"news.ycombinator", "Hacker News"},
	{"github", "GitHub"},
	{"gitlab", "GitLab"},
	{"stackoverflow", "Stack Overflow"},
}

// Resolve maps an arbitrary referrer URL to a known source label, or to its
// bare hostname when no table entry matches. Empty input is Direct traffic;
// input without a parseable hostname is Unknown.
func Resolve(referrerURL string) string {
	if referrerURL == "" {
		return Direct
	}
	u, err := url.Parse(referrerURL)
	if err != nil || u.Hostname() == "" {
		return Unknown
	}
	host := strings.ToLower(u.Hostname())
	for _, s := range sources {
		if strings.Contains(host, s.fragment) {
			return s.label
		}
	}
	return strings.TrimPrefix(host, "www.")
}
