package useragent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	chromeWindowsUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.71 Safari/537.36"
	safariIphoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
	firefoxLinuxUA  = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	ipadUA          = "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1"
)

func TestClassifyChromeOnWindows(t *testing.T) {
	c := Classify(chromeWindowsUA, nil)
	require.Equal(t, "chrome", c.Browser)
	require.Equal(t, "120.0.6099.71", c.BrowserVersion)
	require.Equal(t, "windows", c.OS)
	require.Equal(t, "10.0", c.OSVersion)
	require.Equal(t, "desktop", c.DeviceType)
	require.False(t, c.IsBot)
}

func TestClassifySafariOnIphone(t *testing.T) {
	c := Classify(safariIphoneUA, nil)
	require.Equal(t, "safari", c.Browser)
	require.Equal(t, "17.1", c.BrowserVersion)
	require.Equal(t, "ios", c.OS)
	require.Equal(t, "17.1", c.OSVersion)
	require.Equal(t, "mobile", c.DeviceType)
}

func TestClassifyFirefoxOnLinux(t *testing.T) {
	c := Classify(firefoxLinuxUA, nil)
	require.Equal(t, "firefox", c.Browser)
	require.Equal(t, "121.0", c.BrowserVersion)
	require.Equal(t, "linux", c.OS)
}

func TestClassifyIpadIsTablet(t *testing.T) {
	require.Equal(t, "tablet", Classify(ipadUA, nil).DeviceType)
}

func TestUnrecognizedDefaultsToDesktop(t *testing.T) {
	c := Classify("SomethingEntirelyDifferent/1.0", nil)
	require.Equal(t, "desktop", c.DeviceType)
	require.Equal(t, "unknown", c.Browser)
	require.Equal(t, "unknown", c.OS)
}

func TestIsBot(t *testing.T) {
	for _, ua := range []string{
		"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
		"Mozilla/5.0 (X11; Linux x86_64) HeadlessChrome/119.0",
		"python-requests scraper 2.0",
		"SELENIUM webdriver",
	} {
		require.True(t, IsBot(ua, nil), "expected bot: %s", ua)
	}
	require.False(t, IsBot(chromeWindowsUA, nil))
	require.False(t, IsBot("", nil))
}

func TestIsBotCustomPatterns(t *testing.T) {
	require.True(t, IsBot("MyCorp-HealthChecker/1.0", []string{"healthchecker"}))
	require.False(t, IsBot("Mozilla/5.0 Gecko Firefox/121.0", []string{"healthchecker"}))
}
