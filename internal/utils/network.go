package utils

import (
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetRealIP returns the client address recorded in audit logs and rate
// limits. X-Real-IP wins when it holds a public address, then the first
// public hop of X-Forwarded-For, then gin's ClientIP.
func GetRealIP(c *gin.Context) string {
	if ip, ok := parsePublic(c.Request.Header.Get("X-Real-IP")); ok {
		return ip
	}

	if forwarded := c.Request.Header.Get("X-Forwarded-For"); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for _, hop := range hops {
			if ip, ok := parsePublic(hop); ok {
				return ip
			}
		}
		// all hops private: keep the one closest to the client
		if addr, err := netip.ParseAddr(strings.TrimSpace(hops[0])); err == nil {
			return addr.String()
		}
	}

	return c.ClientIP()
}

// GetUserAgent returns the User-Agent header or "Unknown"
func GetUserAgent(c *gin.Context) string {
	if ua := strings.TrimSpace(c.Request.UserAgent()); ua != "" {
		return ua
	}
	return "Unknown"
}

// IsPublicIP reports whether ip parses and is neither private, loopback nor link-local
func IsPublicIP(ip string) bool {
	_, ok := parsePublic(ip)
	return ok
}

func parsePublic(raw string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	addr = addr.Unmap()
	if addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() {
		return "", false
	}
	return addr.String(), true
}
