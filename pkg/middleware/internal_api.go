package middleware

import (
	"net"
	"os"

	"github.com/gin-gonic/gin"
)

// InternalAPIConfig configures access to the internal/administrative API
// surface (here: the hard-delete order endpoint).
type InternalAPIConfig struct {
	TrustedNetworks []string
	APIKeyEnvName   string
	DefaultAPIKey   string
	HeaderName      string
}

func NewInternalAPIConfig() *InternalAPIConfig {
	return &InternalAPIConfig{
		TrustedNetworks: []string{
			"10.0.0.0/8",
			"172.16.0.0/12",
			"192.168.0.0/16",
			"127.0.0.0/8",
		},
		APIKeyEnvName: "INTERNAL_API_KEY",
		DefaultAPIKey: "internal-api-key-for-development",
		HeaderName:    "X-Internal-API-Key",
	}
}

// InternalAuthMiddleware guards administrative endpoints that should only
// be reachable from inside the cluster or with a shared key, independent
// of the customer-facing JWT check.
type InternalAuthMiddleware struct {
	config *InternalAPIConfig
	apiKey string
}

func NewInternalAuthMiddleware(config *InternalAPIConfig) *InternalAuthMiddleware {
	if config == nil {
		config = NewInternalAPIConfig()
	}

	apiKey := os.Getenv(config.APIKeyEnvName)
	if apiKey == "" {
		apiKey = config.DefaultAPIKey
	}

	return &InternalAuthMiddleware{
		config: config,
		apiKey: apiKey,
	}
}

// Required admits a request if it carries the internal API key header or
// originates from a trusted network; otherwise it's rejected with 403.
func (m *InternalAuthMiddleware) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		headerKey := c.GetHeader(m.config.HeaderName)
		if headerKey == m.apiKey {
			c.Next()
			return
		}

		if isIPTrusted(c.ClientIP(), m.config.TrustedNetworks) {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(403, gin.H{
			"error": "forbidden: this endpoint is only available to internal services",
		})
	}
}

func isIPTrusted(ipStr string, trustedNetworks []string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}

	for _, network := range trustedNetworks {
		_, ipNet, err := net.ParseCIDR(network)
		if err != nil {
			continue
		}
		if ipNet.Contains(ip) {
			return true
		}
	}

	return false
}
