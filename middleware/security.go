package middleware

import (
	"strings"

	"gestion-optica-api/internal/config"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
)

// KnownAppHosts are the frontends allowed as connect-src targets.
var KnownAppHosts = []string{
	"https://gestion-optica.vercel.app",
	"https://gestion-optica-admin.vercel.app",
}

// ContentSecurityPolicy renders the CSP header value. upgrade-insecure-requests
// is only emitted in production.
func ContentSecurityPolicy(cfg *config.Config) string {
	connect := []string{"'self'"}
	if cfg.APIURL != "" {
		connect = append(connect, cfg.APIURL)
	}
	connect = append(connect, KnownAppHosts...)

	directives := []string{
		"default-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		"script-src 'self'",
		"img-src 'self' data: https:",
		"font-src 'self' https: data:",
		"object-src 'none'",
		"connect-src " + strings.Join(connect, " "),
	}
	if cfg.IsProduction() {
		directives = append(directives, "upgrade-insecure-requests")
	}
	return strings.Join(directives, "; ")
}

// SecurityHeaders attaches the static protective headers. Embedder isolation
// (COEP) is left off and CORP is "cross-origin" so other origins can load
// our assets.
func SecurityHeaders(cfg *config.Config) gin.HandlerFunc {
	base := secure.New(secure.Config{
		CustomFrameOptionsValue: "SAMEORIGIN",
		ContentTypeNosniff:      true,
		ContentSecurityPolicy:   ContentSecurityPolicy(cfg),
		ReferrerPolicy:          "no-referrer",
		STSSeconds:              15552000,
		STSIncludeSubdomains:    true,
		IENoOpen:                true,
	})

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Cross-Origin-Resource-Policy", "cross-origin")
		h.Set("Origin-Agent-Cluster", "?1")
		h.Set("X-DNS-Prefetch-Control", "off")
		h.Set("X-Permitted-Cross-Domain-Policies", "none")
		h.Set("X-XSS-Protection", "0")
		base(c)
	}
}
