package middleware

import (
	"log/slog"
	"net/url"
	"strings"
	"time"

	"gestion-optica-api/internal/config"
	"gestion-optica-api/internal/telemetry"
	"gestion-optica-api/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// PlatformSuffix is the hosting platform whose preview and production
// deployments are trusted when no explicit allow-list is configured.
const PlatformSuffix = ".vercel.app"

// DefaultOrigins is used when CORS_ORIGINS is not set.
var DefaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:5173",
	"https://gestion-optica.vercel.app",
	"https://gestion-optica-admin.vercel.app",
}

var (
	AllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", RequestIDHeader}
	ExposedHeaders = []string{RequestIDHeader, "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"}
)

const PreflightMaxAge = 24 * time.Hour

// Decision reasons, also used as metric attributes.
const (
	ReasonNonProduction = "non_production"
	ReasonNoOrigin      = "no_origin"
	ReasonPlatform      = "platform_wildcard"
	ReasonAllowList     = "allow_list"
	ReasonNotAllowed    = "not_allowed"
)

type OriginDecision struct {
	Allowed    bool
	Raw        string
	Normalized string
	Reason     string
}

// OriginPolicy decides whether a cross-origin caller may proceed. It is
// immutable once built.
type OriginPolicy struct {
	production bool
	explicit   bool
	allowList  map[string]struct{}
}

func NewOriginPolicy(cfg *config.Config) *OriginPolicy {
	origins := DefaultOrigins
	if cfg.HasExplicitOrigins() {
		origins = cfg.CORSOrigins
	}
	allowList := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowList[normalizeOrigin(o)] = struct{}{}
	}
	return &OriginPolicy{
		production: cfg.IsProduction(),
		explicit:   cfg.HasExplicitOrigins(),
		allowList:  allowList,
	}
}

func (p *OriginPolicy) Decide(origin string) OriginDecision {
	d := OriginDecision{Raw: origin, Normalized: normalizeOrigin(origin)}

	switch {
	case !p.production:
		d.Allowed, d.Reason = true, ReasonNonProduction
	case origin == "":
		d.Allowed, d.Reason = true, ReasonNoOrigin
	case p.explicit:
		d.Allowed, d.Reason = p.inAllowList(d.Normalized)
	default:
		if isPlatformOrigin(d.Normalized) {
			d.Allowed, d.Reason = true, ReasonPlatform
		} else {
			d.Allowed, d.Reason = p.inAllowList(d.Normalized)
		}
	}
	return d
}

func (p *OriginPolicy) Allows(origin string) bool {
	return p.Decide(origin).Allowed
}

func (p *OriginPolicy) inAllowList(normalized string) (bool, string) {
	if _, ok := p.allowList[normalized]; ok {
		return true, ReasonAllowList
	}
	return false, ReasonNotAllowed
}

func normalizeOrigin(origin string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(origin)), "/")
}

func isPlatformOrigin(normalized string) bool {
	u, err := url.Parse(normalized)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return strings.HasSuffix(u.Hostname(), PlatformSuffix)
}

// CORSMiddleware enforces the origin policy. Denials are handed to the error
// normalizer; allowed cross-origin requests get their CORS headers from
// gin-contrib/cors, which also answers preflights.
func CORSMiddleware(policy *OriginPolicy, log *slog.Logger, metrics *telemetry.Metrics) gin.HandlerFunc {
	corsHeaders := cors.New(cors.Config{
		AllowOriginFunc:  policy.Allows,
		AllowMethods:     AllowedMethods,
		AllowHeaders:     AllowedHeaders,
		ExposeHeaders:    ExposedHeaders,
		AllowCredentials: true,
		MaxAge:           PreflightMaxAge,
	})

	return func(c *gin.Context) {
		d := policy.Decide(c.GetHeader("Origin"))
		metrics.RecordCORSDecision(d.Allowed, d.Reason)

		if !d.Allowed {
			log.Warn("CORS origin denied",
				"origin", d.Raw,
				"normalized", d.Normalized,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)
			_ = c.Error(utils.ErrOriginNotAllowed(d.Raw))
			c.Abort()
			return
		}

		log.Debug("CORS origin allowed",
			"origin", d.Raw,
			"normalized", d.Normalized,
			"reason", d.Reason,
		)
		corsHeaders(c)
	}
}
