package routes

import (
	"log/slog"
	"net/http"

	"gestion-optica-api/utils"

	"github.com/gin-gonic/gin"
)

// Module is a domain handler set mounted under one prefix.
type Module interface {
	Register(group *gin.RouterGroup)
}

// ModuleFunc adapts a function to Module.
type ModuleFunc func(group *gin.RouterGroup)

func (f ModuleFunc) Register(group *gin.RouterGroup) { f(group) }

// Prefix pairs a directory key with its mount path.
type Prefix struct {
	Name string
	Path string
}

// DomainPrefixes are the route groups the API exposes, in directory order.
var DomainPrefixes = []Prefix{
	{"auth", "/auth"},
	{"leads", "/leads"},
	{"appointments", "/appointments"},
	{"clientes", "/clientes"},
	{"fichasClinicas", "/fichas-clinicas"},
	{"recetas", "/recetas"},
	{"productos", "/productos"},
	{"reportes", "/reportes"},
	{"ventas", "/ventas"},
	{"garantias", "/garantias"},
	{"alertas", "/alertas"},
}

// EndpointDirectory is the prefix map served by the liveness endpoint.
func EndpointDirectory() map[string]string {
	dir := map[string]string{"health": "/health"}
	for _, p := range DomainPrefixes {
		dir[p.Name] = p.Path
	}
	return dir
}

// SetupModuleRoutes mounts each domain prefix. modules is keyed by path.
func SetupModuleRoutes(router *gin.Engine, modules map[string]Module, log *slog.Logger) {
	for _, p := range DomainPrefixes {
		group := router.Group(p.Path)
		if m, ok := modules[p.Path]; ok && m != nil {
			m.Register(group)
			continue
		}
		log.Debug("No module attached, serving 501", "prefix", p.Path)
		group.Any("/*path", notImplemented(p.Path))
	}
}

func notImplemented(prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = c.Error(utils.NewAppError(http.StatusNotImplemented, utils.CodeNotImplemented, "module not available").
			WithDetails(map[string]any{"prefix": prefix}))
		c.Abort()
	}
}
