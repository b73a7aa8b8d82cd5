package middleware

import (
	"github.com/gin-gonic/gin"

	midsec "WProject/middleware/security"
	sec "WProject/tools/security"
)

// RouteOpt configures per-route behavior.
type RouteOpt struct {
	IsAuth bool
	Auth   sec.Options
}

func wrap(handler gin.HandlerFunc, opt RouteOpt) []gin.HandlerFunc {
	if opt.IsAuth {
		return []gin.HandlerFunc{midsec.Middleware(opt.Auth), handler}
	}
	return []gin.HandlerFunc{handler}
}

func GET(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	r.GET(path, wrap(handler, opt)...)
}

func POST(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	r.POST(path, wrap(handler, opt)...)
}

func PATCH(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	r.PATCH(path, wrap(handler, opt)...)
}

func DELETE(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	r.DELETE(path, wrap(handler, opt)...)
}
