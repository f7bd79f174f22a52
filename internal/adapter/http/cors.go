package httpadapter

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const corsAllowMethods = "GET,POST,OPTIONS"
const corsAllowHeaders = "Content-Type,X-User-ID"

type CORSOptions struct {
	AllowedOrigin string
	MaxAge        int
}

func applyCORSHeaders(ctx *app.RequestContext, opts CORSOptions) {
	origin := opts.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = 600
	}
	ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
	ctx.Response.Header.Set("Access-Control-Allow-Methods", corsAllowMethods)
	ctx.Response.Header.Set("Access-Control-Allow-Headers", corsAllowHeaders)
	ctx.Response.Header.Set("Access-Control-Max-Age", strconv.Itoa(maxAge))
}

func corsMiddleware(opts CORSOptions) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		applyCORSHeaders(ctx, opts)
		if string(ctx.Method()) == consts.MethodOptions {
			ctx.AbortWithStatus(consts.StatusNoContent)
			return
		}
		ctx.Next(c)
	}
}
