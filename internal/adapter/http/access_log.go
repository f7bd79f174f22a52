package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
)

func accessLogMiddleware(logger *slog.Logger) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c)

		status := ctx.Response.StatusCode()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		logger.Log(c, level, "http request",
			"method", string(ctx.Method()),
			"path", string(ctx.Path()),
			"status", status,
			"user_id", string(ctx.GetHeader(userIDHeader)),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
