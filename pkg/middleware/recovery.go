package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"webui-dashboard-api/pkg/logger"
	"webui-dashboard-api/pkg/utils"
)

// Recovery 恢复中间件，处理panic并返回友好的错误信息
func Recovery(log *logger.Logger, development bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic recovered",
						"panic", rec,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)

					// 生产环境：隐藏详细错误信息
					message := "Internal server error occurred"
					if development {
						message = fmt.Sprintf("Internal server error: %v", rec)
					}
					utils.WriteInternalServerErrorResponse(w, message)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
