package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS returns a CORS middleware
// 配置为开放访问模式，允许任何来源调用 API
func CORS() gin.HandlerFunc {
	config := cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", UserHeader},
		ExposeHeaders:    []string{"Content-Length", "Location"},
		AllowCredentials: false, // 开放访问模式下必须关闭，否则浏览器会拒绝 * 来源
	}

	return cors.New(config)
}
