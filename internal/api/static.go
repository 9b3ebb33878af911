package api

import (
	"embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static
var staticFS embed.FS

// SetupStaticRoutes serves the bundled frontend page
func SetupStaticRoutes(r *gin.Engine) {
	r.GET("/frontend", func(c *gin.Context) {
		content, err := staticFS.ReadFile("static/frontend.html")
		if err != nil {
			c.String(http.StatusNotFound, "File not found")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", content)
	})
}
