package middleware

import (
	"strings"
	"time"

	"github.com/Bezalel011/Smartcare/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// The API only reads forecasts and accepts clinic writes over POST, and it
// carries no credentials.
var (
	corsMethods = []string{"GET", "POST", "OPTIONS"}
	corsHeaders = []string{"Origin", "Content-Type", "Accept"}
)

// SetupCORS allows the comma separated origins in cfg, or every origin
// when the list is "*" or empty.
func SetupCORS(cfg config.CORSConfig) gin.HandlerFunc {
	origins := allowedOrigins(cfg.AllowedOrigins)

	c := cors.Config{
		AllowMethods:  corsMethods,
		AllowHeaders:  corsHeaders,
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if origins == nil {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return cors.New(c)
}

// allowedOrigins returns nil when every origin is allowed.
func allowedOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
			continue
		case "*":
			return nil
		}
		out = append(out, o)
	}
	return out
}
