package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// LanguageMiddleware resolves the request language from the "lang" query
// parameter or the Accept-Language header. Only fr and en are served.
func LanguageMiddleware(defaultLang string) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := c.Query("lang")
		if lang == "" {
			accept := c.GetHeader("Accept-Language")
			if i := strings.IndexAny(accept, ",;-"); i > 0 {
				accept = accept[:i]
			}
			lang = strings.ToLower(strings.TrimSpace(accept))
		}
		if lang != "fr" && lang != "en" {
			lang = defaultLang
		}
		c.Set("lang", lang)
		c.Next()
	}
}
