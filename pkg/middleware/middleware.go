package middleware

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DBKey is the context key the database handle is stored under.
const DBKey = "db"

// InjectDB makes the shared gorm handle available to downstream handlers.
func InjectDB(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(DBKey, db)
		c.Next()
	}
}
