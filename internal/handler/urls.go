package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dreamshare/internal/dream"
	"dreamshare/internal/models"
	"dreamshare/pkg/cache"
	"dreamshare/pkg/config"
	"dreamshare/pkg/i18n"
	"dreamshare/pkg/metrics"
	"dreamshare/pkg/middleware"
	"dreamshare/pkg/search"
	"dreamshare/pkg/storage"
	"dreamshare/pkg/ws"
)

type Handlers struct {
	db         *gorm.DB
	pipeline   *dream.Pipeline
	classifier *dream.EmotionClassifier
	exporter   *dream.Exporter
	cache      cache.Cache
	search     *search.Engine
	store      storage.Store
	hub        *ws.Hub
	i18n       *i18n.I18nSupport
}

// Options bundles the collaborators of the handler layer. Search, store
// and hub may be nil; the owning features then degrade gracefully.
type Options struct {
	DB         *gorm.DB
	Pipeline   *dream.Pipeline
	Classifier *dream.EmotionClassifier
	Exporter   *dream.Exporter
	Cache      cache.Cache
	Search     *search.Engine
	Store      storage.Store
	Hub        *ws.Hub
	I18n       *i18n.I18nSupport
}

func NewHandlers(opts Options) *Handlers {
	return &Handlers{
		db:         opts.DB,
		pipeline:   opts.Pipeline,
		classifier: opts.Classifier,
		exporter:   opts.Exporter,
		cache:      opts.Cache,
		search:     opts.Search,
		store:      opts.Store,
		hub:        opts.Hub,
		i18n:       opts.I18n,
	}
}

func (h *Handlers) Register(engine *gin.Engine) {
	engine.GET("/metrics", metrics.Handler())

	r := engine.Group(config.GlobalConfig.APIPrefix)
	r.Use(middleware.InjectDB(h.db))
	r.Use(middleware.LanguageMiddleware(config.GlobalConfig.DefaultLanguage))

	h.registerSystemRoutes(r)
	h.registerAuthRoutes(r)
	h.registerDreamRoutes(r)
	h.registerSocialRoutes(r)

	if h.hub != nil {
		engine.GET("/ws/notifications",
			middleware.InjectDB(h.db), models.AuthRequired, h.handleNotificationSocket)
	}
}

func (h *Handlers) registerAuthRoutes(r *gin.RouterGroup) {
	auth := r.Group(config.GlobalConfig.AuthPrefix)
	{
		auth.POST("/register", h.handleRegister)

		auth.POST("/login", h.handleLogin)

		auth.POST("/logout", models.AuthRequired, h.handleLogout)

		auth.GET("/profile", models.AuthRequired, h.handleProfile)

		auth.PUT("/profile", models.AuthRequired, h.handleUpdateProfile)

		auth.PUT("/favorite-dream", models.AuthRequired, h.handleSetFavoriteDream)

		auth.PUT("/change-password", models.AuthRequired, h.handleChangePassword)

		auth.DELETE("/delete-account", models.AuthRequired, h.handleDeleteAccount)
	}
}

func (h *Handlers) registerDreamRoutes(r *gin.RouterGroup) {
	dreams := r.Group("dreams")
	dreams.Use(models.AuthRequired)
	{
		dreams.POST("/generate", h.handleGenerateDream)

		dreams.POST("/save", middleware.IdempotencyMiddleware(middleware.IdempotencyConfig{}), h.handleSaveDream)

		dreams.GET("/list", h.handleListDreams)

		dreams.GET("/feed/public", h.handlePublicFeed)

		dreams.GET("/feed/friends", h.handleFriendsFeed)

		dreams.GET("/search", h.handleSearchDreams)

		dreams.PUT("/:id/privacy", h.handleSetPrivacy)

		dreams.GET("/:id/export", h.handleExportDream)

		dreams.POST("/:id/like", h.handleToggleLike)

		dreams.GET("/:id/comments", h.handleListComments)

		dreams.POST("/:id/comments", h.handleAddComment)
	}
}

func (h *Handlers) registerSocialRoutes(r *gin.RouterGroup) {
	social := r.Group("social")
	social.Use(models.AuthRequired)
	{
		social.GET("/users/search", h.handleSearchUsers)

		social.POST("/friend-requests", h.handleSendFriendRequest)

		social.GET("/friend-requests", h.handleListFriendRequests)

		social.GET("/friend-requests/sent", h.handleListSentRequests)

		social.POST("/friend-requests/:id/respond", h.handleRespondFriendRequest)

		social.GET("/friends", h.handleListFriends)

		social.DELETE("/friends/:id", h.handleRemoveFriend)

		social.GET("/messages/unread-count", h.handleUnreadCount)

		social.GET("/messages/:userId", h.handleConversation)

		social.POST("/messages", h.handleSendMessage)
	}
}

func (h *Handlers) registerSystemRoutes(r *gin.RouterGroup) {
	system := r.Group("system")
	{
		system.GET("/health", h.handleHealthCheck)
	}
}
