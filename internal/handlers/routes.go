package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/morchidhub/guide-backend/internal/middleware"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/morchidhub/guide-backend/pkg/jwt"
)

// Handlers groups the API handlers mounted by RegisterRoutes
type Handlers struct {
	Auth    *AuthHandler
	Guide   *GuideHandler
	Route   *RouteHandler
	Review  *ReviewHandler
	Search  *SearchHandler
	Support *SupportHandler
	Admin   *AdminHandler
}

// RegisterRoutes mounts every endpoint under v1 (/api/v1)
func RegisterRoutes(v1 *gin.RouterGroup, h Handlers, jwtService *jwt.Service, users middleware.UserLookup, guides middleware.GuideLookup) {
	authRequired := middleware.AuthMiddleware(jwtService)
	activeOnly := middleware.RequireActiveUser(users)

	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.POST("/logout", authRequired, activeOnly, h.Auth.Logout)
	}

	v1.GET("/me", authRequired, activeOnly, h.Auth.Me)

	guidesGroup := v1.Group("/guides")
	{
		guidesGroup.GET("/:id", middleware.OptionalAuth(jwtService), h.Guide.GetGuide)
		guidesGroup.GET("/:id/reviews", h.Review.ListGuideReviews)
		guidesGroup.GET("/:id/route", h.Route.GetRoute)
		guidesGroup.GET("/:id/route/proximity", h.Route.Proximity)

		guideOnly := middleware.RequireRole(models.RoleGuide)
		guidesGroup.PUT("/me", authRequired, activeOnly, guideOnly, h.Guide.UpdateMyProfile)
		guidesGroup.POST("/:id/verification", authRequired, activeOnly, guideOnly, h.Guide.SubmitVerification)
		guidesGroup.PUT("/me/route", authRequired, activeOnly, guideOnly, middleware.RequireApprovedGuide(guides), h.Route.SaveMyRoute)
		guidesGroup.DELETE("/me/route", authRequired, activeOnly, guideOnly, h.Route.DeleteMyRoute)
	}

	reviews := v1.Group("/reviews", authRequired, activeOnly)
	{
		reviews.POST("", h.Review.CreateReview)
		reviews.DELETE("/:id", h.Review.DeleteReview)
	}

	search := v1.Group("/search")
	{
		search.GET("/guides", h.Search.SearchGuides)
		search.GET("/guides-with-routes", h.Search.SearchGuidesWithRoutes)
		search.GET("/filters", h.Search.GetFilters)
	}

	v1.POST("/support/messages", authRequired, activeOnly, h.Support.CreateMessage)

	admin := v1.Group("/admin", authRequired, activeOnly, middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/stats", h.Admin.GetDashboardStats)

		admin.GET("/users", h.Admin.ListUsers)
		admin.PUT("/users/:id/toggle-status", h.Admin.ToggleUserStatus)
		admin.GET("/users/:id/audit-logs", h.Admin.GetUserAuditLogs)

		admin.GET("/guides/pending", h.Admin.GetPendingGuides)
		admin.GET("/guides/:id", h.Admin.GetGuideDetails)
		admin.PUT("/guides/:id/approve", h.Admin.ApproveGuide)
		admin.PUT("/guides/:id/reject", h.Admin.RejectGuide)

		admin.GET("/support/messages", h.Admin.ListSupportMessages)
		admin.PUT("/support/messages/:id/resolve", h.Admin.ResolveSupportMessage)
		admin.DELETE("/support/messages/:id", h.Admin.DeleteSupportMessage)
	}
}
