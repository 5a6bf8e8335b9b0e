package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"laundrylink-backend/config"
	"laundrylink-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router. The handler's cache is
// created here when the caller did not supply one.
func NewRouter(cfg *config.Config, d Deps) *gin.Engine {
	r := gin.Default()

	ttl := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	if d.Cache == nil {
		d.Cache = cache.New(ttl, 2*ttl)
	}
	if d.ClientIP == nil {
		d.ClientIP = mw.ClientIP(cfg.Server.RequestIPHeader)
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	handler := NewHandler(d)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst, d.ClientIP)
	caching := mw.Cache(d.Cache, ttl)

	// Public API
	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/reservations", handler.SubmitReservation)
		api.GET("/reservations", handler.ListCustomerReservations)
		api.GET("/reservations/status", handler.GetShopStatus)
		api.GET("/reservations/stats", caching, handler.GetReservationStats)
		api.GET("/reservations/:reservationId", handler.GetReservation)

		api.GET("/track/:trackId", caching, handler.TrackOrder)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	// Staff API
	staff := r.Group("/api/staff")
	staff.Use(mw.StaffAuth(cfg.Auth, log))
	{
		staff.GET("/reservations", handler.ListReservations)
		staff.PATCH("/reservations/:reservationId", handler.UpdateReservation)
		staff.PATCH("/shop-status", handler.UpdateShopStatus)

		staff.GET("/blacklist", handler.ListBlacklist)
		staff.POST("/blacklist", handler.AddBlacklistEntry)
		staff.PATCH("/blacklist", handler.ToggleBlacklistEntry)

		staff.GET("/orders", handler.ListOrders)
		staff.POST("/orders", handler.CreateOrder)
		staff.POST("/orders/update-status", handler.UpdateOrderStatus)

		staff.GET("/settings", handler.GetSettings)
		staff.POST("/settings", handler.SaveSettings)

		staff.PUT("/subscriptions", handler.PutSubscription)
		staff.DELETE("/subscriptions", handler.DeleteSubscription)
	}

	return r
}
