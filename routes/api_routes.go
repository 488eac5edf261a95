package routes

import (
	"abride/internal/handlers"
	"abride/internal/middleware"
	"abride/pkg/websocket"

	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the route table needs.
type Handlers struct {
	Trips         *handlers.TripHandler
	Bookings      *handlers.BookingHandler
	Vehicles      *handlers.VehicleHandler
	Profiles      *handlers.ProfileHandler
	Notifications *handlers.NotificationHandler
	WebSocket     *websocket.Handler
}

// SetupRoutes registers the full API surface under /api/v1.
func SetupRoutes(r *gin.Engine, h *Handlers, jwtSecret string) {
	api := r.Group("/api/v1")

	auth := middleware.AuthRequired(jwtSecret)

	// Public trip listing
	trips := api.Group("/trips")
	{
		trips.GET("", h.Trips.SearchTrips)
		trips.GET("/:id", h.Trips.GetTrip)
	}

	// Driver trip management
	driverTrips := api.Group("/trips")
	driverTrips.Use(auth, middleware.DriverRequired())
	{
		driverTrips.POST("", h.Trips.CreateTrip)
		driverTrips.PUT("/:id/start", h.Trips.StartTrip)
		driverTrips.PUT("/:id/complete", h.Trips.CompleteTrip)
		driverTrips.PUT("/:id/cancel", h.Trips.CancelTrip)
		driverTrips.DELETE("/:id", h.Trips.DeleteTrip)
		driverTrips.GET("/:id/bookings", h.Bookings.GetTripBookings)
	}

	authed := api.Group("")
	authed.Use(auth)
	{
		authed.GET("/my/trips", h.Trips.GetMyTrips)

		// Bookings
		authed.POST("/bookings", h.Bookings.CreateBooking)
		authed.GET("/bookings/:id", h.Bookings.GetBooking)
		authed.PUT("/bookings/:id/confirm", h.Bookings.ConfirmBooking)
		authed.PUT("/bookings/:id/reject", h.Bookings.RejectBooking)
		authed.PUT("/bookings/:id/cancel", h.Bookings.CancelBooking)
		authed.PUT("/bookings/:id/complete", h.Bookings.CompleteBooking)
		authed.GET("/my/bookings", h.Bookings.GetMyBookings)
		authed.GET("/my/received-bookings", h.Bookings.GetReceivedBookings)

		// Profile
		authed.GET("/profile", h.Profiles.GetProfile)
		authed.PUT("/profile", h.Profiles.UpdateProfile)
		authed.POST("/profile/device-tokens", h.Profiles.RegisterDeviceToken)
		authed.DELETE("/profile/device-tokens/:token", h.Profiles.RemoveDeviceToken)

		// Notifications
		authed.GET("/notifications", h.Notifications.GetNotifications)
		authed.GET("/notifications/unread-count", h.Notifications.GetUnreadCount)
		authed.PUT("/notifications/:id/read", h.Notifications.MarkRead)
		authed.PUT("/notifications/read-all", h.Notifications.MarkAllRead)

		// Live updates
		authed.GET("/ws", h.WebSocket.HandleWebSocket)
	}

	// Vehicles
	vehicles := api.Group("/vehicles")
	vehicles.Use(auth, middleware.DriverRequired())
	{
		vehicles.POST("", h.Vehicles.CreateVehicle)
		vehicles.GET("", h.Vehicles.GetMyVehicles)
		vehicles.PUT("/:id", h.Vehicles.UpdateVehicle)
		vehicles.DELETE("/:id", h.Vehicles.DeleteVehicle)
	}

	// Admin moderation
	admin := api.Group("/admin")
	admin.Use(auth, middleware.AdminRequired())
	{
		admin.PUT("/users/:id/verify", h.Profiles.VerifyDriver)
		admin.PUT("/users/:id/suspend", h.Profiles.SuspendUser)
		admin.PUT("/users/:id/reactivate", h.Profiles.ReactivateUser)
	}
}
