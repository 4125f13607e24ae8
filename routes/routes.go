// routes/routes.go
package routes

import (
	"net/http"

	"go-bakery/controllers"
	"go-bakery/middleware"

	"github.com/gorilla/mux"
)

// RegisterRoutes sets up all the routes for the application
func RegisterRoutes(router *mux.Router, auth *middleware.Auth, limiter *middleware.RateLimiter,
	orderController *controllers.OrderController, adminController *controllers.AdminController,
	reviewController *controllers.ReviewController) {
	// Public routes
	router.HandleFunc("/availability", orderController.Availability).Methods(http.MethodGet)
	router.HandleFunc("/calendar/{year:[0-9]+}/{month:[0-9]+}", orderController.PublicCalendar).Methods(http.MethodGet)
	router.HandleFunc("/reviews", reviewController.PublicReviews).Methods(http.MethodGet)

	// Public form posts are rate limited per address
	router.Handle("/orders", limiter.Middleware(http.HandlerFunc(orderController.CreateOrder))).Methods(http.MethodPost)
	router.Handle("/reviews", limiter.Middleware(http.HandlerFunc(reviewController.SubmitReview))).Methods(http.MethodPost)
	router.Handle("/admin/login", limiter.Middleware(http.HandlerFunc(adminController.Login))).Methods(http.MethodPost)

	// Admin routes
	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(auth.AuthMiddleware)
	admin.Use(middleware.AdminMiddleware)

	admin.HandleFunc("/orders", orderController.GetOrders).Methods(http.MethodGet)
	admin.HandleFunc("/orders/{id}/status", orderController.UpdateOrderStatus).Methods(http.MethodPut)
	admin.HandleFunc("/orders/{id}/price", orderController.UpdateOrderPrice).Methods(http.MethodPut)
	admin.HandleFunc("/orders/{id}/archive", orderController.ArchiveOrder).Methods(http.MethodPost)
	admin.HandleFunc("/orders/{id}/review-request", orderController.RequestReview).Methods(http.MethodPost)
	admin.HandleFunc("/archive", orderController.GetArchive).Methods(http.MethodGet)
	admin.HandleFunc("/notifications", orderController.GetNotifications).Methods(http.MethodGet)
	admin.HandleFunc("/calendar/{year:[0-9]+}/{month:[0-9]+}", orderController.AdminCalendar).Methods(http.MethodGet)

	// Accounting
	admin.HandleFunc("/accounting/{year:[0-9]+}/{month:[0-9]+}", adminController.MonthlyReport).Methods(http.MethodGet)
	admin.HandleFunc("/accounting/{year:[0-9]+}", adminController.YearlyReport).Methods(http.MethodGet)

	// Reviews
	admin.HandleFunc("/reviews", reviewController.AllReviews).Methods(http.MethodGet)
	admin.HandleFunc("/reviews/{id}/approve", reviewController.ApproveReview).Methods(http.MethodPut)
}
