package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/sportsgig/backend/internal/config"
	"github.com/sportsgig/backend/internal/db"
	"github.com/sportsgig/backend/internal/handlers"
	"github.com/sportsgig/backend/internal/middleware"
	"github.com/sportsgig/backend/internal/models"
	"github.com/sportsgig/backend/internal/realtime"
	"github.com/sportsgig/backend/internal/services/classify"
	"github.com/sportsgig/backend/internal/services/maintenance"
	"github.com/sportsgig/backend/internal/services/referral"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Redis not reachable:", err)
	}

	hub := realtime.NewHub()
	go hub.Run()

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.FreelancerProfile{},
		&models.Service{},
		&models.Booking{},
		&models.Review{},
		&models.SystemConfig{},
		&models.AdminAction{},
	); err != nil {
		log.Fatal(err)
	}

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendBaseURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	app.Options("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Static("/uploads", "./uploads")

	referrals := referral.NewService(gdb, rdb)
	classifier := classify.NewClassifyService(cfg.ClassifyAPIURL, cfg.ClassifyAPIKey)
	maint := maintenance.NewMaintenanceService(gdb)

	authH := &handlers.AuthHandler{
		DB:        gdb,
		RDB:       rdb,
		Referrals: referrals,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
	}
	googleH := &handlers.GoogleOAuthHandler{
		DB:              gdb,
		JWTSecret:       cfg.JWTSecret,
		Expires:         cfg.JWTExpiresMin,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}
	serviceH := handlers.NewServiceHandler(gdb, classifier, cfg.IDEncryptKey)
	bookingH := handlers.NewBookingHandler(gdb, hub, cfg.IDEncryptKey, cfg.JWTSecret)
	reviewH := handlers.NewReviewHandler(gdb)
	profileH := handlers.NewFreelancerProfileHandler(gdb, "./uploads", cfg.AppBaseURL)
	configH := handlers.NewConfigHandler(gdb, rdb)
	referralH := handlers.NewReferralHandler(gdb, referrals)
	adminH := handlers.NewAdminHandler(maint)

	api := app.Group("/api")

	// public
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/auth/session", authH.Session)
	api.Get("/auth/google/start", googleH.GoogleStart)
	api.Get("/auth/google/callback", googleH.GoogleCallback)
	api.Get("/public-config", configH.GetPublic)
	api.Get("/layout-config", handlers.LayoutConfig)
	api.Get("/categories", serviceH.GetCategories)
	api.Get("/services", serviceH.ListPublic)
	api.Get("/services/:id", serviceH.GetDetail)
	api.Get("/services/:id/reviews", serviceH.GetReviews)
	api.Post("/referral/capture", referralH.Capture)

	// protected (JWT)
	protected := api.Group("/",
		middleware.JWTFromRequest(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/me", func(c *fiber.Ctx) error {
		uid := c.Locals("userId")

		var user models.User
		if err := gdb.First(&user, "id = ?", uid).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "User not found",
			})
		}

		return c.JSON(fiber.Map{
			"success": true,
			"data": fiber.Map{
				"id":    user.ID,
				"name":  user.Name,
				"email": user.Email,
				"role":  user.Role,
			},
		})
	})

	// bookings: access is decided by relation to the booking, not by
	// account role, so self-bookings work for freelancers too
	protected.Post("/client/bookings", bookingH.Create)
	protected.Get("/client/bookings", bookingH.ListAsClient)
	protected.Get("/freelancer/bookings", bookingH.ListAsProvider)
	protected.Get("/bookings/:id", bookingH.Get)
	protected.Patch("/bookings/:id/status", bookingH.UpdateStatus)
	protected.Post("/reviews", reviewH.Create)

	// referral
	protected.Post("/referral/apply", referralH.Apply)
	protected.Get("/referral/me", referralH.Me)
	protected.Patch("/me/location", profileH.UpdateLocation)

	// freelancer profile (clients use this to become freelancers)
	profile := protected.Group("/freelancer/profile")
	profile.Get("/", profileH.Get)
	profile.Patch("/", profileH.Update)
	profile.Post("/documents", profileH.UploadDocument)
	profile.Post("/submit", profileH.Submit)

	// freelancer listings
	protected.Post("/freelancer/services",
		middleware.RequireRoles("freelancer"),
		serviceH.Create,
	)
	protected.Get("/freelancer/services",
		middleware.RequireRoles("freelancer"),
		serviceH.ListMine,
	)
	protected.Get("/freelancer/services/:id",
		middleware.RequireRoles("freelancer"),
		serviceH.GetOne,
	)
	protected.Put("/freelancer/services/:id",
		middleware.RequireRoles("freelancer"),
		serviceH.Update,
	)
	protected.Delete("/freelancer/services/:id",
		middleware.RequireRoles("freelancer"),
		serviceH.Deactivate,
	)
	protected.Patch("/freelancer/listings",
		middleware.RequireRoles("freelancer"),
		serviceH.BulkPatch,
	)

	// admin maintenance interface
	admin := protected.Group("/admin", middleware.RequireRoles("admin"))
	admin.Put("/config/:key", configH.Set)
	admin.Post("/maintenance/normalize-durations", adminH.NormalizeDurations)
	admin.Post("/maintenance/record-metrics", adminH.RecordMetrics)
	admin.Post("/maintenance/recount-metrics", adminH.RecountMetrics)
	admin.Post("/maintenance/promote-role", adminH.PromoteRole)
	admin.Post("/maintenance/verify-freelancer", adminH.VerifyFreelancer)
	admin.Get("/maintenance/actions", adminH.ListActions)

	// WebSocket endpoint (JWT via query param)
	app.Get("/ws/bookings", websocket.New(bookingH.WebSocketHandler))

	log.Fatal(app.Listen(":" + cfg.AppPort))
}
