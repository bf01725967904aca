package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/sgerasev/hometask/docs"
	"github.com/sgerasev/hometask/internal/access"
	"github.com/sgerasev/hometask/internal/config"
	"github.com/sgerasev/hometask/internal/database"
	"github.com/sgerasev/hometask/internal/group"
	"github.com/sgerasev/hometask/internal/homework"
	"github.com/sgerasev/hometask/internal/vkapi"
	"github.com/sgerasev/hometask/internal/vkauth"
	mw "github.com/sgerasev/hometask/pkg/middleware"
)

// @title        Hometask API
// @version      1.0
// @description  Backend for the homework-sharing VK Mini App
// @BasePath     /api/v1
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()

	verifierMode := vkauth.ModeDevelopment
	if cfg.IsProduction() {
		if cfg.VKSecretKey == "" {
			log.Fatal("VK_SECRET_KEY is required in production")
		}
		if cfg.VKServiceToken == "" {
			log.Fatal("VK_SERVICE_TOKEN is required in production")
		}
		verifierMode = vkauth.ModeProduction
	} else {
		log.Printf("Running in %s stage with test user %s, VK signature checking is off", cfg.Stage, cfg.TestUserID)
	}

	// Initialize database connection
	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Connected to database successfully")

	verifier := vkauth.NewVerifier(cfg.VKSecretKey, verifierMode, cfg.TestUserID)
	vkClient := vkapi.NewClient(cfg.VKServiceToken)

	// Group feature (the access guard reads through the group repository)
	groupRepo := group.NewRepository(db)
	guard := access.NewGuard(groupRepo)
	groupService := group.NewService(groupRepo, guard, vkClient)
	groupHandler := group.NewHandler(groupService)

	// Homework feature
	homeworkRepo := homework.NewRepository(db)
	homeworkService := homework.NewService(homeworkRepo, guard)
	homeworkHandler := homework.NewHandler(homeworkService)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/swagger/*", httpSwagger.Handler())

	// API routes, all behind VK launch-params auth
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.VKAuth(verifier))

		r.Mount("/groups", groupHandler.Routes())
		r.Mount("/homework", homeworkHandler.Routes())
	})

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
