package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"questStreakApp/internal/credentials"
	"questStreakApp/mockserver"
	"questStreakApp/monitoring"
	"questStreakApp/services"
)

const refreshInterval = 30 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	monitoring.InitPrometheus()

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	r := mux.NewRouter()
	r.Use(monitoring.MonitorMiddleware)

	r.Handle("/metrics", monitoring.BasicAuthMiddleware(promhttp.Handler()))
	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "quest-streak-sync"}`))
	}).Methods("GET")

	// When no remote service is configured, embed the stub and sync against
	// ourselves. The engine does not care which one it talks to.
	baseURL := os.Getenv("ENGAGEMENT_API_URL")
	var creds credentials.Provider = credentials.Env{}
	if baseURL == "" {
		signingKey := os.Getenv("STUB_SIGNING_KEY")
		if signingKey == "" {
			signingKey = "local-dev-secret"
		}
		stub := mockserver.New([]byte(signingKey))
		r.PathPrefix("/").Handler(stub.Router())
		baseURL = "http://127.0.0.1" + port

		if os.Getenv("SESSION_TOKEN") == "" {
			token, err := stub.MintToken("local-dev-user")
			if err != nil {
				log.Fatal("Failed to mint stub token:", err)
			}
			creds = credentials.Static(token)
		}
		log.Println("No ENGAGEMENT_API_URL set, running against embedded stub service")
	}

	engine := services.NewSyncService(services.SyncConfig{
		BaseURL:     baseURL,
		Credentials: creds,
	})
	defer engine.Close()

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	stop := make(chan struct{})
	go func() {
		// Give the listener a moment before the first sync cycle.
		time.Sleep(500 * time.Millisecond)
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			engine.RefreshAll(context.Background())

			stats := engine.StreakStats()
			quests := engine.DailyQuests()
			board := engine.Leaderboard()
			log.Printf("Synced: streak %d (best %d), %d/%d quests done, %d points, %d leaderboard entries",
				stats.CurrentStreak, stats.LongestStreak,
				quests.CompletedCount, quests.TotalCount,
				stats.TotalPoints, len(board.Entries))
			if msg := engine.Err(); msg != "" {
				log.Printf("Sync degraded, serving fallback data: %s", msg)
			}

			select {
			case <-ticker.C:
			case <-stop:
				return
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)
	close(stop)
	engine.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
