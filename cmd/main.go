package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/Vovarama1992/wapp-ai-bridge/internal/ai"
	"github.com/Vovarama1992/wapp-ai-bridge/internal/shopify"
	"github.com/Vovarama1992/wapp-ai-bridge/internal/whatsapp"
)

func main() {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	// --- DB ---
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("db ping error: %v", err)
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// --- Tunables ---
	quietPeriod := envDuration("DEBOUNCE_QUIET_PERIOD", 10*time.Second)
	pollInterval := envDuration("RUN_POLL_INTERVAL", time.Second)
	runTimeout := envDuration("RUN_TIMEOUT", 30*time.Second)

	// --- WhatsApp module wiring ---
	repo := whatsapp.NewRepo(db)
	aiClient := ai.NewOpenAIClient()
	shopClient := shopify.NewShopifyClient()

	tools := whatsapp.NewToolDispatcher(shopClient, aiClient)
	runner := whatsapp.NewRunner(aiClient, tools, pollInterval, runTimeout)
	media := whatsapp.NewMediaDescriber(
		aiClient,
		os.Getenv("TWILIO_ACCOUNT_SID"),
		os.Getenv("TWILIO_AUTH_TOKEN"),
	)
	outbound := whatsapp.NewTwilioOutbound()

	svc := whatsapp.NewService(repo, aiClient, aiClient, media, runner, outbound, quietPeriod)
	handler := whatsapp.NewHandler(svc)

	whatsapp.RegisterRoutes(r, handler)

	// --- health ---
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	log.Printf("listening on :%s", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func envDuration(name string, def time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatalf("%s: bad duration %q: %v", name, raw, err)
	}
	return d
}
