// cmd/api/main.go
// Main entry point for the Connect discovery pipeline API.
// Bootstraps all components and starts the server.

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tpg-connect/connect-backend/internal/actions"
	"github.com/tpg-connect/connect-backend/internal/auth"
	"github.com/tpg-connect/connect-backend/internal/common/database"
	"github.com/tpg-connect/connect-backend/internal/common/utils"
	"github.com/tpg-connect/connect-backend/internal/config"
	"github.com/tpg-connect/connect-backend/internal/directory"
	"github.com/tpg-connect/connect-backend/internal/matches"
	"github.com/tpg-connect/connect-backend/internal/matchpool"
	"github.com/tpg-connect/connect-backend/internal/notify"
	"github.com/tpg-connect/connect-backend/internal/safety"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting Connect discovery API")

	// 1. Environment
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found (%v), using environment variables", err)
	}

	// 2. Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuration validation failed: ", err)
	}

	// 3. PostgreSQL
	db, err := database.NewPostgresDB(cfg.DatabaseURL, database.DefaultPostgresConfig())
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL: ", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// 4. Redis (optional; pool generation falls back to the DB constraint)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Printf("Redis unavailable (%v), continuing without it", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Println("Connected to Redis")
		}
	}

	// 5. Migrations
	if err := runMigrations(db); err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}
	log.Println("Database migrations completed")

	// 6. Wiring
	var notifier notify.Notifier
	if redisClient != nil {
		notifier = notify.NewRedisNotifier(redisClient)
	} else {
		notifier = notify.NewLogNotifier()
	}

	var locker matchpool.Locker
	if redisClient != nil {
		locker = matchpool.NewRedisLocker(redisClient)
	} else {
		locker = matchpool.NewNoopLocker()
	}

	dir := directory.NewPostgresDirectory(db)

	safetyRepo := safety.NewPostgresRepository(db)
	safetyService := safety.NewService(safetyRepo)
	safetyHandler := safety.NewHandler(safetyService)

	matchRepo := matches.NewPostgresRepository(db)

	actionRepo := actions.NewRepository(db)

	poolRepo := matchpool.NewRepository(db)
	generator := matchpool.NewGenerator(matchpool.GeneratorConfig{
		PoolSize:       cfg.PoolSize,
		MinPoolSize:    cfg.MinPoolSize,
		InterestWeight: cfg.InterestWeight,
		DistanceWeight: cfg.DistanceWeight,
		IntentWeight:   cfg.IntentWeight,
	})
	poolService := matchpool.NewService(poolRepo, generator, locker, dir, safetyService, actionRepo, notifier, matchpool.ServiceConfig{
		ReleaseHour:       cfg.ReleaseHour,
		BatchSize:         cfg.DiscoveryBatchSize,
		LookbackDays:      cfg.ActionLookbackDays,
		AlgorithmVersion:  cfg.AlgorithmVersion,
		GenerationLockTTL: cfg.GenerationLockTTL,
		LookupTimeout:     cfg.LookupTimeout,
	})
	poolHandler := matchpool.NewHandler(poolService)

	processor := actions.NewProcessor(actionRepo, matchRepo, safetyService, dir, notifier, poolService, cfg.ActionLookbackDays)
	reconciler := actions.NewReconciler(processor, matchRepo, dir, poolService, actions.ReconcilerConfig{
		ActiveInterval:  cfg.SyncIntervalActive,
		IdleInterval:    cfg.SyncIntervalIdle,
		FullResyncAfter: cfg.FullResyncAfter,
	})
	actionHandler := actions.NewHandler(processor, reconciler)

	authMiddleware := auth.NewMiddleware(cfg.JWTSecret)

	// 7. Routes
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			utils.RespondWithError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
		utils.RespondWithMessage(w, http.StatusOK, "ok")
	}).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	matchpool.RegisterRoutes(router, poolHandler, authMiddleware)
	actions.RegisterRoutes(router, actionHandler, authMiddleware)
	safety.RegisterRoutes(router, safetyHandler, authMiddleware)

	// 8. Scheduler
	scheduler := matchpool.NewScheduler(poolService, poolRepo, cfg.ReleaseHour)
	scheduler.Start(ctx)
	log.Printf("Pool scheduler started (release hour %02d:00)", cfg.ReleaseHour)

	// 9. Serve
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			age INT NOT NULL,
			gender TEXT NOT NULL DEFAULT '',
			primary_photo_url TEXT NOT NULL DEFAULT '',
			job_title TEXT NOT NULL DEFAULT '',
			company TEXT NOT NULL DEFAULT '',
			university TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			dating_intention TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
			longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS profile_interests (
			user_id TEXT NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
			interest TEXT NOT NULL,
			PRIMARY KEY (user_id, interest)
		)`,

		`CREATE TABLE IF NOT EXISTS discovery_preferences (
			user_id TEXT PRIMARY KEY REFERENCES profiles(user_id) ON DELETE CASCADE,
			min_age INT NOT NULL DEFAULT 18,
			max_age INT NOT NULL DEFAULT 99,
			max_distance_km DOUBLE PRECISION NOT NULL DEFAULT 100,
			preferred_genders TEXT[] NOT NULL DEFAULT '{}'
		)`,

		`CREATE TABLE IF NOT EXISTS user_blocks (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			blocked_user_id TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			blocked_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, blocked_user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_blocks_blocked ON user_blocks(blocked_user_id) WHERE status = 'ACTIVE'`,

		`CREATE TABLE IF NOT EXISTS safety_block_rules (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			rule_type TEXT NOT NULL,
			pattern TEXT NOT NULL,
			case_sensitive BOOLEAN NOT NULL DEFAULT FALSE,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			description TEXT NOT NULL DEFAULT '',
			match_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_safety_rules_user ON safety_block_rules(user_id)`,

		`CREATE TABLE IF NOT EXISTS user_reports (
			id TEXT PRIMARY KEY,
			reporter_id TEXT NOT NULL,
			reported_id TEXT NOT NULL,
			reason TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'PENDING',
			reported_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_reports_reported ON user_reports(reported_id, reported_at)`,

		`CREATE TABLE IF NOT EXISTS match_pools (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			pool_date TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'READY',
			algorithm_version TEXT NOT NULL DEFAULT '',
			filters JSONB NOT NULL DEFAULT '{}',
			consumption_cursor INT NOT NULL DEFAULT 0,
			total_entries INT NOT NULL DEFAULT 0,
			actions_submitted INT NOT NULL DEFAULT 0,
			matches_found INT NOT NULL DEFAULT 0,
			low_supply BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			completed_at TIMESTAMPTZ,
			UNIQUE (user_id, pool_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_match_pools_user_date ON match_pools(user_id, pool_date DESC)`,

		`CREATE TABLE IF NOT EXISTS pool_entries (
			pool_id TEXT NOT NULL REFERENCES match_pools(id) ON DELETE CASCADE,
			position INT NOT NULL,
			candidate_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			age INT NOT NULL DEFAULT 0,
			primary_photo_url TEXT NOT NULL DEFAULT '',
			job_title TEXT NOT NULL DEFAULT '',
			dating_intention TEXT NOT NULL DEFAULT '',
			distance_km DOUBLE PRECISION NOT NULL DEFAULT 0,
			score DOUBLE PRECISION NOT NULL DEFAULT 0,
			shared_interests JSONB NOT NULL DEFAULT '[]',
			reason TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (pool_id, position)
		)`,

		`CREATE TABLE IF NOT EXISTS user_actions (
			id BIGSERIAL PRIMARY KEY,
			owner_id TEXT NOT NULL,
			idempotency_key TEXT NOT NULL,
			target_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			fail_reason TEXT,
			pool_date TEXT NOT NULL DEFAULT '',
			submitted_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (owner_id, idempotency_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_actions_owner_target ON user_actions(owner_id, target_id)`,

		`CREATE TABLE IF NOT EXISTS matches (
			pair_key TEXT PRIMARY KEY,
			user1_id TEXT NOT NULL,
			user2_id TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			matched_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			ended_by TEXT,
			ended_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_user1 ON matches(user1_id) WHERE status = 'ACTIVE'`,
		`CREATE INDEX IF NOT EXISTS idx_matches_user2 ON matches(user2_id) WHERE status = 'ACTIVE'`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}
