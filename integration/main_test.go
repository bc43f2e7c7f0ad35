package integration_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"pizzeria-service/internal/app"
	"pizzeria-service/internal/config"
	"pizzeria-service/pkg/database"
	"pizzeria-service/pkg/logger"
)

const adminEmail = "admin@pizzeria.test"

var (
	testApp     *app.App
	testServer  *httptest.Server
	fakeGateway *fakeYooKassa
	dbPool      *pgxpool.Pool
	testConfig  *config.Config
	testLogger  *slog.Logger
)

func TestMain(m *testing.M) {
	if err := godotenv.Load("../.env"); err != nil {
		log.Printf("WARN: .env file not found or error loading it: %v", err)
	}

	testConfig = config.LoadTestConfig()

	log.Printf("Loaded test DB config: host=%s, port=%s, user=%s, name=%s",
		testConfig.TestDatabase.Host, testConfig.TestDatabase.Port,
		testConfig.TestDatabase.User, testConfig.TestDatabase.Name)

	testDbDSN := database.BuildDSN(
		testConfig.TestDatabase.Host, testConfig.TestDatabase.Port, testConfig.TestDatabase.User,
		testConfig.TestDatabase.Password, testConfig.TestDatabase.Name, testConfig.TestDatabase.SSLMode,
	)
	testLogger = logger.Setup(testConfig.Logger.Level, "pizzeria-service-test")

	var err error
	dbPool, err = database.NewPostgresPool(context.Background(), testDbDSN, testLogger)
	if err != nil {
		testLogger.Error("CRITICAL: Failed to connect to test database", slog.String("error", err.Error()))
		panic(fmt.Sprintf("Failed to connect to test database: %v", err))
	}
	testLogger.Info("Connected to TEST database successfully", slog.String("db_name", testConfig.TestDatabase.Name))

	runTestMigrations(testLogger, "file://../migrations", app.MigrationDatabaseURL(testConfig.TestDatabase))

	fakeGateway = newFakeYooKassa()
	gatewayServer := httptest.NewServer(fakeGateway)

	testConfig.YooKassa.BaseURL = gatewayServer.URL
	testConfig.YooKassa.ShopID = "test-shop"
	testConfig.YooKassa.SecretKey = "test-secret"
	testConfig.YooKassa.VerifyWithAPI = true
	testConfig.YooKassa.AllowedIPs = append(testConfig.YooKassa.AllowedIPs, "127.0.0.1", "::1")
	testConfig.Auth.AdminEmails = []string{adminEmail}
	testConfig.RateLimit.Burst = 100
	testConfig.Redis.Addr = ""
	testConfig.Kafka.Brokers = ""

	testApp, err = app.NewApp(testConfig, testLogger, dbPool)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize test app: %v", err))
	}
	testServer = httptest.NewServer(testApp.GetRouter())
	testLogger.Info("Test HTTP server started", slog.String("url", testServer.URL))

	exitCode := m.Run()

	testLogger.Info("Cleaning up test database...")
	clearTestDatabase(dbPool)
	testServer.Close()
	gatewayServer.Close()
	dbPool.Close()
	testLogger.Info("Test cleanup finished.")
	os.Exit(exitCode)
}

func runTestMigrations(log *slog.Logger, migrationsPath, databaseURL string) {
	log = log.With(slog.String("op", "RunTestMigrations"))
	log.Info("Attempting to apply migrations to TEST database...", slog.String("path", migrationsPath))

	m, err := migrate.New(migrationsPath, databaseURL)
	if err != nil {
		log.Error("FATAL: Failed to initialize migrate instance for test DB", slog.String("error", err.Error()))
		panic(fmt.Sprintf("Failed to init migrate for test DB: %v", err))
	}

	err = m.Up()
	_, dbErr := m.Close()
	if dbErr != nil {
		log.Error("Error closing migrate db connection", slog.String("error", dbErr.Error()))
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Error("FATAL: Failed to apply migrations to test DB", slog.String("error", err.Error()))
		panic(fmt.Sprintf("Failed to apply migrations to test DB: %v", err))
	}
	log.Info("Test database schema is up to date.")
}

// clearTestDatabase очищает пользовательские данные. Справочники и каталог из миграций остаются.
func clearTestDatabase(pool *pgxpool.Pool) {
	tables := []string{"outbox", "payments", "order_items", "orders", "cart_items", "addresses", "users"}

	for _, table := range tables {
		_, err := pool.Exec(context.Background(), fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table))
		if err != nil {
			testLogger.Error("Failed to truncate table", slog.String("table", table), slog.String("error", err.Error()))
		}
	}
	testLogger.Info("Test database tables truncated.")
}

// fakeYooKassa - минимальная эмуляция API платежей ЮKassa с состоянием в памяти.
type fakeYooKassa struct {
	mu       sync.Mutex
	payments map[string]map[string]any
	byKey    map[string]string
	failNext bool
}

func newFakeYooKassa() *fakeYooKassa {
	return &fakeYooKassa{payments: map[string]map[string]any{}, byKey: map[string]string{}}
}

func (f *fakeYooKassa) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if user, pass, ok := r.BasicAuth(); !ok || user != "test-shop" || pass != "test-secret" {
		writeFakeJSON(w, http.StatusUnauthorized, map[string]any{"type": "error", "code": "invalid_credentials"})
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.Method == http.MethodPost && len(parts) == 2 && parts[1] == "payments":
		f.create(w, r)
	case r.Method == http.MethodGet && len(parts) == 3:
		f.respond(w, parts[2])
	case r.Method == http.MethodPost && len(parts) == 4 && parts[3] == "capture":
		f.setStatus(parts[2], "succeeded")
		f.respond(w, parts[2])
	case r.Method == http.MethodPost && len(parts) == 4 && parts[3] == "cancel":
		f.setStatus(parts[2], "canceled")
		f.respond(w, parts[2])
	default:
		writeFakeJSON(w, http.StatusNotFound, map[string]any{"type": "error", "code": "not_found"})
	}
}

func (f *fakeYooKassa) create(w http.ResponseWriter, r *http.Request) {
	if f.failNext {
		f.failNext = false
		writeFakeJSON(w, http.StatusBadRequest, map[string]any{"type": "error", "code": "invalid_request", "description": "shop is blocked"})
		return
	}

	key := r.Header.Get("Idempotence-Key")
	if id, ok := f.byKey[key]; ok {
		f.respond(w, id)
		return
	}

	var req struct {
		Amount   map[string]string `json:"amount"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFakeJSON(w, http.StatusBadRequest, map[string]any{"type": "error", "code": "invalid_request"})
		return
	}

	id := uuid.NewString()
	f.byKey[key] = id
	f.payments[id] = map[string]any{
		"id":       id,
		"status":   "pending",
		"paid":     false,
		"amount":   req.Amount,
		"metadata": req.Metadata,
		"confirmation": map[string]string{
			"type":             "redirect",
			"confirmation_url": "https://yoomoney.test/checkout/" + id,
		},
	}
	f.respond(w, id)
}

func (f *fakeYooKassa) respond(w http.ResponseWriter, id string) {
	payment, ok := f.payments[id]
	if !ok {
		writeFakeJSON(w, http.StatusNotFound, map[string]any{"type": "error", "code": "not_found"})
		return
	}
	writeFakeJSON(w, http.StatusOK, payment)
}

func (f *fakeYooKassa) setStatus(id, status string) {
	if payment, ok := f.payments[id]; ok {
		payment["status"] = status
	}
}

// SetStatus меняет статус платежа так, как это сделал бы покупатель на странице оплаты.
func (f *fakeYooKassa) SetStatus(id, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setStatus(id, status)
}

// FailNextCreate заставляет следующий запрос создания платежа вернуть ошибку.
func (f *fakeYooKassa) FailNextCreate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = true
}

func writeFakeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
