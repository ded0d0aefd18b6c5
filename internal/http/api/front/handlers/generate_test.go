package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/reelcraft/reelcraft-server/internal/auth"
	"github.com/reelcraft/reelcraft-server/internal/ledger"
	"github.com/reelcraft/reelcraft-server/internal/models"
	"github.com/reelcraft/reelcraft-server/internal/provider"
	"github.com/reelcraft/reelcraft-server/internal/quota"
	"github.com/reelcraft/reelcraft-server/internal/ratelimit"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testIdentitySecret = "front-handler-test-secret"

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// In-memory sqlite is per-connection; pin the pool to one.
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		t.Fatalf("access pool: %v", errDB)
	}
	sqlDB.SetMaxOpenConns(1)
	if errMigrate := conn.AutoMigrate(
		&models.Subscription{},
		&models.PlanLimit{},
		&models.Usage{},
		&models.UsageLog{},
	); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

// newGrokStub serves a canned chat completion.
func newGrokStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"content": "stub script"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 34}
		}`))
	}))
}

// newGeminiStub serves both image and video generation responses.
func newGeminiStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if bytes.Contains([]byte(r.URL.Path), []byte("predictLongRunning")) {
			_, _ = w.Write([]byte(`{"name": "operations/video-123"}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"inlineData": {"mimeType": "image/png", "data": "aW1n"}}]}}]
		}`))
	}))
}

type testEnv struct {
	engine *gin.Engine
	conn   *gorm.DB
}

func newTestEnv(t *testing.T, grokURL, geminiURL string, maxRequests int) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn := openTestDB(t)

	limiter := ratelimit.NewManager(func() ratelimit.SettingsConfig {
		return ratelimit.SettingsConfig{MaxRequests: maxRequests, WindowSeconds: 60}
	}, nil, nil)

	handler := NewGenerateHandler(
		quota.NewService(conn, nil),
		limiter,
		ledger.NewLedger(conn),
		provider.NewGrokClient("test-key", grokURL),
		provider.NewGeminiClient("test-key", geminiURL),
		maxRequests, 60,
	)

	engine := gin.New()
	authed := engine.Group("/v1")
	authed.Use(auth.RequireAuth(auth.NewGateway(conn, testIdentitySecret)))
	authed.POST("/generate/script", handler.Script)
	authed.POST("/generate/image", handler.Image)
	authed.POST("/generate/video", handler.Video)
	authed.GET("/usage", NewUsageHandler(quota.NewService(conn, nil)).Summary)

	return testEnv{engine: engine, conn: conn}
}

func bearerToken(t *testing.T, userID string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": userID + "@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testIdentitySecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	encoded, errMarshal := json.Marshal(payload)
	if errMarshal != nil {
		t.Fatalf("encode payload: %v", errMarshal)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestScriptPipelinePersistsUsage(t *testing.T) {
	grok := newGrokStub(t)
	defer grok.Close()
	env := newTestEnv(t, grok.URL, "", 100)
	if errSeed := env.conn.Create(&models.PlanLimit{Plan: models.PlanFree, ScriptsPerMonth: 5}).Error; errSeed != nil {
		t.Fatalf("seed plan: %v", errSeed)
	}

	rec := doJSON(t, env.engine, http.MethodPost, "/v1/generate/script", bearerToken(t, "user-1"), gin.H{"topic": "spring sale"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp["script"] != "stub script" {
		t.Fatalf("unexpected script payload: %v", resp["script"])
	}

	var usage models.Usage
	if errFind := env.conn.Where("user_id = ?", "user-1").First(&usage).Error; errFind != nil {
		t.Fatalf("load usage row: %v", errFind)
	}
	if usage.ScriptsGenerated != 1 {
		t.Fatalf("expected 1 script counted, got %d", usage.ScriptsGenerated)
	}

	var logRow models.UsageLog
	if errFind := env.conn.Where("user_id = ?", "user-1").First(&logRow).Error; errFind != nil {
		t.Fatalf("load ledger row: %v", errFind)
	}
	if !logRow.Success || logRow.InputTokens != 12 || logRow.OutputTokens != 34 {
		t.Fatalf("unexpected ledger row: %+v", logRow)
	}
}

func TestScriptQuotaExhausted(t *testing.T) {
	grok := newGrokStub(t)
	defer grok.Close()
	env := newTestEnv(t, grok.URL, "", 100)
	if errSeed := env.conn.Create(&models.PlanLimit{Plan: models.PlanFree, ScriptsPerMonth: 1}).Error; errSeed != nil {
		t.Fatalf("seed plan: %v", errSeed)
	}

	token := bearerToken(t, "user-2")
	if rec := doJSON(t, env.engine, http.MethodPost, "/v1/generate/script", token, gin.H{"topic": "a"}); rec.Code != http.StatusOK {
		t.Fatalf("first call: expected 200, got %d", rec.Code)
	}
	rec := doJSON(t, env.engine, http.MethodPost, "/v1/generate/script", token, gin.H{"topic": "b"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second call: expected 429, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp["limit"] != float64(1) {
		t.Fatalf("expected limit 1 in rejection, got %v", resp["limit"])
	}

	// The rejected call must not have reached the provider counter.
	var usage models.Usage
	if errFind := env.conn.Where("user_id = ?", "user-2").First(&usage).Error; errFind != nil {
		t.Fatalf("load usage row: %v", errFind)
	}
	if usage.ScriptsGenerated != 1 {
		t.Fatalf("expected usage to stay at 1, got %d", usage.ScriptsGenerated)
	}
}

func TestScriptRateLimited(t *testing.T) {
	grok := newGrokStub(t)
	defer grok.Close()
	env := newTestEnv(t, grok.URL, "", 1)
	if errSeed := env.conn.Create(&models.PlanLimit{Plan: models.PlanFree, ScriptsPerMonth: 100}).Error; errSeed != nil {
		t.Fatalf("seed plan: %v", errSeed)
	}

	token := bearerToken(t, "user-3")
	if rec := doJSON(t, env.engine, http.MethodPost, "/v1/generate/script", token, gin.H{"topic": "a"}); rec.Code != http.StatusOK {
		t.Fatalf("first call: expected 200, got %d", rec.Code)
	}
	rec := doJSON(t, env.engine, http.MethodPost, "/v1/generate/script", token, gin.H{"topic": "b"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second call: expected 429, got %d", rec.Code)
	}
	var resp map[string]any
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if _, ok := resp["reset_in_seconds"]; !ok {
		t.Fatalf("expected reset_in_seconds in rejection body")
	}
}

func TestScriptRequiresTopic(t *testing.T) {
	env := newTestEnv(t, "", "", 100)
	rec := doJSON(t, env.engine, http.MethodPost, "/v1/generate/script", bearerToken(t, "user-4"), gin.H{"topic": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestScriptRequiresAuth(t *testing.T) {
	env := newTestEnv(t, "", "", 100)
	rec := doJSON(t, env.engine, http.MethodPost, "/v1/generate/script", "", gin.H{"topic": "x"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestScriptProviderFailureRecordedNotCounted(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "upstream exploded"}}`))
	}))
	defer failing.Close()

	env := newTestEnv(t, failing.URL, "", 100)
	if errSeed := env.conn.Create(&models.PlanLimit{Plan: models.PlanFree, ScriptsPerMonth: 5}).Error; errSeed != nil {
		t.Fatalf("seed plan: %v", errSeed)
	}

	rec := doJSON(t, env.engine, http.MethodPost, "/v1/generate/script", bearerToken(t, "user-5"), gin.H{"topic": "x"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}

	// Failed calls are logged but never counted against the quota.
	var logRow models.UsageLog
	if errFind := env.conn.Where("user_id = ?", "user-5").First(&logRow).Error; errFind != nil {
		t.Fatalf("load ledger row: %v", errFind)
	}
	if logRow.Success {
		t.Fatalf("expected ledger row marked failed")
	}
	var count int64
	if errCount := env.conn.Model(&models.Usage{}).Where("user_id = ?", "user-5").Count(&count).Error; errCount != nil {
		t.Fatalf("count usage rows: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected no usage row after failed call, got %d", count)
	}
}

func TestImagePipeline(t *testing.T) {
	gemini := newGeminiStub(t)
	defer gemini.Close()
	env := newTestEnv(t, "", gemini.URL, 100)
	if errSeed := env.conn.Create(&models.PlanLimit{Plan: models.PlanFree, ImagesPerMonth: 3}).Error; errSeed != nil {
		t.Fatalf("seed plan: %v", errSeed)
	}

	rec := doJSON(t, env.engine, http.MethodPost, "/v1/generate/image", bearerToken(t, "user-6"), gin.H{"prompt": "product shot"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var usage models.Usage
	if errFind := env.conn.Where("user_id = ?", "user-6").First(&usage).Error; errFind != nil {
		t.Fatalf("load usage row: %v", errFind)
	}
	if usage.ImagesGenerated != 1 {
		t.Fatalf("expected 1 image counted, got %d", usage.ImagesGenerated)
	}
}

func TestVideoPipeline(t *testing.T) {
	gemini := newGeminiStub(t)
	defer gemini.Close()
	env := newTestEnv(t, "", gemini.URL, 100)
	if errSeed := env.conn.Create(&models.PlanLimit{Plan: models.PlanFree, VideosPerMonth: 2}).Error; errSeed != nil {
		t.Fatalf("seed plan: %v", errSeed)
	}

	rec := doJSON(t, env.engine, http.MethodPost, "/v1/generate/video", bearerToken(t, "user-7"), gin.H{"prompt": "launch teaser", "duration_seconds": 8})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp["operation_id"] != "operations/video-123" {
		t.Fatalf("unexpected operation id: %v", resp["operation_id"])
	}
	if resp["duration_seconds"] != float64(8) {
		t.Fatalf("unexpected duration: %v", resp["duration_seconds"])
	}
}
