package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rachajunto/backend/internal/auth"
	"github.com/rachajunto/backend/internal/handlers"
	"github.com/rachajunto/backend/internal/metrics"
	"github.com/rachajunto/backend/internal/routes"
	"github.com/rachajunto/backend/internal/storage/sqlite"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	m := metrics.New()
	h := handlers.New(store, auth.NewPasswordAuthenticator(store), jwtManager, m)

	app := fiber.New()
	routes.Setup(app, h, jwtManager, m)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	decoded := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp.StatusCode, decoded
}

func registerUser(t *testing.T, app *fiber.App, email, username string) string {
	t.Helper()

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email":    email,
		"name":     username,
		"username": username,
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, status)
	token, ok := body["token"].(string)
	require.True(t, ok, "response missing token")
	return token
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t)

	token := registerUser(t, app, "maria@example.com", "maria")

	status, body := doJSON(t, app, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "maria@example.com", body["email"])

	// Login with the right and wrong credentials.
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email": "maria@example.com", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email": "maria@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	// Duplicate email conflicts.
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email": "maria@example.com", "name": "other", "username": "other_maria", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusConflict, status)

	// Protected routes reject missing tokens.
	status, _ = doJSON(t, app, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// Weak passwords are rejected on registration.
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email": "short@example.com", "name": "short", "username": "shortpw", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPoolSettlementFlow(t *testing.T) {
	app := newTestApp(t)

	ownerToken := registerUser(t, app, "owner@example.com", "owner")
	memberToken := registerUser(t, app, "member@example.com", "member")

	// Owner creates a group; the other user joins it.
	status, body := doJSON(t, app, http.MethodPost, "/api/v1/groups/", ownerToken, map[string]any{
		"name": "Apartamento 42",
	})
	require.Equal(t, http.StatusCreated, status)
	groupID := body["id"].(string)

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/groups/"+groupID+"/join", memberToken, nil)
	require.Equal(t, http.StatusCreated, status)

	// Plain members cannot create pools.
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/groups/"+groupID+"/pools", memberToken, map[string]any{
		"title": "Internet", "pool_type": "one-time", "total_amount": "480.00",
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = doJSON(t, app, http.MethodPost, "/api/v1/groups/"+groupID+"/pools", ownerToken, map[string]any{
		"title": "Internet", "pool_type": "one-time", "total_amount": "480.00",
	})
	require.Equal(t, http.StatusCreated, status)
	poolID := body["id"].(string)
	assert.Equal(t, "480.00", body["total_amount"])
	assert.Equal(t, "open", body["status"])

	// First joiner carries the whole total, second join splits it evenly.
	status, body = doJSON(t, app, http.MethodPost, "/api/v1/pools/"+poolID+"/join", ownerToken, nil)
	require.Equal(t, http.StatusCreated, status)
	participants := body["participants"].([]any)
	require.Len(t, participants, 1)
	assert.Equal(t, "480.00", participants[0].(map[string]any)["share_amount"])

	status, body = doJSON(t, app, http.MethodPost, "/api/v1/pools/"+poolID+"/join", memberToken, nil)
	require.Equal(t, http.StatusCreated, status)
	participants = body["participants"].([]any)
	require.Len(t, participants, 2)
	for _, p := range participants {
		assert.Equal(t, "240.00", p.(map[string]any)["share_amount"])
	}

	// Joining twice conflicts.
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/pools/"+poolID+"/join", memberToken, nil)
	assert.Equal(t, http.StatusConflict, status)

	// First payment activates the pool.
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/pools/"+poolID+"/pay", ownerToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, app, http.MethodGet, "/api/v1/pools/"+poolID, ownerToken, nil)
	require.Equal(t, http.StatusOK, status)
	pool := body["pool"].(map[string]any)
	progress := body["progress"].(map[string]any)
	assert.Equal(t, "active", pool["status"])
	assert.Equal(t, float64(1), progress["paid_count"])
	assert.Equal(t, "240.00", progress["paid_amount"])
	assert.Equal(t, "240.00", progress["remaining_amount"])

	// Paying twice conflicts, and the last payment completes the pool.
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/pools/"+poolID+"/pay", ownerToken, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/pools/"+poolID+"/pay", memberToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, app, http.MethodGet, "/api/v1/pools/"+poolID, ownerToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", body["pool"].(map[string]any)["status"])
	assert.Equal(t, "0.00", body["progress"].(map[string]any)["remaining_amount"])

	// Completed pools admit no one.
	lateToken := registerUser(t, app, "late@example.com", "latecomer")
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/pools/"+poolID+"/join", lateToken, nil)
	assert.Equal(t, http.StatusConflict, status)

	// The creator's wallet now holds the collected total.
	status, body = doJSON(t, app, http.MethodGet, "/api/v1/wallet/", ownerToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "480.00", body["balance"])

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/wallet/withdrawals", ownerToken, map[string]any{
		"amount": "100.00", "destination_key": "maria@pix.example.com",
	})
	assert.Equal(t, http.StatusCreated, status)

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/wallet/withdrawals", ownerToken, map[string]any{
		"amount": "500.00", "destination_key": "maria@pix.example.com",
	})
	assert.Equal(t, http.StatusConflict, status)

	// A signed fraction must fail validation, not sneak a negative amount
	// past the balance check.
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/wallet/withdrawals", ownerToken, map[string]any{
		"amount": "0.-5", "destination_key": "maria@pix.example.com",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = doJSON(t, app, http.MethodGet, "/api/v1/wallet/", ownerToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "380.00", body["balance"])
}

func TestJoinReconciliation(t *testing.T) {
	app := newTestApp(t)

	ownerToken := registerUser(t, app, "ana@example.com", "ana")
	secondToken := registerUser(t, app, "rui@example.com", "rui")
	thirdToken := registerUser(t, app, "bia@example.com", "bia")

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/groups/", ownerToken, map[string]any{
		"name": "Streaming",
	})
	require.Equal(t, http.StatusCreated, status)
	groupID := body["id"].(string)

	status, body = doJSON(t, app, http.MethodPost, "/api/v1/groups/"+groupID+"/pools", ownerToken, map[string]any{
		"title": "Assinatura", "pool_type": "one-time", "total_amount": "300.00",
	})
	require.Equal(t, http.StatusCreated, status)
	poolID := body["id"].(string)

	// Two participants at 150.00 each; the owner pays, then a third joiner
	// shrinks every share to 100.00. The response must flag the owner's
	// stale payment.
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/pools/"+poolID+"/join", ownerToken, nil)
	require.Equal(t, http.StatusCreated, status)
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/pools/"+poolID+"/join", secondToken, nil)
	require.Equal(t, http.StatusCreated, status)
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/pools/"+poolID+"/pay", ownerToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, app, http.MethodPost, "/api/v1/pools/"+poolID+"/join", thirdToken, nil)
	require.Equal(t, http.StatusCreated, status)

	reconciliations := body["reconciliations"].([]any)
	require.Len(t, reconciliations, 1)
	rec := reconciliations[0].(map[string]any)
	assert.Equal(t, "150.00", rec["paid_share"])
	assert.Equal(t, "100.00", rec["new_share"])
}

func TestMembershipRoutes(t *testing.T) {
	app := newTestApp(t)

	ownerToken := registerUser(t, app, "dona@example.com", "dona")
	adminToken := registerUser(t, app, "gestor@example.com", "gestor")
	memberToken := registerUser(t, app, "novato@example.com", "novato")

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/groups/", ownerToken, map[string]any{
		"name": "Churrasco", "visibility": "public",
	})
	require.Equal(t, http.StatusCreated, status)
	groupID := body["id"].(string)

	status, memberBody := doJSON(t, app, http.MethodGet, "/api/v1/auth/me", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	adminID := memberBody["id"].(string)

	status, memberBody = doJSON(t, app, http.MethodGet, "/api/v1/auth/me", memberToken, nil)
	require.Equal(t, http.StatusOK, status)
	memberID := memberBody["id"].(string)

	for _, token := range []string{adminToken, memberToken} {
		status, _ = doJSON(t, app, http.MethodPost, "/api/v1/groups/"+groupID+"/join", token, nil)
		require.Equal(t, http.StatusCreated, status)
	}

	// Only the owner may promote.
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/groups/"+groupID+"/members/"+adminID+"/promote", memberToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = doJSON(t, app, http.MethodPost, "/api/v1/groups/"+groupID+"/members/"+adminID+"/promote", ownerToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "admin", body["role"])

	// Admins can remove members but not other admins or the owner.
	status, _ = doJSON(t, app, http.MethodDelete, "/api/v1/groups/"+groupID+"/members/"+memberID, adminToken, nil)
	require.Equal(t, http.StatusNoContent, status)

	// Removed members can rejoin, starting over as plain members.
	status, body = doJSON(t, app, http.MethodPost, "/api/v1/groups/"+groupID+"/join", memberToken, nil)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "member", body["role"])

	// Public groups show up in discovery for everyone.
	outsiderToken := registerUser(t, app, "fora@example.com", "defora")
	status, body = doJSON(t, app, http.MethodGet, "/api/v1/groups/?discover=true", outsiderToken, nil)
	require.Equal(t, http.StatusOK, status)
	groups := body["groups"].([]any)
	require.Len(t, groups, 1)
	assert.Equal(t, "Churrasco", groups[0].(map[string]any)["name"])
}

func TestProfileRoutes(t *testing.T) {
	app := newTestApp(t)

	token := registerUser(t, app, "perfil@example.com", "perfil")

	status, body := doJSON(t, app, http.MethodPut, "/api/v1/profile", token, map[string]any{
		"name": "Novo Nome", "username": "novo_nome", "avatar_url": "https://cdn.example.com/a.png",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "novo_nome", body["username"])
	userID := body["id"].(string)

	// Public profiles omit the email.
	otherToken := registerUser(t, app, "outra@example.com", "outra")
	status, body = doJSON(t, app, http.MethodGet, "/api/v1/users/"+userID, otherToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Novo Nome", body["name"])
	assert.NotContains(t, body, "email")
}
