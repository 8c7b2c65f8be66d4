package couple

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pairlink/pairlink-api/internal/middleware"
	"github.com/pairlink/pairlink-api/internal/pkg/jwt"
)

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T, userIDs ...uuid.UUID) (*httptest.Server, *jwt.Service, *fakeRepo) {
	t.Helper()

	svc, repo, _ := newTestService(userIDs...)
	jwtService := jwt.NewService("test-secret", time.Hour, 24*time.Hour)
	handler := NewHandler(svc)

	r := chi.NewRouter()
	r.Mount("/couple", handler.Routes(middleware.Auth(jwtService)))

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, jwtService, repo
}

func doJSON(t *testing.T, server *httptest.Server, jwtService *jwt.Service, userID uuid.UUID, method, path string, body any) (*http.Response, testEnvelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, server.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	token, err := jwtService.GenerateAccessToken(userID)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var env testEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp, env
}

func TestBindSelfReturnsChineseMessage(t *testing.T) {
	u1 := uuid.New()
	server, jwtService, _ := newTestServer(t, u1)

	resp, env := doJSON(t, server, jwtService, u1, http.MethodPost, "/couple/bind",
		map[string]string{"partnerId": u1.String()})

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Message != "不能绑定自己" {
		t.Fatalf("expected self-bind message, got %+v", env.Error)
	}
}

func TestBindMissingPartnerReturns400(t *testing.T) {
	u1 := uuid.New()
	server, jwtService, _ := newTestServer(t, u1)

	resp, env := doJSON(t, server, jwtService, u1, http.MethodPost, "/couple/bind",
		map[string]string{})

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Message != "partnerId is required" {
		t.Fatalf("expected missing-partner message, got %+v", env.Error)
	}
}

func TestBindUnknownPartner(t *testing.T) {
	u1 := uuid.New()
	server, jwtService, _ := newTestServer(t, u1)

	resp, _ := doJSON(t, server, jwtService, u1, http.MethodPost, "/couple/bind",
		map[string]string{"partnerId": uuid.New().String()})

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestBindRequiresAuth(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/couple/bind", "application/json",
		bytes.NewBufferString(`{"partnerId":"x"}`))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestBindAcceptFlow(t *testing.T) {
	u1, u2 := uuid.New(), uuid.New()
	server, jwtService, _ := newTestServer(t, u1, u2)

	// u1 sends request to u2
	resp, env := doJSON(t, server, jwtService, u1, http.MethodPost, "/couple/bind",
		map[string]string{"partnerId": u2.String()})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bind: expected 200, got %d", resp.StatusCode)
	}

	// u2 sees it in its pending list
	resp, env = doJSON(t, server, jwtService, u2, http.MethodGet, "/couple/requests", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("requests: expected 200, got %d", resp.StatusCode)
	}
	var pending []*BindRequestResponse
	if err := json.Unmarshal(env.Data, &pending); err != nil {
		t.Fatalf("decode pending: %v", err)
	}
	if len(pending) != 1 || pending[0].FromUserID != u1 {
		t.Fatalf("expected 1 pending request from %s, got %+v", u1, pending)
	}

	// u1 cannot accept its own request
	resp, _ = doJSON(t, server, jwtService, u1, http.MethodPost, "/couple/accept",
		map[string]string{"requestId": pending[0].ID.String()})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("own accept: expected 403, got %d", resp.StatusCode)
	}

	// u2 accepts
	resp, env = doJSON(t, server, jwtService, u2, http.MethodPost, "/couple/accept",
		map[string]string{"requestId": pending[0].ID.String()})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d", resp.StatusCode)
	}
	var cpl CoupleResponse
	if err := json.Unmarshal(env.Data, &cpl); err != nil {
		t.Fatalf("decode couple: %v", err)
	}

	// Both sides now resolve the same relation
	for _, uid := range []uuid.UUID{u1, u2} {
		resp, env = doJSON(t, server, jwtService, uid, http.MethodGet, "/couple/relation", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("relation: expected 200, got %d", resp.StatusCode)
		}
		var rel CoupleResponse
		if err := json.Unmarshal(env.Data, &rel); err != nil {
			t.Fatalf("decode relation: %v", err)
		}
		if rel.ID != cpl.ID {
			t.Fatalf("expected couple %s, got %s", cpl.ID, rel.ID)
		}
	}

	// A second bind attempt now conflicts
	resp, _ = doJSON(t, server, jwtService, u1, http.MethodPost, "/couple/bind",
		map[string]string{"partnerId": u2.String()})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bind while paired: expected 400, got %d", resp.StatusCode)
	}
}

func TestRelationNullWhenUnpaired(t *testing.T) {
	u1 := uuid.New()
	server, jwtService, _ := newTestServer(t, u1)

	resp, env := doJSON(t, server, jwtService, u1, http.MethodGet, "/couple/relation", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if string(env.Data) != "null" && len(env.Data) != 0 {
		t.Fatalf("expected null data, got %s", env.Data)
	}
}

func TestValidateMalformedID(t *testing.T) {
	u1 := uuid.New()
	server, jwtService, _ := newTestServer(t, u1)

	resp, env := doJSON(t, server, jwtService, u1, http.MethodPost, "/couple/validate",
		map[string]string{"coupleId": "not-a-uuid"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out ValidateResponse
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Valid {
		t.Fatal("expected valid=false for malformed id")
	}
}

func TestUnbindWithoutCouple(t *testing.T) {
	u1 := uuid.New()
	server, jwtService, _ := newTestServer(t, u1)

	resp, _ := doJSON(t, server, jwtService, u1, http.MethodPost, "/couple/unbind", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
