package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pairlink/pairlink-api/internal/domain/couple"
	"github.com/pairlink/pairlink-api/internal/domain/realtime"
	"github.com/pairlink/pairlink-api/internal/middleware"
	jwtpkg "github.com/pairlink/pairlink-api/internal/pkg/jwt"
	"github.com/pairlink/pairlink-api/internal/pkg/response"
)

func TestControllerClearsCacheOnUnboundWithoutHTTP(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		response.OK(w, nil)
	}))
	defer server.Close()

	userID := uuid.New()
	ctrl := NewController(New(server.URL, "token"), "ws://unused", "token", userID)
	ctrl.couple = &couple.CoupleResponse{ID: uuid.New()}

	payload, _ := json.Marshal(&realtime.CoupleUnboundPayload{CoupleID: ctrl.couple.ID})
	ctrl.handleEvent(&realtime.Event{Type: realtime.EventCoupleUnbound, Payload: payload})

	if got := ctrl.State(); got.Couple != nil || got.Partner != nil {
		t.Fatalf("expected cleared cache, got %+v", got)
	}
	if atomic.LoadInt64(&calls) != 0 {
		t.Fatalf("expected no HTTP calls, got %d", calls)
	}
}

func TestControllerBindErrorKeepsCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.BadRequest(w, "不能绑定自己")
	}))
	defer server.Close()

	userID := uuid.New()
	ctrl := NewController(New(server.URL, "token"), "ws://unused", "token", userID)

	_, err := ctrl.Bind(context.Background(), userID)
	if err == nil {
		t.Fatal("expected bind error")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Message != "不能绑定自己" {
		t.Fatalf("unexpected message: %s", apiErr.Message)
	}

	state := ctrl.State()
	if state.Couple != nil {
		t.Fatal("cache mutated on failed bind")
	}
	if state.LastErr == nil {
		t.Fatal("expected last error recorded")
	}
}

func TestControllerAcceptUpdatesCache(t *testing.T) {
	userID := uuid.New()
	partnerID := uuid.New()
	requestID := uuid.New()
	coupleID := uuid.New()

	mux := chi.NewRouter()
	mux.Post("/api/v1/couple/accept", func(w http.ResponseWriter, r *http.Request) {
		a, b := couple.OrderPair(userID, partnerID)
		response.OK(w, &couple.CoupleResponse{ID: coupleID, User1ID: a, User2ID: b})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ctrl := NewController(New(server.URL, "token"), "ws://unused", "token", userID)
	ctrl.pending = []*couple.BindRequestResponse{
		{ID: requestID, FromUserID: partnerID, ToUserID: userID},
	}

	resp, err := ctrl.Accept(context.Background(), requestID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if resp.ID != coupleID {
		t.Fatalf("expected couple %s, got %s", coupleID, resp.ID)
	}

	state := ctrl.State()
	if state.Couple == nil || state.Couple.ID != coupleID {
		t.Fatalf("expected cached couple, got %+v", state.Couple)
	}
	if len(state.Pending) != 0 {
		t.Fatalf("expected accepted request removed, got %+v", state.Pending)
	}
}

func TestControllerDispatchesRemoteUpdates(t *testing.T) {
	userID := uuid.New()
	partnerID := uuid.New()
	ctrl := NewController(New("http://unused", "token"), "ws://unused", "token", userID)

	var gotFrom uuid.UUID
	var gotData map[string]any
	ctrl.OnUpdate(func(fromUserID uuid.UUID, data map[string]any) {
		gotFrom = fromUserID
		gotData = data
	})

	payload := json.RawMessage(fmt.Sprintf(`{"kind":"note-edited","fromUserId":"%s"}`, partnerID))
	ctrl.handleEvent(&realtime.Event{Type: realtime.EventRemoteUpdate, Payload: payload})

	if gotFrom != partnerID {
		t.Fatalf("expected sender %s, got %s", partnerID, gotFrom)
	}
	if gotData["kind"] != "note-edited" {
		t.Fatalf("expected update data, got %#v", gotData)
	}
	if _, ok := gotData["fromUserId"]; ok {
		t.Fatal("fromUserId should be stripped from the data map")
	}
}

type allowAllValidator struct{}

func (allowAllValidator) ValidateCouple(ctx context.Context, coupleID, userID uuid.UUID) (bool, error) {
	return true, nil
}

func TestControllerConnectJoinsRoom(t *testing.T) {
	jwtService := jwtpkg.NewService("test-secret", time.Hour, 2*time.Hour)
	authMw := middleware.Auth(jwtService)

	hub := realtime.NewHub(nil)
	go hub.Run()
	defer hub.Shutdown()

	relay := realtime.NewHandler(allowAllValidator{}, hub, nil, nil)

	r := chi.NewRouter()
	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		token := req.URL.Query().Get("token")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		authMw(http.HandlerFunc(relay.WebSocket)).ServeHTTP(w, req)
	})
	server := httptest.NewServer(r)
	defer server.Close()

	userID := uuid.New()
	coupleID := uuid.New()
	token, err := jwtService.GenerateAccessToken(userID)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	wsAddr := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	ctrl := NewController(New(server.URL, token), wsAddr, token, userID)
	ctrl.couple = &couple.CoupleResponse{ID: coupleID}

	if err := ctrl.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer ctrl.Close()

	if !ctrl.State().Connected {
		t.Fatal("expected connected state")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.IsUserInRoom(coupleID, userID) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("timeout waiting for room join")
}
