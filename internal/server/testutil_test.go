package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/typerace/internal/database"
	"github.com/playperu/typerace/internal/docstore"
	"github.com/playperu/typerace/internal/identity"
	"github.com/playperu/typerace/internal/leaderboard"
	"github.com/playperu/typerace/internal/migrations"
	"github.com/playperu/typerace/internal/profile"
	"github.com/playperu/typerace/internal/rooms"
	"github.com/playperu/typerace/internal/typerace"
)

const adminPassword = "hunter22"

type testEnv struct {
	srv      *httptest.Server
	store    *docstore.Store
	verifier *identity.Verifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := docstore.New(db, docstore.NewBroker(), logger)
	profiles := profile.New(store, logger)
	verifier := identity.NewVerifier("test-secret")
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(NewHandler(logger, Deps{
		Rooms:             rooms.New(store, logger, rooms.Options{MaxPlayers: 3}),
		Profiles:          profiles,
		Leaderboard:       leaderboard.New(store, profiles, logger),
		Maintenance:       store,
		Verifier:          verifier,
		AdminPasswordHash: string(hash),
		Countdown:         2 * time.Second,
	}))
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, store: store, verifier: verifier}
}

func (e *testEnv) token(t *testing.T, uid, name string) string {
	t.Helper()
	tok, err := e.verifier.Issue(typerace.Identity{UID: uid, DisplayName: name}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

// do sends a JSON request and decodes a JSON response into out when given.
func (e *testEnv) do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (e *testEnv) createRoom(t *testing.T, token string, req CreateRoomRequest) RoomSnapshot {
	t.Helper()
	var snap RoomSnapshot
	if code := e.do(t, http.MethodPost, "/api/rooms", token, req, &snap); code != http.StatusCreated {
		t.Fatalf("create room status = %d", code)
	}
	return snap
}
