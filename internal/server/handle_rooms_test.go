package server

import (
	"net/http"
	"testing"

	"github.com/playperu/typerace/internal/typerace"
)

func TestCreateRoom(t *testing.T) {
	env := newTestEnv(t)
	host := env.token(t, "host-uid", "Hazel")

	snap := env.createRoom(t, host, CreateRoomRequest{ModeSeconds: 30, Seed: "abc", PassageLength: "short"})
	if snap.Room.ID == "" || snap.Room.HostID != "host-uid" || snap.Room.Status != typerace.StatusLobby {
		t.Errorf("room = %+v", snap.Room)
	}
	if snap.Room.ModeSeconds != 30 || snap.Room.Passage == "" {
		t.Errorf("room = %+v", snap.Room)
	}
	if len(snap.Players) != 1 || snap.Players[0].Username != "Hazel" {
		t.Errorf("players = %+v", snap.Players)
	}

	if code := env.do(t, http.MethodPost, "/api/rooms", "", CreateRoomRequest{}, nil); code != http.StatusUnauthorized {
		t.Errorf("anonymous create status = %d, want 401", code)
	}
	if code := env.do(t, http.MethodPost, "/api/rooms", "bogus", CreateRoomRequest{}, nil); code != http.StatusUnauthorized {
		t.Errorf("invalid token create status = %d, want 401", code)
	}
}

func TestGetRoom(t *testing.T) {
	env := newTestEnv(t)
	snap := env.createRoom(t, env.token(t, "h", "hal"), CreateRoomRequest{})

	var got RoomSnapshot
	if code := env.do(t, http.MethodGet, "/api/rooms/"+snap.Room.ID, "", nil, &got); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if got.Room.ID != snap.Room.ID || len(got.Players) != 1 {
		t.Errorf("snapshot = %+v", got)
	}

	if code := env.do(t, http.MethodGet, "/api/rooms/missing", "", nil, nil); code != http.StatusNotFound {
		t.Errorf("missing room status = %d, want 404", code)
	}
}

func TestRoomLifecycle(t *testing.T) {
	env := newTestEnv(t)
	host := env.token(t, "h", "hal")
	guest := env.token(t, "g", "gina")
	late := env.token(t, "l", "lou")

	room := env.createRoom(t, host, CreateRoomRequest{}).Room
	base := "/api/rooms/" + room.ID

	var snap RoomSnapshot
	if code := env.do(t, http.MethodPost, base+"/join", guest, JoinRoomRequest{}, &snap); code != http.StatusOK {
		t.Fatalf("join status = %d", code)
	}
	if len(snap.Players) != 2 {
		t.Errorf("players after join = %d", len(snap.Players))
	}

	if code := env.do(t, http.MethodPost, base+"/start", guest, nil, nil); code != http.StatusForbidden {
		t.Errorf("guest start status = %d, want 403", code)
	}
	zero := 0
	if code := env.do(t, http.MethodPost, base+"/start", host, StartRaceRequest{CountdownMS: &zero}, nil); code != http.StatusNoContent {
		t.Fatalf("host start status = %d", code)
	}
	if code := env.do(t, http.MethodPost, base+"/start", host, nil, nil); code != http.StatusConflict {
		t.Errorf("second start status = %d, want 409", code)
	}
	if code := env.do(t, http.MethodPost, base+"/join", late, nil, nil); code != http.StatusConflict {
		t.Errorf("late join status = %d, want 409", code)
	}

	if code := env.do(t, http.MethodPost, base+"/status", guest, AnnounceStatusRequest{Status: "lobby"}, nil); code != http.StatusBadRequest {
		t.Errorf("bad status = %d, want 400", code)
	}
	if code := env.do(t, http.MethodPost, base+"/status", guest, AnnounceStatusRequest{Status: typerace.StatusInProgress}, nil); code != http.StatusNoContent {
		t.Fatalf("announce status = %d", code)
	}

	progress := 0.5
	input := 20
	if code := env.do(t, http.MethodPost, base+"/progress", guest, typerace.ProgressUpdate{Progress: &progress, InputLength: &input}, nil); code != http.StatusNoContent {
		t.Fatalf("progress status = %d", code)
	}
	if code := env.do(t, http.MethodPost, base+"/progress", late, typerace.ProgressUpdate{Progress: &progress}, nil); code != http.StatusNotFound {
		t.Errorf("non-member progress status = %d, want 404", code)
	}
	if code := env.do(t, http.MethodPost, base+"/finish", guest, FinishRequest{WPM: 88, Accuracy: 97}, nil); code != http.StatusNoContent {
		t.Fatalf("finish status = %d", code)
	}

	env.do(t, http.MethodGet, base, "", nil, &snap)
	if snap.Room.Status != typerace.StatusInProgress {
		t.Errorf("status = %q", snap.Room.Status)
	}
	for _, p := range snap.Players {
		if p.UID == "g" && (p.WPM != 88 || p.Progress != 1 || p.FinishedAt == nil) {
			t.Errorf("guest = %+v", p)
		}
	}
}

func TestJoinRoomFull(t *testing.T) {
	env := newTestEnv(t)
	room := env.createRoom(t, env.token(t, "h", "hal"), CreateRoomRequest{}).Room
	path := "/api/rooms/" + room.ID + "/join"

	for _, uid := range []string{"a", "b"} {
		if code := env.do(t, http.MethodPost, path, env.token(t, uid, uid), nil, nil); code != http.StatusOK {
			t.Fatalf("join %s status = %d", uid, code)
		}
	}
	if code := env.do(t, http.MethodPost, path, env.token(t, "c", "c"), nil, nil); code != http.StatusConflict {
		t.Errorf("join over cap status = %d, want 409", code)
	}
	if code := env.do(t, http.MethodPost, path, env.token(t, "a", "a"), nil, nil); code != http.StatusOK {
		t.Errorf("rejoin at cap status = %d, want 200", code)
	}
}

func TestRaceResults(t *testing.T) {
	env := newTestEnv(t)
	host := env.token(t, "h", "hal")
	guest := env.token(t, "g", "gina")

	room := env.createRoom(t, host, CreateRoomRequest{}).Room
	base := "/api/rooms/" + room.ID
	env.do(t, http.MethodPost, base+"/join", guest, nil, nil)
	zero := 0
	env.do(t, http.MethodPost, base+"/start", host, StartRaceRequest{CountdownMS: &zero}, nil)
	env.do(t, http.MethodPost, base+"/status", host, AnnounceStatusRequest{Status: typerace.StatusInProgress}, nil)

	progress := 0.3
	env.do(t, http.MethodPost, base+"/progress", host, typerace.ProgressUpdate{Progress: &progress}, nil)
	env.do(t, http.MethodPost, base+"/finish", guest, FinishRequest{WPM: 64, Accuracy: 95}, nil)

	var res RaceResults
	if code := env.do(t, http.MethodGet, base+"/results", "", nil, &res); code != http.StatusOK {
		t.Fatalf("results status = %d", code)
	}
	if len(res.Standings) != 2 || res.Standings[0].UID != "g" || res.Standings[1].UID != "h" {
		t.Errorf("standings = %+v, want guest ahead of host", res.Standings)
	}
	if res.Winner != nil {
		t.Errorf("winner = %+v before the race finished", res.Winner)
	}

	env.do(t, http.MethodPost, base+"/finish", host, FinishRequest{WPM: 80, Accuracy: 99}, nil)
	env.do(t, http.MethodPost, base+"/status", host, AnnounceStatusRequest{Status: typerace.StatusFinished}, nil)

	env.do(t, http.MethodGet, base+"/results", "", nil, &res)
	if res.Status != typerace.StatusFinished || res.Winner == nil || res.Winner.UID != "h" {
		t.Errorf("results = %+v, want host winning", res)
	}

	if code := env.do(t, http.MethodGet, "/api/rooms/missing/results", "", nil, nil); code != http.StatusNotFound {
		t.Errorf("missing room status = %d, want 404", code)
	}
}
