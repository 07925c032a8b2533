package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/typerace/internal/handler/health"
	"github.com/playperu/typerace/internal/leaderboard"
	"github.com/playperu/typerace/internal/typerace"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

type roomPath struct {
	RoomID string `path:"roomID"`
}

type streamQuery struct {
	RoomID string `path:"roomID"`
	Watch  string `query:"watch" enum:"room,players" description:"Limit the stream to one topic. Both when omitted."`
}

type leaderboardQuery struct {
	Mode  int    `query:"mode" default:"15" description:"Test duration in seconds."`
	Top   int    `query:"top" default:"50"`
	Since string `query:"since" format:"date-time"`
}

type userRunsQuery struct {
	UID string `path:"uid"`
	Top int    `query:"top" default:"100"`
}

type passageQuery struct {
	Kind   string `query:"kind" enum:"passage,quote,words" default:"passage"`
	Seed   string `query:"seed"`
	Length string `query:"length" enum:"short,medium,long" default:"medium"`
	Count  int    `query:"count" description:"Number of words for kind=words."`
}

type usernamePath struct {
	Username string `path:"username"`
}

type collectionPath struct {
	Name  string `path:"name" enum:"rooms,players,runs,profiles"`
	Batch int    `query:"batch" default:"500"`
}

type operation struct {
	method, path, summary, description string
	req                                any
	resp                               []response
}

type response struct {
	status      int
	body        any
	contentType string
}

func respOK(body any) response      { return response{status: http.StatusOK, body: body} }
func respCreated(body any) response { return response{status: http.StatusCreated, body: body} }
func respErr(code int) response     { return response{status: code, body: ErrorResponse{}} }
func respNoContent() response       { return response{status: http.StatusNoContent} }
func respStream(ct string) response { return response{status: http.StatusOK, contentType: ct} }

var operations = []operation{
	{http.MethodGet, "/healthz", "Health check", "Returns the status and latency of backend dependencies.", nil,
		[]response{respOK(map[string]health.Result{}), {status: http.StatusServiceUnavailable, body: map[string]health.Result{}}}},

	{http.MethodPost, "/api/rooms", "Create room", "Opens a lobby with the caller as host. Requires Bearer token.", CreateRoomRequest{},
		[]response{respCreated(RoomSnapshot{}), respErr(http.StatusBadRequest), respErr(http.StatusUnauthorized)}},
	{http.MethodGet, "/api/rooms/{roomID}", "Get room", "Returns the room and its roster.", roomPath{},
		[]response{respOK(RoomSnapshot{}), respErr(http.StatusNotFound)}},
	{http.MethodGet, "/api/rooms/{roomID}/results", "Race results", "Top five players by progress, and the fastest finisher once the room is finished.", roomPath{},
		[]response{respOK(RaceResults{}), respErr(http.StatusNotFound)}},
	{http.MethodPost, "/api/rooms/{roomID}/join", "Join room", "Adds the caller to a lobby. Rejoining resets the caller's progress.", struct {
		roomPath
		JoinRoomRequest
	}{},
		[]response{respOK(RoomSnapshot{}), respErr(http.StatusNotFound), respErr(http.StatusConflict), respErr(http.StatusUnauthorized)}},
	{http.MethodPost, "/api/rooms/{roomID}/start", "Start race", "Host only. Moves the lobby into the countdown.", struct {
		roomPath
		StartRaceRequest
	}{},
		[]response{respNoContent(), respErr(http.StatusForbidden), respErr(http.StatusConflict), respErr(http.StatusNotFound)}},
	{http.MethodPost, "/api/rooms/{roomID}/status", "Announce status", "Moves the room to in_progress or finished. Stale announcements are ignored.", struct {
		roomPath
		AnnounceStatusRequest
	}{},
		[]response{respNoContent(), respErr(http.StatusBadRequest), respErr(http.StatusNotFound)}},
	{http.MethodPost, "/api/rooms/{roomID}/progress", "Push progress", "Updates the caller's live progress. Progress never decreases.", struct {
		roomPath
		typerace.ProgressUpdate
	}{},
		[]response{respNoContent(), respErr(http.StatusNotFound)}},
	{http.MethodPost, "/api/rooms/{roomID}/finish", "Finish", "Records the caller's final metrics once.", struct {
		roomPath
		FinishRequest
	}{},
		[]response{respNoContent(), respErr(http.StatusNotFound)}},
	{http.MethodGet, "/api/rooms/{roomID}/events", "Room events", "Server-Sent Events with room and players snapshots.", streamQuery{},
		[]response{respStream("text/event-stream"), respErr(http.StatusNotFound)}},
	{http.MethodGet, "/api/rooms/{roomID}/ws", "Room stream", "WebSocket carrying StreamEvent JSON frames.", streamQuery{},
		[]response{{status: http.StatusSwitchingProtocols, body: StreamEvent{}}, respErr(http.StatusNotFound)}},

	{http.MethodPost, "/api/runs", "Submit run", "Stores a finished test. Anonymous submissions are dropped with 204.", leaderboard.RunInput{},
		[]response{respCreated(typerace.Run{}), respNoContent(), respErr(http.StatusBadRequest)}},
	{http.MethodGet, "/api/leaderboard", "Leaderboard", "Best run per username for a mode, fastest first.", leaderboardQuery{},
		[]response{respOK([]typerace.Run{}), respErr(http.StatusBadRequest)}},
	{http.MethodGet, "/api/users/{uid}/runs", "User runs", "A user's runs, newest first.", userRunsQuery{},
		[]response{respOK([]typerace.Run{})}},

	{http.MethodGet, "/api/passages", "Passage", "Deterministic passage for a seed, a random quote or a word list.", passageQuery{},
		[]response{respOK(PassageResponse{}), respErr(http.StatusBadRequest)}},

	{http.MethodGet, "/api/profile", "Get profile", "Returns the caller's profile, creating it on first use.", nil,
		[]response{respOK(typerace.Profile{}), respErr(http.StatusUnauthorized)}},
	{http.MethodPut, "/api/profile", "Claim username", "Sets the caller's username.", ClaimUsernameRequest{},
		[]response{respOK(typerace.Profile{}), respErr(http.StatusBadRequest), respErr(http.StatusConflict), respErr(http.StatusUnauthorized)}},
	{http.MethodGet, "/api/usernames/{username}", "Username availability", "Reports whether a username can be claimed.", usernamePath{},
		[]response{respOK(UsernameAvailability{})}},

	{http.MethodDelete, "/api/admin/collections/{name}", "Delete collection", "Deletes every document of a collection in batches. Requires admin basic auth.", collectionPath{},
		[]response{respOK(DeleteCollectionResponse{}), respErr(http.StatusNotFound), respErr(http.StatusUnauthorized)}},
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Typerace API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Typing tests and multiplayer races.")

	for _, op := range operations {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		oc.SetDescription(op.description)
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		for _, resp := range op.resp {
			opts := []openapi.ContentOption{openapi.WithHTTPStatus(resp.status)}
			if resp.contentType != "" {
				opts = append(opts, openapi.WithContentType(resp.contentType))
			}
			oc.AddRespStructure(resp.body, opts...)
		}
		_ = r.AddOperation(oc)
	}

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
