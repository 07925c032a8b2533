// Package raceclient talks to a typerace server over HTTP and WebSocket. A
// Client satisfies race.Backend, so a remote room can be raced with the same
// coordinator and racer as an in-process one.
package raceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/playperu/typerace/internal/leaderboard"
	"github.com/playperu/typerace/internal/typerace"
)

type Options struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// New returns a client for the server at baseURL authenticating with the
// bearer token. An empty token makes anonymous requests.
func New(baseURL, token string, opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    opts.HTTPClient,
		logger:  opts.Logger,
	}
}

// RoomSnapshot mirrors the server's room response.
type RoomSnapshot struct {
	Room    typerace.Room     `json:"room"`
	Players []typerace.Player `json:"players"`
}

type CreateRoomRequest struct {
	Username      string `json:"username,omitempty"`
	ModeSeconds   int    `json:"modeSeconds,omitempty"`
	Seed          string `json:"seed,omitempty"`
	Passage       string `json:"passage,omitempty"`
	PassageLength string `json:"passageLength,omitempty"`
}

func (c *Client) CreateRoom(ctx context.Context, req CreateRoomRequest) (RoomSnapshot, error) {
	var snap RoomSnapshot
	err := c.do(ctx, http.MethodPost, "/api/rooms", req, &snap)
	return snap, err
}

func (c *Client) Room(ctx context.Context, roomID string) (RoomSnapshot, error) {
	var snap RoomSnapshot
	err := c.do(ctx, http.MethodGet, roomPath(roomID, ""), nil, &snap)
	return snap, err
}

func (c *Client) JoinRoom(ctx context.Context, roomID, username string) (RoomSnapshot, error) {
	var snap RoomSnapshot
	body := map[string]string{}
	if username != "" {
		body["username"] = username
	}
	err := c.do(ctx, http.MethodPost, roomPath(roomID, "/join"), body, &snap)
	return snap, err
}

func (c *Client) StartRace(ctx context.Context, roomID, _ string, countdown time.Duration) error {
	ms := int(countdown / time.Millisecond)
	return c.do(ctx, http.MethodPost, roomPath(roomID, "/start"), map[string]int{"countdownMs": ms}, nil)
}

func (c *Client) SetInProgress(ctx context.Context, roomID string) error {
	return c.announce(ctx, roomID, typerace.StatusInProgress)
}

func (c *Client) FinishRace(ctx context.Context, roomID string) error {
	return c.announce(ctx, roomID, typerace.StatusFinished)
}

func (c *Client) announce(ctx context.Context, roomID string, status typerace.RoomStatus) error {
	return c.do(ctx, http.MethodPost, roomPath(roomID, "/status"), map[string]typerace.RoomStatus{"status": status}, nil)
}

// UpdatePlayerProgress and FinishPlayer always act on the token's own
// record; uid is implied by the token.
func (c *Client) UpdatePlayerProgress(ctx context.Context, roomID, _ string, u typerace.ProgressUpdate) error {
	return c.do(ctx, http.MethodPost, roomPath(roomID, "/progress"), u, nil)
}

func (c *Client) FinishPlayer(ctx context.Context, roomID, _ string, wpm, accuracy int) error {
	body := map[string]int{"wpm": wpm, "accuracy": accuracy}
	return c.do(ctx, http.MethodPost, roomPath(roomID, "/finish"), body, nil)
}

// SubmitRun stores a finished test. ok is false when the server dropped an
// anonymous submission.
func (c *Client) SubmitRun(ctx context.Context, in leaderboard.RunInput) (run typerace.Run, ok bool, err error) {
	status, err := c.send(ctx, http.MethodPost, "/api/runs", in, &run)
	if err != nil {
		return typerace.Run{}, false, err
	}
	return run, status != http.StatusNoContent, nil
}

func (c *Client) Leaderboard(ctx context.Context, mode, top int) ([]typerace.Run, error) {
	q := url.Values{}
	q.Set("mode", strconv.Itoa(mode))
	if top > 0 {
		q.Set("top", strconv.Itoa(top))
	}
	var runs []typerace.Run
	err := c.do(ctx, http.MethodGet, "/api/leaderboard?"+q.Encode(), nil, &runs)
	return runs, err
}

func roomPath(roomID, suffix string) string {
	return "/api/rooms/" + url.PathEscape(roomID) + suffix
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	_, err := c.send(ctx, method, path, body, out)
	return err
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return resp.StatusCode, decodeError(resp)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

// decodeError turns an error response back into the domain sentinel it was
// produced from, when there is one.
func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	for _, sentinel := range []error{
		typerace.ErrRaceAlreadyStarted,
		typerace.ErrRoomFull,
		typerace.ErrUsernameTaken,
		typerace.ErrUsernameTooShort,
		typerace.ErrNotHost,
	} {
		if body.Error == sentinel.Error() {
			return sentinel
		}
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return typerace.ErrNotFound
	case http.StatusUnauthorized:
		return typerace.ErrAnonymous
	}
	return &StatusError{Code: resp.StatusCode, Message: body.Error}
}

// StatusError is an error response without a domain meaning.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// IsStatus reports whether err is a StatusError with code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
