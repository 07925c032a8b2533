// Package typerace defines the core domain types shared by the typing engine,
// the race coordinator and the document store.
// It has no dependencies outside the standard library.
package typerace

import (
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrRaceAlreadyStarted = errors.New("race already started")
	ErrRoomFull           = errors.New("room is full")
	ErrNotHost            = errors.New("only the host can start the race")
	ErrUsernameTaken      = errors.New("username taken")
	ErrUsernameTooShort   = errors.New("username must be at least 3 characters (letters, numbers, underscore)")
	ErrAnonymous          = errors.New("sign in required")
)

type RoomStatus string

const (
	StatusLobby      RoomStatus = "lobby"
	StatusCountdown  RoomStatus = "countdown"
	StatusInProgress RoomStatus = "in_progress"
	StatusFinished   RoomStatus = "finished"
)

// Rank orders statuses along the race lifecycle. Unknown statuses rank -1.
func (s RoomStatus) Rank() int {
	switch s {
	case StatusLobby:
		return 0
	case StatusCountdown:
		return 1
	case StatusInProgress:
		return 2
	case StatusFinished:
		return 3
	}
	return -1
}

func (s RoomStatus) Valid() bool { return s.Rank() >= 0 }

// Next reports whether moving from s to next is a single forward step.
func (s RoomStatus) Next(next RoomStatus) bool {
	return s.Valid() && next.Rank() == s.Rank()+1
}

type Room struct {
	ID            string     `json:"id"`
	Status        RoomStatus `json:"status"`
	ModeSeconds   int        `json:"modeSeconds"`
	Seed          string     `json:"seed"`
	HostID        string     `json:"hostId"`
	CreatedAt     time.Time  `json:"createdAt"`
	StartAt       *time.Time `json:"startAt"`
	Passage       string     `json:"passage,omitempty"`
	PassageLength string     `json:"passageLength,omitempty"`
}

type Player struct {
	UID         string     `json:"uid"`
	Username    string     `json:"username"`
	JoinedAt    time.Time  `json:"joinedAt"`
	WPM         int        `json:"wpm"`
	Accuracy    int        `json:"accuracy"`
	InputLength int        `json:"inputLength"`
	Progress    float64    `json:"progress"`
	FinishedAt  *time.Time `json:"finishedAt"`
	LastUpdate  time.Time  `json:"lastUpdate"`
}

// Done reports whether the player has completed the race.
func (p Player) Done() bool {
	return p.FinishedAt != nil || p.Progress >= 1
}

// ProgressUpdate carries a live progress push. Nil fields are left untouched.
type ProgressUpdate struct {
	Progress    *float64 `json:"progress,omitempty"`
	WPM         *int     `json:"wpm,omitempty"`
	Accuracy    *int     `json:"accuracy,omitempty"`
	InputLength *int     `json:"inputLength,omitempty"`
}

// Sample is one point of a run's WPM time series.
type Sample struct {
	Time int `json:"time"`
	WPM  int `json:"wpm"`
}

type Run struct {
	ID        string    `json:"id"`
	UID       string    `json:"uid"`
	Username  string    `json:"username"`
	Mode      int       `json:"mode"`
	WPM       int       `json:"wpm"`
	Accuracy  int       `json:"accuracy"`
	Errors    int       `json:"errors"`
	WPMSeries []Sample  `json:"wpmSeries"`
	CreatedAt time.Time `json:"createdAt"`
}

type RunOrder int

const (
	OrderNone RunOrder = iota
	OrderWPMDesc
	OrderNewest
)

// RunQuery filters persisted runs. Zero-valued fields do not filter.
type RunQuery struct {
	Mode  int
	UID   string
	Since time.Time
	Order RunOrder
	Limit int
}

type Profile struct {
	UID       string    `json:"uid"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Identity is a signed-in (or anonymous) participant.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
}

func (i Identity) Anonymous() bool { return i.UID == "" }

// ClampProgress bounds p to [0,1].
func ClampProgress(p float64) float64 {
	if p != p || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
