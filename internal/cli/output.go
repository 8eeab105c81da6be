package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]any{
			"error": map[string]string{"message": err.Error()},
		})
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case User:
		o.printUser(v)
	case AuthResult:
		o.printAuthResult(v)
	case Game:
		o.printGame(v)
	case GameList:
		o.printGameList(v)
	case Player:
		o.printPlayer(v)
	case EventLog:
		o.printEventLog(v)
	case OzTagCount:
		fmt.Printf("OZ max tags: %d\n", v.OzMaxTags)
	case Organization:
		o.printOrganization(v)
	case HealthResult:
		fmt.Printf("Status: %s\n", v.Status)
	default:
		o.printJSON(data)
	}
}

// User response type (matches API)
type User struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResult combines a user and their bearer token
type AuthResult struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Player response type
type Player struct {
	UserID       string    `json:"user_id"`
	PlayerGameID string    `json:"player_game_id"`
	Role         string    `json:"role"`
	TagCount     int       `json:"tag_count"`
	JoinedAt     time.Time `json:"joined_at"`
}

// Game response type
type Game struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	CreatorID     string   `json:"creator_id"`
	OrgID         string   `json:"org_id,omitempty"`
	Status        string   `json:"status"`
	Active        bool     `json:"active"`
	DefaultRole   string   `json:"default_role"`
	OzMaxTags     int      `json:"oz_max_tags"`
	OzPool        []string `json:"oz_pool"`
	OzPasscodeSet bool     `json:"oz_passcode_set"`
	Players       []Player `json:"players"`
	HumanCount    int      `json:"human_count"`
	ZombieCount   int      `json:"zombie_count"`
	OzCount       int      `json:"oz_count"`
	Version       int64    `json:"version"`
}

// GameList response type
type GameList struct {
	Games []Game `json:"games"`
}

// LogEntry response type
type LogEntry struct {
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actor_id"`
	Text      string    `json:"text"`
}

// EventLog response type
type EventLog struct {
	GameID  string     `json:"game_id"`
	Entries []LogEntry `json:"entries"`
}

// OzTagCount response type
type OzTagCount struct {
	GameID    string `json:"game_id"`
	OzMaxTags int    `json:"oz_max_tags"`
}

// Organization response type
type Organization struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	CreatorID    string   `json:"creator_id"`
	Admins       []string `json:"admins"`
	ActiveGameID string   `json:"active_game_id,omitempty"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printUser(u User) {
	fmt.Printf("User: %s (%s)\n", u.FullName, u.ID)
	fmt.Printf("Email: %s\n", u.Email)
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printUser(a.User)
	fmt.Printf("Token: %s\n", a.Token)
	fmt.Printf("Expires: %s\n", a.ExpiresAt.Format(time.RFC3339))
}

func (o *Output) printGame(g Game) {
	fmt.Printf("Game: %s (%s)\n", g.Name, g.ID)
	fmt.Printf("Status: %s\n", g.Status)
	if g.OrgID != "" {
		fmt.Printf("Organization: %s\n", g.OrgID)
	}
	fmt.Printf("Default role: %s\n", g.DefaultRole)
	fmt.Printf("OZ max tags: %d\n", g.OzMaxTags)
	fmt.Printf("OZ passcode set: %t\n", g.OzPasscodeSet)
	if len(g.OzPool) > 0 {
		fmt.Printf("OZ pool: %s\n", strings.Join(g.OzPool, ", "))
	}
	fmt.Printf("Humans: %d  Zombies: %d  OZs: %d\n", g.HumanCount, g.ZombieCount, g.OzCount)
	fmt.Printf("Players (%d):\n", len(g.Players))
	for _, p := range g.Players {
		fmt.Printf("  - %s [%s] %s, %d tags\n", p.UserID, p.PlayerGameID, p.Role, p.TagCount)
	}
}

func (o *Output) printGameList(l GameList) {
	if len(l.Games) == 0 {
		fmt.Println("No games")
		return
	}
	for _, g := range l.Games {
		fmt.Printf("%s  %-8s  %s\n", g.ID, g.Status, g.Name)
	}
}

func (o *Output) printPlayer(p Player) {
	fmt.Printf("Player: %s\n", p.UserID)
	fmt.Printf("Player game ID: %s\n", p.PlayerGameID)
	fmt.Printf("Role: %s\n", p.Role)
	fmt.Printf("Tags: %d\n", p.TagCount)
}

func (o *Output) printEventLog(l EventLog) {
	if len(l.Entries) == 0 {
		fmt.Println("No events")
		return
	}
	for _, e := range l.Entries {
		fmt.Println(e.Text)
	}
}

func (o *Output) printOrganization(org Organization) {
	fmt.Printf("Organization: %s (%s)\n", org.Name, org.ID)
	fmt.Printf("Admins: %s\n", strings.Join(org.Admins, ", "))
	if org.ActiveGameID != "" {
		fmt.Printf("Active game: %s\n", org.ActiveGameID)
	}
}
