package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/hideandseek/go/clients/game_api_client"
	"github.com/mcdev12/hideandseek/go/internal/geo"
	"github.com/mcdev12/hideandseek/go/internal/models"
)

// backend is an in-memory game server for one game. Callers are identified by their bearer
// token, "user-<id>". Phases advance lazily on each request, using the shared fake clock.
type backend struct {
	clock clockwork.Clock

	mu    sync.Mutex
	game  *models.Game
	marks []int64
}

func newBackend(t *testing.T, clock clockwork.Clock) (*backend, *httptest.Server) {
	b := &backend{clock: clock}
	srv := httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *backend) markCalls() []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int64(nil), b.marks...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func (b *backend) serve(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer user-"), 10, 64)
	if err != nil {
		fail(w, http.StatusUnauthorized, "bad token")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/games":
		var req game_api_client.GamePostRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			fail(w, http.StatusBadRequest, err.Error())
			return
		}
		lat, lng, radius := req.LocationLat, req.LocationLong, req.Radius
		b.game = &models.Game{
			ID:                       7,
			Name:                     req.GameName,
			Phase:                    models.PhaseLobby,
			CenterLatitude:           &lat,
			CenterLongitude:          &lng,
			Radius:                   &radius,
			CreatorID:                userID,
			PreparationTimeInSeconds: req.PreparationTimeInSeconds,
			GameTimeInSeconds:        req.GameTimeInSeconds,
		}
		b.join(userID, models.Coordinate{Latitude: lat, Longitude: lng})
		writeJSON(w, http.StatusCreated, b.game)

	case b.game == nil:
		fail(w, http.StatusNotFound, "Game not found")

	case r.Method == http.MethodPut && len(parts) == 2:
		var req game_api_client.GameUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			fail(w, http.StatusBadRequest, err.Error())
			return
		}
		b.advance()
		b.join(userID, models.Coordinate{Latitude: req.LocationLat, Longitude: req.LocationLong})
		if req.StartGame {
			if userID != b.game.CreatorID {
				fail(w, http.StatusForbidden, "Only the creator can start")
				return
			}
			if len(b.game.Players) < 2 {
				fail(w, http.StatusBadRequest, "Need at least 2 players")
				return
			}
			b.start()
		}
		b.flagOutOfArea()
		writeJSON(w, http.StatusOK, b.game)

	case r.Method == http.MethodPut && len(parts) == 4 && parts[2] == "players":
		playerID, _ := strconv.ParseInt(parts[3], 10, 64)
		b.marks = append(b.marks, playerID)
		for i := range b.game.Players {
			if b.game.Players[i].ID == playerID {
				b.game.Players[i].Status = models.PlayerStatusFound
				b.game.Players[i].FoundTime = &models.Timestamp{Time: b.clock.Now()}
			}
		}
		writeJSON(w, http.StatusOK, b.game)

	default:
		fail(w, http.StatusNotFound, "no route")
	}
}

func (b *backend) join(userID int64, at models.Coordinate) {
	for i := range b.game.Players {
		if b.game.Players[i].UserID == userID {
			lat, lng := at.Latitude, at.Longitude
			b.game.Players[i].LocationLat, b.game.Players[i].LocationLong = &lat, &lng
			return
		}
	}
	if b.game.Phase != models.PhaseLobby {
		return
	}
	lat, lng := at.Latitude, at.Longitude
	b.game.Players = append(b.game.Players, models.Player{
		ID:           userID + 100,
		UserID:       userID,
		DisplayName:  "user-" + strconv.FormatInt(userID, 10),
		LocationLat:  &lat,
		LocationLong: &lng,
	})
}

func (b *backend) start() {
	b.game.Phase = models.PhasePreparing
	b.game.PhaseStart = &models.Timestamp{Time: b.clock.Now()}
	for i := range b.game.Players {
		p := &b.game.Players[i]
		if p.UserID == b.game.CreatorID {
			p.Role, p.Status = models.RoleHunter, models.PlayerStatusHunting
		} else {
			p.Role, p.Status = models.RoleHider, models.PlayerStatusHiding
		}
	}
}

func (b *backend) advance() {
	if b.game.Phase != models.PhasePreparing || b.game.PhaseStart == nil {
		return
	}
	end := b.game.PhaseStart.Time.Add(secondsDuration(b.game.PreparationTimeInSeconds))
	if !b.clock.Now().Before(end) {
		b.game.Phase = models.PhaseActive
		b.game.PhaseStart = &models.Timestamp{Time: end}
	}
}

func (b *backend) flagOutOfArea() {
	fence, ok := b.game.Geofence()
	if !ok {
		return
	}
	for i := range b.game.Players {
		p := &b.game.Players[i]
		if loc, ok := p.Location(); ok {
			p.OutOfArea = !geo.InFence(loc, fence)
		}
	}
}

func secondsDuration(n int) time.Duration {
	return time.Duration(n) * time.Second
}
