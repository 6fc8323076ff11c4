package location

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/hideandseek/go/internal/geo"
	"github.com/mcdev12/hideandseek/go/internal/models"
)

// Waypoint is one step of a recorded track. When the track has an origin, North/East
// (meters) are applied on top of Lat/Lng, which then default to the origin.
type Waypoint struct {
	Lat   *float64      `yaml:"lat"`
	Lng   *float64      `yaml:"lng"`
	North float64       `yaml:"north"`
	East  float64       `yaml:"east"`
	After time.Duration `yaml:"after"`
}

// Track is a replayable sequence of positions.
type Track struct {
	Origin *models.Coordinate `yaml:"origin"`
	Loop   bool               `yaml:"loop"`
	Points []Waypoint         `yaml:"points"`
}

// LoadTrack reads a YAML track file.
func LoadTrack(path string) (*Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read track file: %w", err)
	}
	var track Track
	if err := yaml.Unmarshal(data, &track); err != nil {
		return nil, fmt.Errorf("failed to parse track: %w", err)
	}
	if len(track.Points) == 0 {
		return nil, fmt.Errorf("track %s has no points", path)
	}
	for i, p := range track.Points {
		if _, err := track.resolve(p); err != nil {
			return nil, fmt.Errorf("track point %d: %w", i, err)
		}
	}
	return &track, nil
}

func (t *Track) resolve(p Waypoint) (models.Coordinate, error) {
	var base models.Coordinate
	switch {
	case p.Lat != nil && p.Lng != nil:
		base = models.Coordinate{Latitude: *p.Lat, Longitude: *p.Lng}
	case t.Origin != nil:
		base = *t.Origin
	default:
		return models.Coordinate{}, fmt.Errorf("point needs lat/lng or a track origin")
	}
	if p.North != 0 || p.East != 0 {
		base = geo.Offset(base, p.North, p.East)
	}
	return base, base.Validate()
}

// TrackSource replays a Track on a clock, holding the last position when it ends.
type TrackSource struct {
	Track *Track
	Clock clockwork.Clock
}

func (s TrackSource) Watch(ctx context.Context, emit func(models.Coordinate)) error {
	clock := s.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	for {
		for _, p := range s.Track.Points {
			if p.After > 0 {
				timer := clock.NewTimer(p.After)
				select {
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				case <-timer.Chan():
				}
			}
			c, err := s.Track.resolve(p)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
			}
			emit(c)
		}
		if !s.Track.Loop {
			break
		}
	}
	<-ctx.Done()
	return ctx.Err()
}
