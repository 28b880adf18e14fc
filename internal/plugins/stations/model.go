// Package stations manages the station catalogue: the internet radio
// streams users can pick on the dashboard, their card colours and artwork.
package stations

import (
	"time"

	"github.com/keyxmakerx/radio/internal/contrast"
	"github.com/keyxmakerx/radio/internal/player"
)

// DefaultColor is the card colour of stations without one.
const DefaultColor = "#333333"

// Station is one configured internet radio stream.
type Station struct {
	// ID is a URL-safe slug chosen by the admin, e.g. "jazz-fm".
	ID   string `json:"id"`
	Name string `json:"name"`

	// Description is sanitized HTML.
	Description string `json:"description"`
	URL         string `json:"url"`

	// Color is the card background as #rrggbb, or "" for DefaultColor.
	Color       string    `json:"color"`
	AutoRestart bool      `json:"auto_restart"`
	SortOrder   int       `json:"sort_order"`
	Artwork     string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// CardColor is the colour the station is drawn with.
func (s *Station) CardColor() string {
	if s.Color == "" {
		return DefaultColor
	}
	return s.Color
}

// TextColor is the readable text colour on top of CardColor.
func (s *Station) TextColor() contrast.Result {
	r, err := contrast.Decide(s.CardColor())
	if err != nil {
		// Colours are validated on write; a bad row still gets legible text.
		return contrast.White
	}
	return r
}

// ArtworkURL is where the artwork is served, or "".
func (s *Station) ArtworkURL() string {
	if s.Artwork == "" {
		return ""
	}
	return "/artwork/" + s.Artwork
}

// PlayerStation converts to the player's view of a station.
func (s *Station) PlayerStation() player.Station {
	return player.Station{ID: s.ID, Name: s.Name, URL: s.URL, AutoRestart: s.AutoRestart}
}

// StationResponse is the JSON form of a station.
type StationResponse struct {
	*Station
	Color      string          `json:"color"`
	TextColor  contrast.Result `json:"text_color"`
	ArtworkURL string          `json:"artwork_url,omitempty"`
}

// NewStationResponse builds the JSON form, resolving default colours.
func NewStationResponse(s *Station) StationResponse {
	return StationResponse{
		Station:    s,
		Color:      s.CardColor(),
		TextColor:  s.TextColor(),
		ArtworkURL: s.ArtworkURL(),
	}
}

// StationRequest is the body of POST /api/stations and PUT /api/stations/:id.
// On update the ID comes from the path.
type StationRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Color       string `json:"color"`
	AutoRestart bool   `json:"auto_restart"`
	SortOrder   int    `json:"sort_order"`
}

// ArtworkInput is an uploaded artwork image.
type ArtworkInput struct {
	StationID string
	MimeType  string
	Data      []byte
}

// AllowedArtworkTypes are the accepted artwork MIME types.
var AllowedArtworkTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}
