package spotify

import (
	"encoding/json"
	"fmt"
)

// CurrentlyPlaying is the payload of the currently-playing endpoint.
type CurrentlyPlaying struct {
	Timestamp            int64  `json:"timestamp"`
	ProgressMs           int64  `json:"progress_ms"`
	IsPlaying            bool   `json:"is_playing"`
	CurrentlyPlayingType string `json:"currently_playing_type"`
	Item                 *Item  `json:"item"`
}

// Item is either a track or, when additional_types includes episode, a podcast episode.
type Item struct {
	Type       string   `json:"type"` // "track" or "episode"
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	DurationMs int64    `json:"duration_ms"`
	Artists    []Artist `json:"artists"`
	Album      *Album   `json:"album"`
	Images     []Image  `json:"images"` // episodes carry their own artwork
	Show       *Show    `json:"show"`
}

type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Album struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type Show struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Publisher string  `json:"publisher"`
	Images    []Image `json:"images"`
}

// ArtistNames returns the item's artists in order. Episodes report their
// publisher, falling back to the show name.
func (i *Item) ArtistNames() []string {
	if i == nil {
		return nil
	}
	if len(i.Artists) > 0 {
		names := make([]string, 0, len(i.Artists))
		for _, a := range i.Artists {
			names = append(names, a.Name)
		}
		return names
	}
	if i.Show != nil {
		if i.Show.Publisher != "" {
			return []string{i.Show.Publisher}
		}
		if i.Show.Name != "" {
			return []string{i.Show.Name}
		}
	}
	return nil
}

// AlbumName returns the album name, or the show name for episodes.
func (i *Item) AlbumName() string {
	switch {
	case i == nil:
		return ""
	case i.Album != nil:
		return i.Album.Name
	case i.Show != nil:
		return i.Show.Name
	}
	return ""
}

// ArtworkURL returns the first (largest) image for the item.
func (i *Item) ArtworkURL() string {
	if i == nil {
		return ""
	}
	if i.Album != nil && len(i.Album.Images) > 0 {
		return i.Album.Images[0].URL
	}
	if len(i.Images) > 0 {
		return i.Images[0].URL
	}
	if i.Show != nil && len(i.Show.Images) > 0 {
		return i.Show.Images[0].URL
	}
	return ""
}

// RecentlyPlayed is the payload of the recently-played endpoint.
type RecentlyPlayed struct {
	Items []PlayHistory `json:"items"`
}

type PlayHistory struct {
	Track    Item   `json:"track"`
	PlayedAt string `json:"played_at"`
}

// DecodeCurrentlyPlaying parses a currently-playing body.
func DecodeCurrentlyPlaying(body []byte) (*CurrentlyPlaying, error) {
	var cp CurrentlyPlaying
	if err := json.Unmarshal(body, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode currently playing: %w", err)
	}
	return &cp, nil
}

// DecodeRecentlyPlayed parses a recently-played body.
func DecodeRecentlyPlayed(body []byte) (*RecentlyPlayed, error) {
	var rp RecentlyPlayed
	if err := json.Unmarshal(body, &rp); err != nil {
		return nil, fmt.Errorf("failed to decode recently played: %w", err)
	}
	return &rp, nil
}
