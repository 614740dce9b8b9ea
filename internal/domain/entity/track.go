package entity

import "encoding/json"

type Track struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album,omitempty"`
	ArtworkURL string `json:"artworkUrl,omitempty"`
	PreviewURL string `json:"previewUrl,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

// EncodeTrack serializes a track reference for a music message's content.
func EncodeTrack(t Track) (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func DecodeTrack(content string) (Track, error) {
	var t Track
	err := json.Unmarshal([]byte(content), &t)
	return t, err
}
