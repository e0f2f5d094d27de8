package models

import "encoding/json"

// Media is an uploaded binary asset with a server-assigned identifier.
type Media struct {
	ID           int64  `json:"id"`
	AccessURL    string `json:"url"`
	OriginalName string `json:"originalName,omitempty"`
	MimeType     string `json:"mimeType,omitempty"`
}

// UnmarshalJSON accepts both the upload response shape ("url") and the
// entity shape ("accessUrl").
func (m *Media) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID           int64  `json:"id"`
		URL          string `json:"url"`
		AccessURL    string `json:"accessUrl"`
		OriginalName string `json:"originalName"`
		MimeType     string `json:"mimeType"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.ID = raw.ID
	m.AccessURL = raw.URL
	if m.AccessURL == "" {
		m.AccessURL = raw.AccessURL
	}
	m.OriginalName = raw.OriginalName
	m.MimeType = raw.MimeType
	return nil
}
