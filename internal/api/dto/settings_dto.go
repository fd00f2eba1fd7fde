package dto

// SaveSettingsRequest is the save_settings action payload. When Path is set
// a single value is written at that dot-path; otherwise Settings replaces
// the whole document.
type SaveSettingsRequest struct {
	Path     string         `json:"path,omitempty"`
	Value    any            `json:"value,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
}
