package models

// Settings are the user-facing options persisted in the key-value store.
type Settings struct {
	Theme         string `json:"theme"`
	AutoScan      bool   `json:"autoScan"`
	Notifications bool   `json:"notifications"`
	APIURL        string `json:"apiUrl"`
}

func DefaultSettings() Settings {
	return Settings{
		Theme:         "light",
		AutoScan:      false,
		Notifications: true,
		APIURL:        "http://localhost:3000",
	}
}
