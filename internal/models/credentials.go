package models

// Credentials authenticate against the search service.
type Credentials struct {
	AppID  string `yaml:"app_id" json:"app_id"`
	APIKey string `yaml:"api_key" json:"-"`
}

// Complete reports whether both required fields are present.
func (c Credentials) Complete() bool {
	return c.AppID != "" && c.APIKey != ""
}

// Override holds caller-supplied credential fields. Username maps to the app id,
// Password and the more specific Key map to the API key.
type Override struct {
	Username string
	Password string
	Key      string
}
