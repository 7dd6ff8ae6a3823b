// Package credentials merges configured search credentials with caller overrides.
package credentials

import "github.com/starford/indexsync/internal/models"

// Resolve starts from cfg and applies every non-empty override field. Key is
// applied after Password, so it wins when both are given.
func Resolve(cfg models.Credentials, override *models.Override) models.Credentials {
	out := cfg
	if override == nil {
		return out
	}
	if override.Username != "" {
		out.AppID = override.Username
	}
	if override.Password != "" {
		out.APIKey = override.Password
	}
	if override.Key != "" {
		out.APIKey = override.Key
	}
	return out
}
