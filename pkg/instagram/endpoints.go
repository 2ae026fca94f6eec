package instagram

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// ProfileEndpoint is the endpoint pattern for user profiles
	ProfileEndpoint = "/api/v1/users/web_profile_info/"

	// MediaEndpoint is the endpoint pattern for paginated timeline media
	MediaEndpoint = "/graphql/query/"

	// LoginEndpoint is the web login endpoint
	LoginEndpoint = "/api/v1/web/accounts/login/ajax/"

	// TwoFactorEndpoint completes a login that hit a two-factor challenge
	TwoFactorEndpoint = "/accounts/login/ajax/two_factor/"

	// HighlightsTrayEndpoint is the endpoint pattern for a user's highlight reels
	HighlightsTrayEndpoint = "/api/v1/highlights/%s/highlights_tray/"

	// ReelsMediaEndpoint returns the media items of one or more reels
	ReelsMediaEndpoint = "/api/v1/feed/reels_media/"

	// MediaQueryHash is the query hash for fetching user media
	MediaQueryHash = "e769aa130647d2354c40ea6a439bfc08"

	// MediaPageSize is the number of posts fetched per timeline page
	MediaPageSize = 50

	mediaTypeVideo  = 2
	typenameSidecar = "GraphSidecar"
)

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}
	return true
}
