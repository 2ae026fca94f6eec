package instagram

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// sessionState is the serialized form of an authenticated session. The blob
// is opaque to every other package; only this client reads or writes it.
type sessionState struct {
	Version   int             `json:"version"`
	Username  string          `json:"username"`
	CSRFToken string          `json:"csrf_token"`
	SavedAt   time.Time       `json:"saved_at"`
	Cookies   []sessionCookie `json:"cookies"`
}

type sessionCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Domain  string    `json:"domain,omitempty"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

const sessionStateVersion = 1

// SerializeSession captures the client's authentication state as an opaque blob
func (c *Client) SerializeSession() ([]byte, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, &Error{Type: ErrorTypeUnknown, Message: fmt.Sprintf("invalid base URL: %v", err)}
	}

	state := sessionState{
		Version:   sessionStateVersion,
		Username:  c.username,
		CSRFToken: c.csrfToken,
		SavedAt:   time.Now(),
	}
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		state.Cookies = append(state.Cookies, sessionCookie{
			Name:    cookie.Name,
			Value:   cookie.Value,
			Domain:  cookie.Domain,
			Path:    cookie.Path,
			Expires: cookie.Expires,
		})
	}

	if !hasSessionCookie(state.Cookies) {
		return nil, &Error{Type: ErrorTypeAuth, Message: "client holds no authenticated session"}
	}

	return json.Marshal(state)
}

// RestoreSession hydrates the client from a previously serialized blob.
// The blob must belong to the given username and carry a session cookie.
func (c *Client) RestoreSession(username string, blob []byte) error {
	var state sessionState
	if err := json.Unmarshal(blob, &state); err != nil {
		return &Error{Type: ErrorTypeParsing, Message: fmt.Sprintf("malformed session blob: %v", err)}
	}
	if state.Version != sessionStateVersion {
		return &Error{Type: ErrorTypeParsing, Message: fmt.Sprintf("unsupported session version: %d", state.Version)}
	}
	if state.Username != username {
		return &Error{Type: ErrorTypeAuth, Message: "session blob belongs to a different user"}
	}
	if !hasSessionCookie(state.Cookies) {
		return &Error{Type: ErrorTypeAuth, Message: "session blob carries no session cookie"}
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return &Error{Type: ErrorTypeUnknown, Message: fmt.Sprintf("invalid base URL: %v", err)}
	}

	cookies := make([]*http.Cookie, 0, len(state.Cookies))
	for _, sc := range state.Cookies {
		if !sc.Expires.IsZero() && sc.Expires.Before(time.Now()) {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:    sc.Name,
			Value:   sc.Value,
			Domain:  sc.Domain,
			Path:    sc.Path,
			Expires: sc.Expires,
		})
	}
	if !cookiesContain(cookies, "sessionid") {
		return &Error{Type: ErrorTypeAuth, Message: "session cookie has expired"}
	}

	c.httpClient.Jar.SetCookies(u, cookies)
	c.username = state.Username
	c.csrfToken = state.CSRFToken

	c.logger.DebugWithFields("session restored", map[string]interface{}{
		"username": username,
		"saved_at": state.SavedAt,
	})
	return nil
}

func hasSessionCookie(cookies []sessionCookie) bool {
	for _, cookie := range cookies {
		if cookie.Name == "sessionid" && cookie.Value != "" {
			return true
		}
	}
	return false
}

func cookiesContain(cookies []*http.Cookie, name string) bool {
	for _, cookie := range cookies {
		if cookie.Name == name && cookie.Value != "" {
			return true
		}
	}
	return false
}
