package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"igproxy/pkg/logger"
)

// Error types for Instagram API operations
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeTwoFactor   ErrorType = "two_factor"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeBadRequest  ErrorType = "bad_request"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents an Instagram API error
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("instagram %s error (code %d): %s", e.Type, e.Code, e.Message)
}

// API is the set of platform operations the rest of the system depends on.
// The real implementation is Client; tests substitute fakes.
type API interface {
	Login(ctx context.Context, username, password string) error
	SubmitTwoFactorCode(ctx context.Context, code string) error
	RestoreSession(username string, blob []byte) error
	SerializeSession() ([]byte, error)
	ResolveProfile(ctx context.Context, name string) (*Profile, error)
	ListHighlights(ctx context.Context, userID string) ([]Reel, error)
	ListHighlightItems(ctx context.Context, reelID string) ([]ReelItem, error)
	ListPosts(ctx context.Context, userID string, max int) ([]Post, error)
}

// Client represents an Instagram API client. A Client carries the transport
// state of one authenticated session and is not safe for concurrent use by
// multiple requests; create one per request.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	logger     logger.Logger

	username            string
	csrfToken           string
	twoFactorIdentifier string
}

var _ API = (*Client)(nil)

// NewClient creates a new Instagram API client with its own cookie jar
func NewClient(timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	jar, _ := cookiejar.New(nil)

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		headers: map[string]string{
			"User-Agent":       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			"Accept":           "*/*",
			"Accept-Language":  "en-US,en;q=0.9",
			"X-IG-App-ID":      "936619743392459",
			"X-Requested-With": "XMLHttpRequest",
			"Referer":          BaseURL + "/",
		},
		baseURL: BaseURL,
		logger:  log,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetBaseURL points the client at a different host. Used by tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimSuffix(base, "/")
}

func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if c.csrfToken != "" {
		req.Header.Set("X-CSRFToken", c.csrfToken)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
			Code:    0,
		}
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// getJSON performs a GET request and decodes the JSON response
func (c *Client) getJSON(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &Error{Type: ErrorTypeUnknown, Message: fmt.Sprintf("failed to create request: %v", err)}
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	return c.decodeJSON(resp, target)
}

func (c *Client) decodeJSON(resp *http.Response, target interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return nil
}

// checkResponseStatus checks the HTTP response status and returns appropriate errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &Error{Type: ErrorTypeAuth, Message: "authentication required", Code: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound:
		return &Error{Type: ErrorTypeNotFound, Message: "resource not found", Code: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Error{Type: ErrorTypeRateLimit, Message: "rate limit exceeded", Code: resp.StatusCode}
	case resp.StatusCode == http.StatusBadRequest:
		return &Error{Type: ErrorTypeBadRequest, Message: "query rejected", Code: resp.StatusCode}
	case resp.StatusCode >= 500:
		return &Error{Type: ErrorTypeServerError, Message: "server error", Code: resp.StatusCode}
	default:
		return &Error{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}
}

// ensureCSRFToken fetches the landing page once to obtain a csrftoken cookie
func (c *Client) ensureCSRFToken(ctx context.Context) error {
	if c.csrfToken != "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return &Error{Type: ErrorTypeUnknown, Message: fmt.Sprintf("failed to create request: %v", err)}
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "csrftoken" {
			c.csrfToken = cookie.Value
		}
	}
	if c.csrfToken == "" {
		// Some responses set the cookie only through the jar
		if u, err := url.Parse(c.baseURL); err == nil {
			for _, cookie := range c.httpClient.Jar.Cookies(u) {
				if cookie.Name == "csrftoken" {
					c.csrfToken = cookie.Value
				}
			}
		}
	}
	return nil
}

// Login performs a fresh username/password login. A two-factor challenge is
// reported as an ErrorTypeTwoFactor error; the client keeps the challenge
// identifier so SubmitTwoFactorCode can complete the login later.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if err := c.ensureCSRFToken(ctx); err != nil {
		return err
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("enc_password", fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), password))
	form.Set("queryParams", "{}")
	form.Set("optIntoOneTap", "false")

	resp, err := c.postForm(ctx, c.baseURL+LoginEndpoint, form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Login failures carry a JSON body even on non-200 statuses
	var result loginResponse
	if err := c.decodeJSON(resp, &result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return c.checkResponseStatus(resp)
		}
		return err
	}

	switch {
	case result.TwoFactorRequired:
		c.username = username
		c.twoFactorIdentifier = result.TwoFactorInfo.TwoFactorIdentifier
		c.logger.InfoWithFields("login requires two-factor verification", map[string]interface{}{
			"username": username,
		})
		return &Error{
			Type:    ErrorTypeTwoFactor,
			Message: "two-factor authentication required",
			Code:    resp.StatusCode,
		}
	case result.Authenticated:
		c.username = username
		c.refreshCSRFToken(resp)
		c.logger.InfoWithFields("login successful", map[string]interface{}{
			"username": username,
		})
		return nil
	case resp.StatusCode >= 500:
		return &Error{Type: ErrorTypeServerError, Message: "server error during login", Code: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Error{Type: ErrorTypeRateLimit, Message: "rate limit exceeded", Code: resp.StatusCode}
	default:
		message := "invalid credentials"
		if result.Message != "" {
			message = result.Message
		}
		return &Error{Type: ErrorTypeAuth, Message: message, Code: resp.StatusCode}
	}
}

// SubmitTwoFactorCode completes a login that hit a two-factor challenge
func (c *Client) SubmitTwoFactorCode(ctx context.Context, code string) error {
	if c.twoFactorIdentifier == "" {
		return &Error{Type: ErrorTypeUnknown, Message: "no pending two-factor challenge"}
	}

	form := url.Values{}
	form.Set("username", c.username)
	form.Set("identifier", c.twoFactorIdentifier)
	form.Set("verificationCode", strings.TrimSpace(code))

	resp, err := c.postForm(ctx, c.baseURL+TwoFactorEndpoint, form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result loginResponse
	if err := c.decodeJSON(resp, &result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return c.checkResponseStatus(resp)
		}
		return err
	}

	if !result.Authenticated {
		message := "incorrect verification code"
		if result.Message != "" {
			message = result.Message
		}
		return &Error{Type: ErrorTypeAuth, Message: message, Code: resp.StatusCode}
	}

	c.twoFactorIdentifier = ""
	c.refreshCSRFToken(resp)
	c.logger.InfoWithFields("two-factor login successful", map[string]interface{}{
		"username": c.username,
	})
	return nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &Error{Type: ErrorTypeUnknown, Message: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.doRequest(req)
}

// refreshCSRFToken picks up a rotated csrftoken after a successful login
func (c *Client) refreshCSRFToken(resp *http.Response) {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "csrftoken" && cookie.Value != "" {
			c.csrfToken = cookie.Value
		}
	}
}

// ResolveProfile fetches and resolves a profile by username
func (c *Client) ResolveProfile(ctx context.Context, name string) (*Profile, error) {
	if !IsValidUsername(name) {
		return nil, &Error{Type: ErrorTypeNotFound, Message: fmt.Sprintf("invalid username: %s", name)}
	}

	var result profileResponse
	if err := c.getJSON(ctx, c.profileURL(name), &result); err != nil {
		return nil, err
	}

	if result.RequiresToLogin {
		return nil, &Error{
			Type:    ErrorTypeAuth,
			Message: "Instagram requires authentication to view this profile",
			Code:    http.StatusUnauthorized,
		}
	}

	user := result.Data.User
	if user.ID == "" {
		return nil, &Error{
			Type:    ErrorTypeNotFound,
			Message: fmt.Sprintf("profile %s does not exist", name),
			Code:    http.StatusNotFound,
		}
	}

	return &Profile{
		ID:        user.ID,
		Username:  user.Username,
		FullName:  user.FullName,
		PostCount: user.EdgeOwnerToTimelineMedia.Count,
		IsPrivate: user.IsPrivate,
	}, nil
}

// ListHighlights fetches the highlight reels of a profile in tray order
func (c *Client) ListHighlights(ctx context.Context, userID string) ([]Reel, error) {
	var result highlightsTrayResponse
	if err := c.getJSON(ctx, c.highlightsTrayURL(userID), &result); err != nil {
		return nil, err
	}

	reels := make([]Reel, 0, len(result.Tray))
	for _, entry := range result.Tray {
		reels = append(reels, Reel{
			ID:        entry.ID,
			Title:     entry.Title,
			ItemCount: entry.MediaCount,
		})
	}
	return reels, nil
}

// ListHighlightItems fetches the ordered media items of a single reel
func (c *Client) ListHighlightItems(ctx context.Context, reelID string) ([]ReelItem, error) {
	var result reelsMediaResponse
	if err := c.getJSON(ctx, c.reelsMediaURL(reelID), &result); err != nil {
		return nil, err
	}

	var items []ReelItem
	for _, reel := range result.ReelsMedia {
		for _, raw := range reel.Items {
			items = append(items, raw.toReelItem())
		}
	}
	return items, nil
}

// ListPosts fetches a user's timeline posts in reverse-chronological order.
// max > 0 stops paginating once that many posts have been collected;
// max <= 0 fetches the full timeline.
func (c *Client) ListPosts(ctx context.Context, userID string, max int) ([]Post, error) {
	var posts []Post
	after := ""

	for {
		var result mediaResponse
		if err := c.getJSON(ctx, c.mediaURL(userID, after), &result); err != nil {
			return nil, err
		}

		media := result.Data.User.EdgeOwnerToTimelineMedia
		for _, edge := range media.Edges {
			posts = append(posts, edge.Node.toPost())
		}

		c.logger.DebugWithFields("media page fetched", map[string]interface{}{
			"user_id":   userID,
			"collected": len(posts),
			"has_next":  media.PageInfo.HasNextPage,
		})

		if max > 0 && len(posts) >= max {
			return posts, nil
		}
		if !media.PageInfo.HasNextPage || media.PageInfo.EndCursor == "" {
			return posts, nil
		}
		after = media.PageInfo.EndCursor
	}
}

func (c *Client) profileURL(username string) string {
	params := url.Values{}
	params.Set("username", username)
	return fmt.Sprintf("%s%s?%s", c.baseURL, ProfileEndpoint, params.Encode())
}

func (c *Client) mediaURL(userID, after string) string {
	params := url.Values{}
	params.Set("query_hash", MediaQueryHash)
	params.Set("variables", fmt.Sprintf(`{"id":"%s","first":%d,"after":"%s"}`, userID, MediaPageSize, after))
	return fmt.Sprintf("%s%s?%s", c.baseURL, MediaEndpoint, params.Encode())
}

func (c *Client) highlightsTrayURL(userID string) string {
	return c.baseURL + fmt.Sprintf(HighlightsTrayEndpoint, userID)
}

func (c *Client) reelsMediaURL(reelID string) string {
	params := url.Values{}
	params.Set("reel_ids", reelID)
	return fmt.Sprintf("%s%s?%s", c.baseURL, ReelsMediaEndpoint, params.Encode())
}
