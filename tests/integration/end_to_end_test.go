package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igproxy/internal/server"
	"igproxy/pkg/auth"
	"igproxy/pkg/config"
	"igproxy/pkg/instagram"
	"igproxy/pkg/logger"
	"igproxy/pkg/scraper"
	"igproxy/pkg/session"
	"igproxy/pkg/stats"
)

// newFakePlatform serves just enough of the upstream API for a full
// login-then-fetch round trip.
func newFakePlatform(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, payload interface{}) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "csrf-token", Path: "/"})
	})
	mux.HandleFunc(instagram.LoginEndpoint, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostFormValue("username") != "alice" {
			writeJSON(w, map[string]interface{}{"authenticated": false})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "session-1", Path: "/"})
		writeJSON(w, map[string]interface{}{"authenticated": true})
	})
	mux.HandleFunc(instagram.ProfileEndpoint, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"data": map[string]interface{}{
				"user": map[string]interface{}{
					"id":       "42",
					"username": "target",
					"edge_owner_to_timeline_media": map[string]interface{}{"count": 2},
				},
			},
		})
	})
	mux.HandleFunc("/api/v1/highlights/42/highlights_tray/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"tray": []map[string]interface{}{
				{"id": "highlight:1", "title": "Travel", "media_count": 1},
			},
		})
	})
	mux.HandleFunc(instagram.ReelsMediaEndpoint, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"reels_media": []map[string]interface{}{
				{
					"id": "highlight:1",
					"items": []map[string]interface{}{
						{
							"id":         "item-1",
							"media_type": 1,
							"image_versions2": map[string]interface{}{
								"candidates": []map[string]interface{}{{"url": "https://cdn/t1.jpg"}},
							},
						},
					},
				},
			},
		})
	})
	mux.HandleFunc(instagram.MediaEndpoint, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"data": map[string]interface{}{
				"user": map[string]interface{}{
					"edge_owner_to_timeline_media": map[string]interface{}{
						"page_info": map[string]interface{}{"has_next_page": false, "end_cursor": ""},
						"edges": []map[string]interface{}{
							{"node": map[string]interface{}{"id": "p1", "display_url": "https://cdn/p1.jpg"}},
							{"node": map[string]interface{}{"id": "p2", "is_video": true, "video_url": "https://cdn/p2.mp4"}},
						},
					},
				},
			},
		})
	})

	upstream := httptest.NewServer(mux)
	t.Cleanup(upstream.Close)
	return upstream
}

func newStack(t *testing.T, upstreamURL string) (*server.Server, *stats.Counter) {
	t.Helper()
	log := logger.NewTestLogger()

	manager, err := session.NewManager(log, session.NewMemoryStore())
	require.NoError(t, err)

	factory := func() instagram.API {
		client := instagram.NewClient(5*time.Second, log)
		client.SetBaseURL(upstreamURL)
		return client
	}

	authenticator := auth.New(manager, auth.NewMemoryChallengeStore(), factory, log, auth.Options{})
	counter := stats.NewCounter(log)
	service := scraper.New(authenticator, counter, log)
	return server.New(config.DefaultConfig(), service, manager, counter, log), counter
}

func get(t *testing.T, srv *server.Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	recorder := httptest.NewRecorder()
	srv.Engine().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, target, nil))
	return recorder
}

func TestEndToEndHighlightsFlow(t *testing.T) {
	upstream := newFakePlatform(t)
	srv, counter := newStack(t, upstream.URL)

	recorder := get(t, srv, "/highlights/target?user=alice&password=secret")
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var body struct {
		All map[string][]string `json:"all_highlights"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, []string{"https://cdn/t1.jpg"}, body.All["0"])

	snapshot := counter.Snapshot()
	assert.Equal(t, uint64(1), snapshot.Succeeded)
	assert.Equal(t, uint64(0), snapshot.Failed)
}

func TestEndToEndPostsFlow(t *testing.T) {
	upstream := newFakePlatform(t)
	srv, _ := newStack(t, upstream.URL)

	recorder := get(t, srv, "/posts/target?user=alice&password=secret")
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var body struct {
		URLs []string `json:"post_urls"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, []string{"https://cdn/p1.jpg", "https://cdn/p2.mp4"}, body.URLs)
}

func TestEndToEndSessionReuse(t *testing.T) {
	upstream := newFakePlatform(t)
	srv, _ := newStack(t, upstream.URL)

	// First request performs the password login and stores the session
	recorder := get(t, srv, "/auth?user=alice&password=secret")
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = get(t, srv, "/session?user=alice")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.NotEmpty(t, recorder.Body.Bytes())

	// Later requests ride the stored session even with a wrong password
	recorder = get(t, srv, "/auth?user=alice&password=now-wrong")
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestEndToEndBadCredentials(t *testing.T) {
	upstream := newFakePlatform(t)
	srv, counter := newStack(t, upstream.URL)

	recorder := get(t, srv, "/auth?user=mallory&password=secret")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "Invalid credentials", body["detail"])

	snapshot := counter.Snapshot()
	assert.Equal(t, uint64(0), snapshot.Succeeded)
	assert.Equal(t, uint64(0), snapshot.Failed)
}
