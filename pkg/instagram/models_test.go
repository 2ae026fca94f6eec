package instagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostMediaURLs(t *testing.T) {
	tests := []struct {
		name     string
		post     Post
		expected []string
	}{
		{
			name:     "photo",
			post:     Post{DisplayURL: "https://cdn/photo.jpg"},
			expected: []string{"https://cdn/photo.jpg"},
		},
		{
			name:     "video",
			post:     Post{IsVideo: true, DisplayURL: "https://cdn/poster.jpg", VideoURL: "https://cdn/clip.mp4"},
			expected: []string{"https://cdn/clip.mp4"},
		},
		{
			name:     "video without video url falls back to display url",
			post:     Post{IsVideo: true, DisplayURL: "https://cdn/poster.jpg"},
			expected: []string{"https://cdn/poster.jpg"},
		},
		{
			name: "carousel in order",
			post: Post{
				IsSidecar:  true,
				DisplayURL: "https://cdn/cover.jpg",
				Children: []PostChild{
					{DisplayURL: "https://cdn/c1.jpg"},
					{IsVideo: true, VideoURL: "https://cdn/c2.mp4", DisplayURL: "https://cdn/c2.jpg"},
					{DisplayURL: "https://cdn/c3.jpg"},
				},
			},
			expected: []string{"https://cdn/c1.jpg", "https://cdn/c2.mp4", "https://cdn/c3.jpg"},
		},
		{
			name:     "carousel without children falls back to display url",
			post:     Post{IsSidecar: true, DisplayURL: "https://cdn/cover.jpg"},
			expected: []string{"https://cdn/cover.jpg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.post.MediaURLs())
		})
	}
}

func TestMediaNodeToPost(t *testing.T) {
	node := mediaNode{
		Typename:   typenameSidecar,
		ID:         "p1",
		Shortcode:  "abc",
		DisplayURL: "https://cdn/p1.jpg",
	}
	node.EdgeSidecarToChildren.Edges = []struct {
		Node struct {
			ID         string `json:"id"`
			DisplayURL string `json:"display_url"`
			IsVideo    bool   `json:"is_video"`
			VideoURL   string `json:"video_url"`
		} `json:"node"`
	}{}

	post := node.toPost()
	assert.True(t, post.IsSidecar)
	assert.Equal(t, "p1", post.ID)
	assert.Equal(t, "abc", post.Shortcode)
}
