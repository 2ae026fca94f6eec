package instagram

// Profile represents a resolved Instagram profile
type Profile struct {
	ID        string
	Username  string
	FullName  string
	PostCount int
	IsPrivate bool
}

// Reel is a named highlight reel attached to a profile
type Reel struct {
	ID        string
	Title     string
	ItemCount int
}

// ReelItem is a single media item inside a highlight reel
type ReelItem struct {
	ID      string
	IsVideo bool
	URL     string
}

// Post represents a single timeline post
type Post struct {
	ID         string
	Shortcode  string
	IsVideo    bool
	IsSidecar  bool
	DisplayURL string
	VideoURL   string
	Children   []PostChild
}

// PostChild is one media item inside a carousel post
type PostChild struct {
	ID         string
	IsVideo    bool
	DisplayURL string
	VideoURL   string
}

// MediaURLs returns the direct media URLs of a post: one URL for a single
// photo or video, one per child in order for a carousel.
func (p *Post) MediaURLs() []string {
	if p.IsSidecar && len(p.Children) > 0 {
		urls := make([]string, 0, len(p.Children))
		for _, child := range p.Children {
			urls = append(urls, child.MediaURL())
		}
		return urls
	}
	if p.IsVideo && p.VideoURL != "" {
		return []string{p.VideoURL}
	}
	return []string{p.DisplayURL}
}

// MediaURL returns the direct media URL of a carousel child
func (c *PostChild) MediaURL() string {
	if c.IsVideo && c.VideoURL != "" {
		return c.VideoURL
	}
	return c.DisplayURL
}

// profileResponse is the wire shape of the web profile endpoint
type profileResponse struct {
	RequiresToLogin bool   `json:"requires_to_login"`
	Status          string `json:"status"`
	Data            struct {
		User struct {
			ID                       string `json:"id"`
			Username                 string `json:"username"`
			FullName                 string `json:"full_name"`
			IsPrivate                bool   `json:"is_private"`
			EdgeOwnerToTimelineMedia struct {
				Count int `json:"count"`
			} `json:"edge_owner_to_timeline_media"`
		} `json:"user"`
	} `json:"data"`
}

// mediaResponse is the wire shape of the paginated timeline media query
type mediaResponse struct {
	Status string `json:"status"`
	Data   struct {
		User struct {
			EdgeOwnerToTimelineMedia struct {
				Count    int `json:"count"`
				PageInfo struct {
					HasNextPage bool   `json:"has_next_page"`
					EndCursor   string `json:"end_cursor"`
				} `json:"page_info"`
				Edges []struct {
					Node mediaNode `json:"node"`
				} `json:"edges"`
			} `json:"edge_owner_to_timeline_media"`
		} `json:"user"`
	} `json:"data"`
}

type mediaNode struct {
	Typename             string `json:"__typename"`
	ID                   string `json:"id"`
	Shortcode            string `json:"shortcode"`
	DisplayURL           string `json:"display_url"`
	IsVideo              bool   `json:"is_video"`
	VideoURL             string `json:"video_url"`
	EdgeSidecarToChildren struct {
		Edges []struct {
			Node struct {
				ID         string `json:"id"`
				DisplayURL string `json:"display_url"`
				IsVideo    bool   `json:"is_video"`
				VideoURL   string `json:"video_url"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_sidecar_to_children"`
}

func (n *mediaNode) toPost() Post {
	post := Post{
		ID:         n.ID,
		Shortcode:  n.Shortcode,
		IsVideo:    n.IsVideo,
		IsSidecar:  n.Typename == typenameSidecar || len(n.EdgeSidecarToChildren.Edges) > 0,
		DisplayURL: n.DisplayURL,
		VideoURL:   n.VideoURL,
	}
	for _, edge := range n.EdgeSidecarToChildren.Edges {
		post.Children = append(post.Children, PostChild{
			ID:         edge.Node.ID,
			IsVideo:    edge.Node.IsVideo,
			DisplayURL: edge.Node.DisplayURL,
			VideoURL:   edge.Node.VideoURL,
		})
	}
	return post
}

// highlightsTrayResponse is the wire shape of the highlights tray endpoint
type highlightsTrayResponse struct {
	Status string `json:"status"`
	Tray   []struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		MediaCount int    `json:"media_count"`
	} `json:"tray"`
}

// reelsMediaResponse is the wire shape of the reel items endpoint
type reelsMediaResponse struct {
	Status     string `json:"status"`
	ReelsMedia []struct {
		ID    string     `json:"id"`
		Items []reelItem `json:"items"`
	} `json:"reels_media"`
}

type reelItem struct {
	ID             string `json:"id"`
	MediaType      int    `json:"media_type"`
	ImageVersions2 struct {
		Candidates []struct {
			URL string `json:"url"`
		} `json:"candidates"`
	} `json:"image_versions2"`
	VideoVersions []struct {
		URL string `json:"url"`
	} `json:"video_versions"`
}

func (r *reelItem) toReelItem() ReelItem {
	item := ReelItem{
		ID:      r.ID,
		IsVideo: r.MediaType == mediaTypeVideo,
	}
	if item.IsVideo && len(r.VideoVersions) > 0 {
		item.URL = r.VideoVersions[0].URL
	} else if len(r.ImageVersions2.Candidates) > 0 {
		item.URL = r.ImageVersions2.Candidates[0].URL
	}
	return item
}

// loginResponse is the wire shape of the login endpoint
type loginResponse struct {
	Authenticated     bool   `json:"authenticated"`
	User              bool   `json:"user"`
	UserID            string `json:"userId"`
	Status            string `json:"status"`
	Message           string `json:"message"`
	TwoFactorRequired bool   `json:"two_factor_required"`
	TwoFactorInfo     struct {
		TwoFactorIdentifier string `json:"two_factor_identifier"`
		Username            string `json:"username"`
	} `json:"two_factor_info"`
}
