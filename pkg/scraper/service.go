// Package scraper orchestrates authenticated content fetches and keeps the
// service-wide success/failure counters honest.
package scraper

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"igproxy/pkg/auth"
	igerrors "igproxy/pkg/errors"
	"igproxy/pkg/instagram"
	"igproxy/pkg/logger"
	"igproxy/pkg/stats"
)

// highlightFetchConcurrency bounds parallel per-highlight item fetches
const highlightFetchConcurrency = 4

// ChallengePendingError reports that the login needs a two-factor code.
// Token identifies the challenge to redeem.
type ChallengePendingError struct {
	Token string
}

func (e *ChallengePendingError) Error() string {
	return "two-factor challenge pending"
}

// HighlightsResult is the outcome of a highlights fetch. Exactly one of All,
// URLs and InvalidIndex is populated.
type HighlightsResult struct {
	All          map[int][]string `json:"all_highlights,omitempty"`
	URLs         []string         `json:"highlight_urls,omitempty"`
	InvalidIndex string           `json:"error,omitempty"`
	ValidIndexes []int            `json:"valid_indexes,omitempty"`
}

// PostsResult holds the media URLs of the requested post window
type PostsResult struct {
	URLs []string `json:"post_urls"`
}

// HighlightSummary describes one highlight reel without its media
type HighlightSummary struct {
	Name      string `json:"name"`
	ItemCount int    `json:"number_of_items"`
}

// PostSummary carries aggregate post information
type PostSummary struct {
	Count int `json:"number_of_posts"`
}

// ProfileSummary is the lightweight overview of a profile's content
type ProfileSummary struct {
	Highlights []HighlightSummary `json:"highlights"`
	Posts      PostSummary        `json:"posts"`
}

// Service runs content fetches behind authentication. Authentication failures
// pass through untouched; fetch outcomes after a successful login are counted
// on the shared stats counter.
type Service struct {
	auth   *auth.Authenticator
	stats  *stats.Counter
	logger logger.Logger
}

// New creates a scraping service
func New(authenticator *auth.Authenticator, counter *stats.Counter, log logger.Logger) *Service {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Service{
		auth:   authenticator,
		stats:  counter,
		logger: log,
	}
}

// Authenticate logs in without fetching anything. Used by the login endpoint
// to prime a session or open a two-factor challenge.
func (s *Service) Authenticate(ctx context.Context, cred auth.Credential) error {
	_, err := s.login(ctx, cred)
	return err
}

// SubmitChallenge completes a pending two-factor login
func (s *Service) SubmitChallenge(ctx context.Context, token, code string) error {
	_, err := s.auth.SubmitChallenge(ctx, token, code)
	return err
}

// FetchHighlights returns highlight media URLs for a profile. With index nil
// every highlight is fetched; with an index the single highlight is fetched,
// and an out-of-range index yields an InvalidIndex result that counts as a
// failed request.
func (s *Service) FetchHighlights(ctx context.Context, cred auth.Credential, profileName string, index *int) (*HighlightsResult, error) {
	client, err := s.login(ctx, cred)
	if err != nil {
		return nil, err
	}

	result, err := s.fetchHighlights(ctx, client, profileName, index)
	if err != nil {
		s.stats.IncrementFailed()
		s.logger.WithError(err).WithField("profile", profileName).Error("highlights fetch failed")
		return nil, igerrors.Classify(err)
	}

	if result.InvalidIndex != "" {
		s.stats.IncrementFailed()
	} else {
		s.stats.IncrementSucceeded()
	}
	return result, nil
}

// FetchPosts returns media URLs for a window of the profile's posts. Skip
// drops the newest posts first; a nil limit means everything after skip.
func (s *Service) FetchPosts(ctx context.Context, cred auth.Credential, profileName string, skip int, limit *int) (*PostsResult, error) {
	client, err := s.login(ctx, cred)
	if err != nil {
		return nil, err
	}

	result, err := s.fetchPosts(ctx, client, profileName, skip, limit)
	if err != nil {
		s.stats.IncrementFailed()
		s.logger.WithError(err).WithField("profile", profileName).Error("posts fetch failed")
		return nil, igerrors.Classify(err)
	}

	s.stats.IncrementSucceeded()
	return result, nil
}

// FetchProfileSummary returns highlight names with item counts plus the total
// post count, without downloading any media URLs.
func (s *Service) FetchProfileSummary(ctx context.Context, cred auth.Credential, profileName string) (*ProfileSummary, error) {
	client, err := s.login(ctx, cred)
	if err != nil {
		return nil, err
	}

	summary, err := s.fetchProfileSummary(ctx, client, profileName)
	if err != nil {
		s.stats.IncrementFailed()
		s.logger.WithError(err).WithField("profile", profileName).Error("profile summary fetch failed")
		return nil, igerrors.Classify(err)
	}

	s.stats.IncrementSucceeded()
	return summary, nil
}

func (s *Service) login(ctx context.Context, cred auth.Credential) (instagram.API, error) {
	login, err := s.auth.Authenticate(ctx, cred)
	if err != nil {
		return nil, err
	}
	if login.ChallengeToken != "" {
		return nil, &ChallengePendingError{Token: login.ChallengeToken}
	}
	return login.Client, nil
}

func (s *Service) fetchHighlights(ctx context.Context, client instagram.API, profileName string, index *int) (*HighlightsResult, error) {
	profile, err := client.ResolveProfile(ctx, profileName)
	if err != nil {
		return nil, err
	}

	reels, err := client.ListHighlights(ctx, profile.ID)
	if err != nil {
		return nil, err
	}

	if index != nil {
		if *index < 0 || *index >= len(reels) {
			validIndexes := make([]int, len(reels))
			for i := range reels {
				validIndexes[i] = i
			}
			return &HighlightsResult{
				InvalidIndex: "Invalid index",
				ValidIndexes: validIndexes,
			}, nil
		}

		urls, err := s.highlightURLs(ctx, client, reels[*index].ID)
		if err != nil {
			return nil, err
		}
		return &HighlightsResult{URLs: urls}, nil
	}

	all := make(map[int][]string, len(reels))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(highlightFetchConcurrency)
	results := make([][]string, len(reels))
	for i, reel := range reels {
		i, reel := i, reel
		group.Go(func() error {
			urls, err := s.highlightURLs(groupCtx, client, reel.ID)
			if err != nil {
				return err
			}
			results[i] = urls
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	for i, urls := range results {
		all[i] = urls
	}
	return &HighlightsResult{All: all}, nil
}

func (s *Service) highlightURLs(ctx context.Context, client instagram.API, reelID string) ([]string, error) {
	items, err := client.ListHighlightItems(ctx, reelID)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(items))
	for _, item := range items {
		urls = append(urls, item.URL)
	}
	return urls, nil
}

func (s *Service) fetchPosts(ctx context.Context, client instagram.API, profileName string, skip int, limit *int) (*PostsResult, error) {
	profile, err := client.ResolveProfile(ctx, profileName)
	if err != nil {
		return nil, err
	}

	if skip < 0 {
		skip = 0
	}

	// Fetch only as many posts as the window can use
	max := 0
	if limit != nil {
		max = skip + *limit
	}

	posts, err := client.ListPosts(ctx, profile.ID, max)
	if err != nil {
		// The profile resolved, so a not-found here is about the media
		// query, not the profile
		var igErr *instagram.Error
		if errors.As(err, &igErr) && igErr.Type == instagram.ErrorTypeNotFound {
			return nil, igerrors.New(igerrors.KindContentNotFound, igErr.Message)
		}
		return nil, err
	}

	if skip >= len(posts) {
		return &PostsResult{URLs: []string{}}, nil
	}
	window := posts[skip:]
	if limit != nil && *limit < len(window) {
		window = window[:*limit]
	}

	urls := make([]string, 0, len(window))
	for _, post := range window {
		urls = append(urls, post.MediaURLs()...)
	}
	return &PostsResult{URLs: urls}, nil
}

func (s *Service) fetchProfileSummary(ctx context.Context, client instagram.API, profileName string) (*ProfileSummary, error) {
	profile, err := client.ResolveProfile(ctx, profileName)
	if err != nil {
		return nil, err
	}

	reels, err := client.ListHighlights(ctx, profile.ID)
	if err != nil {
		return nil, err
	}

	highlights := make([]HighlightSummary, 0, len(reels))
	for _, reel := range reels {
		highlights = append(highlights, HighlightSummary{
			Name:      reel.Title,
			ItemCount: reel.ItemCount,
		})
	}

	return &ProfileSummary{
		Highlights: highlights,
		Posts:      PostSummary{Count: profile.PostCount},
	}, nil
}
