package server

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"igproxy/pkg/auth"
	igerrors "igproxy/pkg/errors"
	"igproxy/pkg/scraper"
)

// respondError sends the unified error payload {"detail": ...}
func respondError(c *gin.Context, status int, detail string) {
	c.JSON(status, gin.H{"detail": detail})
}

// respondScrapeError renders a service error with its taxonomy mapping. A
// pending two-factor challenge additionally carries its token so the caller
// can redeem it.
func respondScrapeError(c *gin.Context, err error) {
	var pending *scraper.ChallengePendingError
	if stderrors.As(err, &pending) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"detail":          igerrors.Detail(igerrors.KindChallengePending),
			"challenge_token": pending.Token,
		})
		return
	}

	kind := igerrors.KindOf(err)
	respondError(c, igerrors.HTTPStatus(kind), igerrors.Detail(kind))
}

// credentialFromQuery reads user, password and two_factor query parameters
func credentialFromQuery(c *gin.Context) (auth.Credential, bool) {
	username := c.Query("user")
	password := c.Query("password")
	if username == "" || password == "" {
		respondError(c, http.StatusBadRequest, "user and password query parameters are required")
		return auth.Credential{}, false
	}
	return auth.Credential{
		Username:         username,
		Password:         password,
		TwoFactorEnabled: strings.EqualFold(c.Query("two_factor"), "true"),
	}, true
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleAuth(c *gin.Context) {
	cred, ok := credentialFromQuery(c)
	if !ok {
		return
	}

	if err := s.service.Authenticate(c.Request.Context(), cred); err != nil {
		respondScrapeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) handleAuthChallenge(c *gin.Context) {
	var req struct {
		ChallengeToken string `json:"challenge_token" binding:"required"`
		Code           string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "challenge_token and code are required")
		return
	}

	if err := s.service.SubmitChallenge(c.Request.Context(), req.ChallengeToken, req.Code); err != nil {
		s.logger.WithError(err).Warn("challenge submission rejected")
		respondScrapeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) handleHighlights(c *gin.Context) {
	cred, ok := credentialFromQuery(c)
	if !ok {
		return
	}
	profileName := c.Param("profile")

	var index *int
	if raw := c.Param("index"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "highlight index must be an integer")
			return
		}
		index = &parsed
	}

	result, err := s.service.FetchHighlights(c.Request.Context(), cred, profileName, index)
	if err != nil {
		respondScrapeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handlePosts(c *gin.Context) {
	cred, ok := credentialFromQuery(c)
	if !ok {
		return
	}
	profileName := c.Param("profile")

	skip := 0
	if raw := c.Query("skip"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(c, http.StatusBadRequest, "skip must be a non-negative integer")
			return
		}
		skip = parsed
	}

	var limit *int
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(c, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = &parsed
	}

	result, err := s.service.FetchPosts(c.Request.Context(), cred, profileName, skip, limit)
	if err != nil {
		respondScrapeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleProfileContents(c *gin.Context) {
	cred, ok := credentialFromQuery(c)
	if !ok {
		return
	}
	profileName := c.Param("profile")

	summary, err := s.service.FetchProfileSummary(c.Request.Context(), cred, profileName)
	if err != nil {
		respondScrapeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.stats.Snapshot())
}

func (s *Server) handleResetStats(c *gin.Context) {
	s.stats.Reset()
	s.logger.Info("stats counters reset by request")
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) handleDownloadSession(c *gin.Context) {
	username, ok := s.resolveSessionUser(c)
	if !ok {
		return
	}

	blob, err := s.sessions.Load(username)
	if err != nil {
		respondError(c, http.StatusNotFound, "Session file not found")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.session", username))
	c.Data(http.StatusOK, "application/octet-stream", blob)
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	username, ok := s.resolveSessionUser(c)
	if !ok {
		return
	}

	if !s.sessions.Exists(username) {
		respondError(c, http.StatusNotFound, "Session file not found")
		return
	}
	if err := s.sessions.Delete(username); err != nil {
		s.logger.WithError(err).WithField("username", username).Error("failed to delete session")
		respondError(c, http.StatusInternalServerError, igerrors.Detail(igerrors.KindUnknown))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// resolveSessionUser picks the username a session endpoint operates on: the
// user query parameter, then the configured default, then the only stored
// session if there is exactly one.
func (s *Server) resolveSessionUser(c *gin.Context) (string, bool) {
	if username := c.Query("user"); username != "" {
		return username, true
	}
	if username := s.cfg.Session.DefaultUsername; username != "" {
		return username, true
	}

	usernames, err := s.sessions.List()
	if err == nil && len(usernames) == 1 {
		return usernames[0], true
	}

	respondError(c, http.StatusNotFound, "Session file not found")
	return "", false
}
