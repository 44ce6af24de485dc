package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"ghostlore.app/errors"
	"ghostlore.app/middleware"
	"ghostlore.app/models"
	"ghostlore.app/repository"
	"ghostlore.app/service"
)

func (s *Server) register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, errors.NewValidationError(err.Error()))
		return
	}

	user, token, err := s.opts.Auth.Register(c.Request.Context(), &req)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

func (s *Server) login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, errors.NewValidationError(err.Error()))
		return
	}

	user, token, err := s.opts.Auth.Login(c.Request.Context(), &req)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

func (s *Server) logout(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if err := s.opts.Auth.Logout(c.Request.Context(), token); err != nil {
		s.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// requireSelf rejects requests whose path user id does not match the
// authenticated caller. Accounts are private to their owner.
func (s *Server) requireSelf(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.ContextUserIDKey)
	if c.Param("id") != userID {
		s.handleError(c, errors.NewUnauthorizedError("cannot access another user's account"))
		return "", false
	}
	return userID, true
}

func (s *Server) getUser(c *gin.Context) {
	userID, ok := s.requireSelf(c)
	if !ok {
		return
	}

	user, err := s.opts.Users.GetUser(c.Request.Context(), userID)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) updateUser(c *gin.Context) {
	userID, ok := s.requireSelf(c)
	if !ok {
		return
	}

	var req struct {
		Username string `json:"username" binding:"required,min=3,max=32"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, errors.NewValidationError(err.Error()))
		return
	}

	user, err := s.opts.Users.UpdateUsername(c.Request.Context(), userID, req.Username)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) deleteUser(c *gin.Context) {
	userID, ok := s.requireSelf(c)
	if !ok {
		return
	}

	if err := s.opts.Users.DeleteUser(c.Request.Context(), userID); err != nil {
		s.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getPreferences(c *gin.Context) {
	userID, ok := s.requireSelf(c)
	if !ok {
		return
	}

	prefs, err := s.opts.Preferences.GetPreferences(c.Request.Context(), userID)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (s *Server) updatePreferences(c *gin.Context) {
	userID, ok := s.requireSelf(c)
	if !ok {
		return
	}

	var req models.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, errors.NewValidationError(err.Error()))
		return
	}

	prefs, err := s.opts.Preferences.UpdatePreferences(c.Request.Context(), userID, &req)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (s *Server) searchGhosts(c *gin.Context) {
	opts := service.GhostSearchOptions{
		Query:   c.Query("q"),
		Page:    queryInt(c, "page", 1),
		Limit:   queryInt(c, "limit", 0),
		Filters: ghostFiltersFromQuery(c),
	}

	result, err := s.opts.Ghosts.Search(c.Request.Context(), opts)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) getGhost(c *gin.Context) {
	ghost, err := s.opts.Ghosts.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, ghost)
}

func (s *Server) getRelatedGhosts(c *gin.Context) {
	ghosts, err := s.opts.Ghosts.GetRelated(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, ghosts)
}

func (s *Server) getGhostStories(c *gin.Context) {
	stories, err := s.opts.Stories.GetByGhost(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stories)
}

func (s *Server) getGhostsByCategory(c *gin.Context) {
	result, err := s.opts.Ghosts.GetByCategory(c.Request.Context(),
		c.Param("category"), queryInt(c, "page", 1), queryInt(c, "limit", 0))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) createGhost(c *gin.Context) {
	var req models.CreateGhostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, errors.NewValidationError(err.Error()))
		return
	}

	ghost, err := s.opts.Ghosts.Create(c.Request.Context(), &req, c.GetString(middleware.ContextUserIDKey))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ghost)
}

func (s *Server) updateGhost(c *gin.Context) {
	var req models.UpdateGhostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, errors.NewValidationError(err.Error()))
		return
	}

	ghost, err := s.opts.Ghosts.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, ghost)
}

func (s *Server) getStory(c *gin.Context) {
	story, err := s.opts.Stories.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, story)
}

func (s *Server) createStory(c *gin.Context) {
	var req models.CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, errors.NewValidationError(err.Error()))
		return
	}

	story, err := s.opts.Stories.Create(c.Request.Context(), &req, c.GetString(middleware.ContextUserIDKey))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, story)
}

func (s *Server) updateStory(c *gin.Context) {
	var req models.UpdateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, errors.NewValidationError(err.Error()))
		return
	}

	story, err := s.opts.Stories.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, story)
}

func (s *Server) markStoryRead(c *gin.Context) {
	progress, err := s.opts.Progress.MarkRead(c.Request.Context(),
		c.GetString(middleware.ContextUserIDKey), c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (s *Server) deleteStory(c *gin.Context) {
	if err := s.opts.Stories.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listBookmarks(c *gin.Context) {
	bookmarks, err := s.opts.Bookmarks.List(c.Request.Context(), c.GetString(middleware.ContextUserIDKey))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookmarks)
}

func (s *Server) addBookmark(c *gin.Context) {
	var req struct {
		ContentID   string `json:"content_id" binding:"required"`
		ContentType string `json:"content_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, errors.NewValidationError(err.Error()))
		return
	}

	bookmark, err := s.opts.Bookmarks.Add(c.Request.Context(),
		c.GetString(middleware.ContextUserIDKey), req.ContentID, req.ContentType)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bookmark)
}

func (s *Server) removeBookmark(c *gin.Context) {
	err := s.opts.Bookmarks.Remove(c.Request.Context(),
		c.GetString(middleware.ContextUserIDKey), c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) organizeBookmark(c *gin.Context) {
	var req struct {
		Tags []string `json:"tags" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, errors.NewValidationError(err.Error()))
		return
	}

	bookmark, err := s.opts.Bookmarks.Organize(c.Request.Context(),
		c.GetString(middleware.ContextUserIDKey), c.Param("id"), req.Tags)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookmark)
}

func (s *Server) getProgress(c *gin.Context) {
	progress, err := s.opts.Progress.Get(c.Request.Context(),
		c.GetString(middleware.ContextUserIDKey), c.Param("storyId"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (s *Server) updateProgress(c *gin.Context) {
	var req struct {
		Progress float64 `json:"progress"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, errors.NewValidationError(err.Error()))
		return
	}

	progress, err := s.opts.Progress.Upsert(c.Request.Context(),
		c.GetString(middleware.ContextUserIDKey), c.Param("storyId"), req.Progress)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (s *Server) getRecommendations(c *gin.Context) {
	recommendations, err := s.opts.Recommendations.GetPersonalized(c.Request.Context(),
		c.GetString(middleware.ContextUserIDKey), queryInt(c, "limit", 0))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recommendations})
}

func (s *Server) recordInteraction(c *gin.Context) {
	var req struct {
		ContentID       string `json:"content_id" binding:"required"`
		ContentType     string `json:"content_type" binding:"required"`
		InteractionType string `json:"interaction_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, errors.NewValidationError(err.Error()))
		return
	}

	interaction, err := s.opts.Recommendations.RecordInteraction(c.Request.Context(),
		c.GetString(middleware.ContextUserIDKey), req.ContentID, req.ContentType, req.InteractionType)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, interaction)
}

func (s *Server) submitFeedback(c *gin.Context) {
	var req struct {
		RecommendationID string `json:"recommendation_id" binding:"required"`
		FeedbackType     string `json:"feedback_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, errors.NewValidationError(err.Error()))
		return
	}

	err := s.opts.Recommendations.SubmitFeedback(c.Request.Context(),
		c.GetString(middleware.ContextUserIDKey), req.RecommendationID, req.FeedbackType)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) sendTwinMessage(c *gin.Context) {
	var req models.TwinMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, errors.NewValidationError(err.Error()))
		return
	}

	reply, err := s.opts.Twin.SendMessage(c.Request.Context(),
		c.GetString(middleware.ContextUserIDKey), &req)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (s *Server) getTwinHistory(c *gin.Context) {
	messages, err := s.opts.Twin.GetHistory(c.Request.Context(),
		c.GetString(middleware.ContextUserIDKey), queryInt(c, "limit", 0))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages, "count": len(messages)})
}

func ghostFiltersFromQuery(c *gin.Context) repository.GhostFilters {
	filters := repository.GhostFilters{
		CulturalContext: c.Query("culturalContext"),
		SortBy:          c.Query("sortBy"),
		SortOrder:       c.Query("sortOrder"),
	}
	if categories := c.Query("categories"); categories != "" {
		filters.Categories = strings.Split(categories, ",")
	}
	if tags := c.Query("tags"); tags != "" {
		filters.Tags = strings.Split(tags, ",")
	}
	if raw := c.Query("dangerLevel"); raw != "" {
		if level, err := strconv.Atoi(raw); err == nil {
			filters.DangerLevel = &level
		}
	}
	return filters
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
