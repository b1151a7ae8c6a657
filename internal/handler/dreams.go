package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dreamshare/internal/models"
	"dreamshare/pkg/logger"
	"dreamshare/pkg/response"
)

const (
	feedCacheTTL     = time.Minute
	maxUploadMemory  = 16 << 20
	audioFormField   = "audio"
	defaultFeedLimit = 20
)

// handleGenerateDream runs the full pipeline on an uploaded recording
// and returns a preview. Nothing is persisted until /save.
func (h *Handlers) handleGenerateDream(c *gin.Context) {
	file, header, err := c.Request.FormFile(audioFormField)
	if err != nil {
		response.Fail(c, "audio file is required", nil)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxUploadMemory))
	if err != nil {
		response.Fail(c, "failed to read audio upload", nil)
		return
	}

	result, err := h.pipeline.Process(c.Request.Context(), audio, header.Filename)
	if err != nil {
		response.Fail(c, err.Error(), gin.H{
			"filename":  header.Filename,
			"size_mb":   fmt.Sprintf("%.2f", float64(len(audio))/(1024*1024)),
			"extension": extensionOf(header.Filename),
		})
		return
	}

	user := models.CurrentUser(c)
	h.archiveAudio(user.ID, header.Filename, audio)

	distribution := h.classifier.Distribution(c.Request.Context(), result.Transcription)

	response.Success(c, "dream generated", gin.H{
		"transcription":   result.Transcription,
		"reformed_prompt": result.ImprovedPrompt,
		"img_b64":         result.GeneratedImage,
		"emotion":         result.Emotion,
		"distribution":    distribution,
	})
}

// archiveAudio keeps the raw upload for later reprocessing. Failures
// are logged, never surfaced.
func (h *Handlers) archiveAudio(userID uint, filename string, audio []byte) {
	if h.store == nil {
		return
	}
	key := fmt.Sprintf("%d/%d_%s", userID, time.Now().UnixNano(), filename)
	if err := h.store.Write(key, bytes.NewReader(audio)); err != nil {
		logger.Warn("audio archival failed", zap.String("key", key), zap.Error(err))
	}
}

// handleSaveDream persists a previewed dream. The emotion is classified
// again server-side so clients cannot forge it.
func (h *Handlers) handleSaveDream(c *gin.Context) {
	var req struct {
		Transcription  string `json:"transcription"`
		ReformedPrompt string `json:"reformed_prompt"`
		ImgB64         string `json:"img_b64"`
		Privacy        string `json:"privacy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request body", nil)
		return
	}

	user := models.CurrentUser(c)
	emotion := h.classifier.Classify(c.Request.Context(), req.Transcription)
	distribution := h.classifier.Distribution(c.Request.Context(), req.Transcription)

	// A save without an explicit privacy level takes the account's
	// default.
	privacy := req.Privacy
	if strings.TrimSpace(privacy) == "" {
		privacy = user.PrivacyDefault
	}

	record := &models.Dream{
		UserID:            user.ID,
		Transcription:     req.Transcription,
		ImprovedPrompt:    req.ReformedPrompt,
		GeneratedImage:    req.ImgB64,
		Emotion:           emotion.Emotion,
		EmotionConfidence: emotion.Confidence,
		EmotionEmoji:      emotion.Emoji,
		EmotionColor:      emotion.Color,
		Privacy:           privacy,
	}
	if err := record.SetDistribution(distribution); err != nil {
		response.FailWithStatus(c, http.StatusInternalServerError, "failed to encode distribution", nil)
		return
	}

	if err := models.CreateDream(h.db, record); err != nil {
		if errors.Is(err, models.ErrTranscriptionTooShort) {
			response.Fail(c, err.Error(), nil)
			return
		}
		logger.Error("dream save failed", zap.Error(err))
		response.FailWithStatus(c, http.StatusInternalServerError, "failed to save dream", nil)
		return
	}

	h.indexDream(record)
	h.invalidateFeeds(c)

	response.Created(c, "dream saved", gin.H{
		"dream_id": record.ID,
		"privacy":  record.Privacy,
	})
}

func (h *Handlers) indexDream(record *models.Dream) {
	if h.search == nil {
		return
	}
	if err := h.search.IndexDream(record.ID, record.UserID, record.Transcription, record.ImprovedPrompt); err != nil {
		logger.Warn("dream indexing failed", zap.Uint("dream", record.ID), zap.Error(err))
	}
}

func (h *Handlers) invalidateFeeds(c *gin.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Clear(c.Request.Context()); err != nil {
		logger.Warn("feed cache invalidation failed", zap.Error(err))
	}
}

func (h *Handlers) handleListDreams(c *gin.Context) {
	user := models.CurrentUser(c)
	limit, offset := pagination(c)

	dreams, err := models.ListDreams(h.db, user.ID, limit, offset)
	if err != nil {
		response.FailWithStatus(c, http.StatusInternalServerError, "failed to list dreams", nil)
		return
	}
	response.Success(c, "dreams", dreams)
}

func (h *Handlers) handlePublicFeed(c *gin.Context) {
	limit, offset := pagination(c)
	sort := c.Query("sort")
	cacheKey := fmt.Sprintf("feed:public:%d:%d:%s", limit, offset, sort)

	if h.cache != nil {
		if cached, ok := h.cache.Get(c.Request.Context(), cacheKey); ok {
			if feed, ok := decodeFeed(cached); ok {
				response.Success(c, "public feed", h.decorateFeed(c, feed))
				return
			}
		}
	}

	feed, err := models.PublicFeed(h.db, limit, offset, sort)
	if err != nil {
		response.FailWithStatus(c, http.StatusInternalServerError, "failed to load feed", nil)
		return
	}
	if h.cache != nil {
		_ = h.cache.Set(c.Request.Context(), cacheKey, feed, feedCacheTTL)
	}
	response.Success(c, "public feed", h.decorateFeed(c, feed))
}

// decodeFeed recovers a cached feed page. The in-process backends hand
// the slice back as stored; the redis backend returns the JSON-decoded
// generic form, which is re-marshalled into the typed slice.
func decodeFeed(cached interface{}) ([]models.Dream, bool) {
	switch v := cached.(type) {
	case []models.Dream:
		return v, true
	case string:
		var feed []models.Dream
		if err := json.Unmarshal([]byte(v), &feed); err != nil {
			return nil, false
		}
		return feed, true
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		var feed []models.Dream
		if err := json.Unmarshal(raw, &feed); err != nil {
			return nil, false
		}
		return feed, true
	}
}

func (h *Handlers) handleFriendsFeed(c *gin.Context) {
	user := models.CurrentUser(c)
	limit, offset := pagination(c)

	feed, err := models.FriendsFeed(h.db, user.ID, limit, offset)
	if err != nil {
		response.FailWithStatus(c, http.StatusInternalServerError, "failed to load feed", nil)
		return
	}
	response.Success(c, "friends feed", h.decorateFeed(c, feed))
}

// decorateFeed attaches author name and like/comment counts to each
// feed entry.
func (h *Handlers) decorateFeed(c *gin.Context, feed []models.Dream) []gin.H {
	user := models.CurrentUser(c)
	entries := make([]gin.H, 0, len(feed))
	for i := range feed {
		d := &feed[i]
		likes, _ := models.CountLikes(h.db, d.ID)
		liked, _ := models.HasLiked(h.db, d.ID, user.ID)
		entries = append(entries, gin.H{
			"dream":       d,
			"author":      d.User.Username,
			"total_likes": likes,
			"liked":       liked,
		})
	}
	return entries
}

func (h *Handlers) handleSetPrivacy(c *gin.Context) {
	dreamID, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		Privacy string `json:"privacy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request body", nil)
		return
	}

	user := models.CurrentUser(c)
	updated, err := models.SetDreamPrivacy(h.db, dreamID, user.ID, req.Privacy)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrDreamNotFound):
			response.FailWithStatus(c, http.StatusNotFound, err.Error(), nil)
		case errors.Is(err, models.ErrNotDreamOwner):
			response.FailWithStatus(c, http.StatusForbidden, err.Error(), nil)
		default:
			response.FailWithStatus(c, http.StatusInternalServerError, "failed to update privacy", nil)
		}
		return
	}

	h.invalidateFeeds(c)
	response.Success(c, "privacy updated", gin.H{"privacy": updated.Privacy})
}

func (h *Handlers) handleExportDream(c *gin.Context) {
	dreamID, ok := idParam(c)
	if !ok {
		return
	}
	user := models.CurrentUser(c)

	record, err := models.GetVisibleDream(h.db, dreamID, user.ID)
	if err != nil {
		h.failVisibility(c, err)
		return
	}

	lang := c.GetString("lang")
	doc, err := h.exporter.Export(record, lang)
	if err != nil {
		response.FailWithStatus(c, http.StatusInternalServerError, "export failed", nil)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="dream_%d.html"`, record.ID))
	c.Data(http.StatusOK, "text/html; charset=utf-8", doc)
}

func (h *Handlers) handleSearchDreams(c *gin.Context) {
	if h.search == nil {
		response.FailWithStatus(c, http.StatusNotImplemented, "search is disabled", nil)
		return
	}
	query := c.Query("q")
	if query == "" {
		response.Fail(c, "query parameter q is required", nil)
		return
	}

	user := models.CurrentUser(c)
	ids, err := h.search.Search(user.ID, query, 20)
	if err != nil {
		response.FailWithStatus(c, http.StatusInternalServerError, "search failed", nil)
		return
	}
	if len(ids) == 0 {
		response.Success(c, "search results", []models.Dream{})
		return
	}

	var dreams []models.Dream
	if err := h.db.Where("id IN ? AND user_id = ?", ids, user.ID).Find(&dreams).Error; err != nil {
		response.FailWithStatus(c, http.StatusInternalServerError, "search failed", nil)
		return
	}
	response.Success(c, "search results", dreams)
}

func (h *Handlers) failVisibility(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrDreamNotFound):
		response.FailWithStatus(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, models.ErrDreamNotVisible):
		response.FailWithStatus(c, http.StatusForbidden, err.Error(), nil)
	default:
		response.FailWithStatus(c, http.StatusInternalServerError, "request failed", nil)
	}
}

func pagination(c *gin.Context) (limit, offset int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultFeedLimit)))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = defaultFeedLimit
	}
	return perPage, (page - 1) * perPage
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.Fail(c, "invalid id", nil)
		return 0, false
	}
	return uint(id), true
}

func extensionOf(filename string) string {
	for i := len(filename) - 1; i >= 0; i-- {
		if filename[i] == '.' {
			return filename[i:]
		}
	}
	return ""
}
