package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dreamshare/internal/dream"
	"dreamshare/internal/models"
	"dreamshare/pkg/config"
	"dreamshare/pkg/i18n"
	"dreamshare/pkg/search"
)

type testApp struct {
	engine *gin.Engine
	db     *gorm.DB
}

// client keeps the session cookie between requests, like a browser.
type client struct {
	t       *testing.T
	app     *testApp
	cookies []*http.Cookie
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.GlobalConfig = &config.Config{
		APIPrefix:       "/api",
		AuthPrefix:      "account",
		DefaultLanguage: "fr",
	}

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	translator, err := i18n.NewI18nSupport("fr")
	require.NoError(t, err)

	classifier := dream.NewEmotionClassifier(nil, nil)
	pipeline := dream.NewPipeline(
		dream.NewAudioValidator(10),
		dream.NewTranscriber(nil),
		dream.NewPromptReformer(nil),
		dream.NewImageSynthesizer(),
		classifier,
	)
	engineIdx, err := search.NewEngine("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = engineIdx.Close() })

	h := NewHandlers(Options{
		DB:         db,
		Pipeline:   pipeline,
		Classifier: classifier,
		Exporter:   dream.NewExporter(translator),
		Search:     engineIdx,
		I18n:       translator,
	})

	engine := gin.New()
	engine.Use(sessions.Sessions("dreamshare", cookie.NewStore([]byte("test-secret"))))
	h.Register(engine)

	return &testApp{engine: engine, db: db}
}

func newClient(t *testing.T, app *testApp) *client {
	return &client{t: t, app: app}
}

func (c *client) do(method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	c.app.engine.ServeHTTP(w, req)
	if set := w.Result().Cookies(); len(set) > 0 {
		c.cookies = set
	}
	return w
}

func (c *client) doJSON(method, path string, payload interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(c.t, err)
	return c.do(method, path, body, "application/json")
}

func (c *client) register(username string) {
	c.t.Helper()
	w := c.doJSON(http.MethodPost, "/api/account/register", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
	})
	require.Equal(c.t, http.StatusCreated, w.Code, w.Body.String())
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestRegisterLoginLogout(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)

	c.register("alice")

	w := c.do(http.MethodGet, "/api/account/profile", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")

	w = c.doJSON(http.MethodPost, "/api/account/logout", gin.H{})
	assert.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodGet, "/api/account/profile", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	t.Run("wrong password rejected", func(t *testing.T) {
		w := c.doJSON(http.MethodPost, "/api/account/login", gin.H{
			"username": "alice",
			"password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("login restores the session", func(t *testing.T) {
		w := c.doJSON(http.MethodPost, "/api/account/login", gin.H{
			"username": "alice",
			"password": "secret123",
		})
		require.Equal(t, http.StatusOK, w.Code)

		w = c.do(http.MethodGet, "/api/account/profile", nil, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAuthRequired(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)

	w := c.do(http.MethodGet, "/api/dreams/list", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func multipartAudio(t *testing.T, field, filename string, content []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestGenerateDream(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)
	c.register("alice")

	t.Run("fallback pipeline produces a full preview", func(t *testing.T) {
		body, contentType := multipartAudio(t, "audio", "dream.wav", []byte("fake audio bytes"))
		w := c.do(http.MethodPost, "/api/dreams/generate", body, contentType)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		data := decodeData(t, w)
		assert.NotEmpty(t, data["transcription"])
		assert.NotEmpty(t, data["reformed_prompt"])
		assert.Contains(t, data["img_b64"], "data:image/svg+xml;base64,")
		assert.NotNil(t, data["emotion"])
		assert.NotNil(t, data["distribution"])
	})

	t.Run("bad extension rejected with details", func(t *testing.T) {
		body, contentType := multipartAudio(t, "audio", "dream.pdf", []byte("not audio"))
		w := c.do(http.MethodPost, "/api/dreams/generate", body, contentType)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), ".pdf")
	})

	t.Run("missing file rejected", func(t *testing.T) {
		w := c.doJSON(http.MethodPost, "/api/dreams/generate", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSaveAndListDreams(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)
	c.register("alice")

	payload := gin.H{
		"transcription":   "Un rêve rempli de joie et de bonheur.",
		"reformed_prompt": "jardin coloré, couleurs vives",
		"img_b64":         "data:image/svg+xml;base64,PHN2Zy8+",
		"privacy":         "everyone",
	}
	w := c.doJSON(http.MethodPost, "/api/dreams/save", payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decodeData(t, w)
	assert.Equal(t, "private", data["privacy"], "unknown privacy defaults to private")
	assert.NotZero(t, data["dream_id"])

	t.Run("emotion is classified server-side", func(t *testing.T) {
		var record models.Dream
		require.NoError(t, app.db.First(&record).Error)
		assert.Equal(t, "heureux", record.Emotion)
		assert.Equal(t, "😊", record.EmotionEmoji)
	})

	t.Run("identical save is rejected as duplicate", func(t *testing.T) {
		w := c.doJSON(http.MethodPost, "/api/dreams/save", payload)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("short transcription rejected", func(t *testing.T) {
		w := c.doJSON(http.MethodPost, "/api/dreams/save", gin.H{
			"transcription": "court",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("list returns the saved dream", func(t *testing.T) {
		w := c.do(http.MethodGet, "/api/dreams/list", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Un rêve rempli de joie")
	})
}

func TestPrivacyUpdateIdempotent(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)
	c.register("alice")

	w := c.doJSON(http.MethodPost, "/api/dreams/save", gin.H{
		"transcription": "Un rêve paisible au bord du lac.",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	dreamID := decodeData(t, w)["dream_id"]

	path := fmt.Sprintf("/api/dreams/%v/privacy", dreamID)
	first := c.doJSON(http.MethodPut, path, gin.H{"privacy": "public"})
	require.Equal(t, http.StatusOK, first.Code)

	second := c.doJSON(http.MethodPut, path, gin.H{"privacy": "public"})
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())

	t.Run("other users cannot change it", func(t *testing.T) {
		bob := newClient(t, app)
		bob.register("bob")
		w := bob.doJSON(http.MethodPut, path, gin.H{"privacy": "private"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestFeedsAndLikes(t *testing.T) {
	app := newTestApp(t)
	alice := newClient(t, app)
	alice.register("alice")
	bob := newClient(t, app)
	bob.register("bob")

	w := alice.doJSON(http.MethodPost, "/api/dreams/save", gin.H{
		"transcription": "Un rêve public sous un ciel étoilé.",
		"privacy":       "public",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	dreamID := decodeData(t, w)["dream_id"]

	t.Run("public feed visible to everyone", func(t *testing.T) {
		w := bob.do(http.MethodGet, "/api/dreams/feed/public", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "ciel étoilé")
		assert.Contains(t, w.Body.String(), `"author":"alice"`)
	})

	t.Run("like toggles through the api", func(t *testing.T) {
		path := fmt.Sprintf("/api/dreams/%v/like", dreamID)

		w := bob.doJSON(http.MethodPost, path, gin.H{})
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, true, data["liked"])
		assert.EqualValues(t, 1, data["total_likes"])

		w = bob.doJSON(http.MethodPost, path, gin.H{})
		require.Equal(t, http.StatusOK, w.Code)
		data = decodeData(t, w)
		assert.Equal(t, false, data["liked"])
	})

	t.Run("comments round-trip", func(t *testing.T) {
		path := fmt.Sprintf("/api/dreams/%v/comments", dreamID)

		w := bob.doJSON(http.MethodPost, path, gin.H{"content": "superbe rêve"})
		require.Equal(t, http.StatusCreated, w.Code)

		w = bob.do(http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "superbe rêve")
		assert.Contains(t, w.Body.String(), `"author":"bob"`)
	})

	t.Run("friends feed needs a friendship", func(t *testing.T) {
		w := alice.doJSON(http.MethodPost, "/api/dreams/save", gin.H{
			"transcription": "Un rêve réservé aux amis proches.",
			"privacy":       "friends_only",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		w = bob.do(http.MethodGet, "/api/dreams/feed/friends", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "amis proches")

		// become friends, then the dream appears
		w = bob.doJSON(http.MethodPost, "/api/social/friend-requests", gin.H{"user_id": 1})
		require.Equal(t, http.StatusCreated, w.Code)
		reqID := decodeData(t, w)["id"]

		w = alice.doJSON(http.MethodPost, fmt.Sprintf("/api/social/friend-requests/%v/respond", reqID), gin.H{"accept": true})
		require.Equal(t, http.StatusOK, w.Code)

		w = bob.do(http.MethodGet, "/api/dreams/feed/friends", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "amis proches")
	})
}

func TestSocialFlow(t *testing.T) {
	app := newTestApp(t)
	alice := newClient(t, app)
	alice.register("alice")
	bob := newClient(t, app)
	bob.register("bob")

	t.Run("user search excludes self", func(t *testing.T) {
		w := alice.do(http.MethodGet, "/api/social/users/search?q=bo", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "bob")
		assert.NotContains(t, w.Body.String(), "alice@example.com")
	})

	w := alice.doJSON(http.MethodPost, "/api/social/friend-requests", gin.H{"user_id": 2})
	require.Equal(t, http.StatusCreated, w.Code)
	reqID := decodeData(t, w)["id"]

	t.Run("pending request visible to the receiver", func(t *testing.T) {
		w := bob.do(http.MethodGet, "/api/social/friend-requests", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "alice")
	})

	w = bob.doJSON(http.MethodPost, fmt.Sprintf("/api/social/friend-requests/%v/respond", reqID), gin.H{"accept": true})
	require.Equal(t, http.StatusOK, w.Code)

	t.Run("friends list updated", func(t *testing.T) {
		w := alice.do(http.MethodGet, "/api/social/friends", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "bob")
	})

	t.Run("messaging between friends", func(t *testing.T) {
		w := alice.doJSON(http.MethodPost, "/api/social/messages", gin.H{
			"receiver_id": 2,
			"content":     "salut Bob",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		w = bob.do(http.MethodGet, "/api/social/messages/unread-count", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"unread":1`)

		w = bob.do(http.MethodGet, "/api/social/messages/1", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "salut Bob")
	})

	t.Run("remove friend blocks messaging", func(t *testing.T) {
		w := alice.do(http.MethodDelete, "/api/social/friends/2", nil, "")
		require.Equal(t, http.StatusOK, w.Code)

		w = alice.doJSON(http.MethodPost, "/api/social/messages", gin.H{
			"receiver_id": 2,
			"content":     "encore là ?",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestExportDreamEndpoint(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)
	c.register("alice")

	w := c.doJSON(http.MethodPost, "/api/dreams/save", gin.H{
		"transcription": "Je flottais au-dessus d'une mer scintillante.",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	dreamID := decodeData(t, w)["dream_id"]

	w = c.do(http.MethodGet, fmt.Sprintf("/api/dreams/%v/export", dreamID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), "mer scintillante")

	t.Run("private dream hidden from others", func(t *testing.T) {
		bob := newClient(t, app)
		bob.register("bob")
		w := bob.do(http.MethodGet, fmt.Sprintf("/api/dreams/%v/export", dreamID), nil, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestSearchDreams(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)
	c.register("alice")

	w := c.doJSON(http.MethodPost, "/api/dreams/save", gin.H{
		"transcription": "Je volais au-dessus d'une montagne enneigée.",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = c.do(http.MethodGet, "/api/dreams/search?q=montagne", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "montagne enneigée")

	t.Run("other users never match", func(t *testing.T) {
		bob := newClient(t, app)
		bob.register("bob")
		w := bob.do(http.MethodGet, "/api/dreams/search?q=montagne", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "montagne enneigée")
	})
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)

	w := c.do(http.MethodGet, "/api/system/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestProfilePreferences(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)
	c.register("alice")

	w := c.doJSON(http.MethodPut, "/api/account/profile", gin.H{
		"privacyDefault":    "public",
		"notificationEmail": false,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeData(t, w)
	assert.Equal(t, "public", data["privacyDefault"])
	assert.Equal(t, false, data["notificationEmail"])

	t.Run("save without privacy takes the account default", func(t *testing.T) {
		w := c.doJSON(http.MethodPost, "/api/dreams/save", gin.H{
			"transcription": "Un rêve publié sans préciser la confidentialité.",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "public", decodeData(t, w)["privacy"])
	})

	t.Run("explicit privacy still wins", func(t *testing.T) {
		w := c.doJSON(http.MethodPost, "/api/dreams/save", gin.H{
			"transcription": "Un rêve gardé pour moi malgré le réglage.",
			"privacy":       "private",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "private", decodeData(t, w)["privacy"])
	})
}

func TestFavoriteDreamEndpoint(t *testing.T) {
	app := newTestApp(t)
	alice := newClient(t, app)
	alice.register("alice")
	bob := newClient(t, app)
	bob.register("bob")

	w := alice.doJSON(http.MethodPost, "/api/dreams/save", gin.H{
		"transcription": "Un rêve mémorable à épingler sur le profil.",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	dreamID := decodeData(t, w)["dream_id"]

	w = alice.doJSON(http.MethodPut, "/api/account/favorite-dream", gin.H{"dream_id": dreamID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, dreamID, decodeData(t, w)["favoriteDreamId"])

	t.Run("other users cannot pin it", func(t *testing.T) {
		w := bob.doJSON(http.MethodPut, "/api/account/favorite-dream", gin.H{"dream_id": dreamID})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("null clears the pin", func(t *testing.T) {
		w := alice.doJSON(http.MethodPut, "/api/account/favorite-dream", gin.H{"dream_id": nil})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, decodeData(t, w)["favoriteDreamId"])
	})
}

func TestSentFriendRequests(t *testing.T) {
	app := newTestApp(t)
	alice := newClient(t, app)
	alice.register("alice")
	bob := newClient(t, app)
	bob.register("bob")

	w := alice.doJSON(http.MethodPost, "/api/social/friend-requests", gin.H{"user_id": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = alice.do(http.MethodGet, "/api/social/friend-requests/sent", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"to":"bob"`)

	t.Run("receiver's sent list stays empty", func(t *testing.T) {
		w := bob.do(http.MethodGet, "/api/social/friend-requests/sent", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), `"to":`)
	})
}

func TestPublicFeedPopularSort(t *testing.T) {
	app := newTestApp(t)
	alice := newClient(t, app)
	alice.register("alice")
	bob := newClient(t, app)
	bob.register("bob")

	save := func(text string) interface{} {
		w := alice.doJSON(http.MethodPost, "/api/dreams/save", gin.H{
			"transcription": text,
			"privacy":       "public",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		return decodeData(t, w)["dream_id"]
	}
	first := save("Un premier rêve public sous les étoiles.")
	save("Un second rêve public dans les nuages.")

	w := bob.doJSON(http.MethodPost, fmt.Sprintf("/api/dreams/%v/like", first), gin.H{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = bob.do(http.MethodGet, "/api/dreams/feed/public?sort=popular", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []struct {
			Dream struct {
				ID float64 `json:"id"`
			} `json:"dream"`
			TotalLikes float64 `json:"total_likes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
	assert.EqualValues(t, first, envelope.Data[0].Dream.ID)
	assert.EqualValues(t, 1, envelope.Data[0].TotalLikes)
}

func TestDecodeCachedFeed(t *testing.T) {
	feed := []models.Dream{{ID: 7, Transcription: "Un rêve mis en cache pour le fil public."}}
	raw, err := json.Marshal(feed)
	require.NoError(t, err)

	t.Run("typed slice passes through", func(t *testing.T) {
		got, ok := decodeFeed(feed)
		require.True(t, ok)
		assert.Equal(t, feed, got)
	})

	t.Run("json string round-trips", func(t *testing.T) {
		got, ok := decodeFeed(string(raw))
		require.True(t, ok)
		require.Len(t, got, 1)
		assert.Equal(t, uint(7), got[0].ID)
	})

	t.Run("generic decoded form round-trips", func(t *testing.T) {
		var generic interface{}
		require.NoError(t, json.Unmarshal(raw, &generic))
		got, ok := decodeFeed(generic)
		require.True(t, ok)
		require.Len(t, got, 1)
		assert.Equal(t, uint(7), got[0].ID)
	})

	t.Run("garbage is a miss", func(t *testing.T) {
		_, ok := decodeFeed("pas du json")
		assert.False(t, ok)
	})
}
