package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"chiyabari/internal/domain/models"
	"chiyabari/tests/suite"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerAndLogin(t *testing.T, st *suite.Suite) loginData {
	t.Helper()

	username := gofakeit.Username()
	password := randomPassword()

	rr := st.Register(t, username, gofakeit.Email(), gofakeit.Name(), password)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	return login(t, st, username, password)
}

func uploadVideo(t *testing.T, st *suite.Suite, session loginData, title string) models.Video {
	t.Helper()

	body, contentType := suite.MultipartForm(t, map[string]string{
		"title":       title,
		"description": gofakeit.Sentence(5),
	}, map[string]string{
		"videoFile": "clip.mp4",
		"thumbnail": "thumb.jpg",
	})

	req := httptestRequest(http.MethodPost, "/api/v1/videos", contentType, body)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: session.AccessToken})
	rr := st.Do(req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var video models.Video
	require.NoError(t, json.Unmarshal(suite.Decode(t, rr).Data, &video))
	require.NotEmpty(t, video.ID)
	return video
}

func TestVideoLifecycle(t *testing.T) {
	st := suite.New(t)

	owner := registerAndLogin(t, st)
	watcher := registerAndLogin(t, st)

	ownerCookie := &http.Cookie{Name: "accessToken", Value: owner.AccessToken}
	watcherCookie := &http.Cookie{Name: "accessToken", Value: watcher.AccessToken}

	video := uploadVideo(t, st, owner, "functional test clip")
	assert.Equal(t, owner.User.ID, video.Owner)
	assert.True(t, video.IsPublished)

	// Listed for everyone once published.
	listRR := st.Do(st.JSONRequest(t, http.MethodGet, "/api/v1/videos", nil, watcherCookie))
	require.Equal(t, http.StatusOK, listRR.Code)

	var listed []models.Video
	require.NoError(t, json.Unmarshal(suite.Decode(t, listRR).Data, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, video.ID, listed[0].ID)

	// Fetching counts a view and lands in the watcher's history.
	getRR := st.Do(st.JSONRequest(t, http.MethodGet, "/api/v1/videos/"+video.ID, nil, watcherCookie))
	require.Equal(t, http.StatusOK, getRR.Code)

	historyRR := st.Do(st.JSONRequest(t, http.MethodGet, "/api/v1/users/watch-history", nil, watcherCookie))
	require.Equal(t, http.StatusOK, historyRR.Code)

	var history []models.Video
	require.NoError(t, json.Unmarshal(suite.Decode(t, historyRR).Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, video.ID, history[0].ID)
	assert.Equal(t, int64(1), history[0].Views)

	// Only the owner can unpublish.
	forbiddenRR := st.Do(st.JSONRequest(t, http.MethodPatch, "/api/v1/videos/"+video.ID+"/toggle-publish", nil, watcherCookie))
	assert.Equal(t, http.StatusForbidden, forbiddenRR.Code)

	toggleRR := st.Do(st.JSONRequest(t, http.MethodPatch, "/api/v1/videos/"+video.ID+"/toggle-publish", nil, ownerCookie))
	require.Equal(t, http.StatusOK, toggleRR.Code)

	var toggled models.Video
	require.NoError(t, json.Unmarshal(suite.Decode(t, toggleRR).Data, &toggled))
	assert.False(t, toggled.IsPublished)

	// Unpublished videos drop out of the listing.
	listRR = st.Do(st.JSONRequest(t, http.MethodGet, "/api/v1/videos", nil, watcherCookie))
	require.Equal(t, http.StatusOK, listRR.Code)
	listed = nil
	require.NoError(t, json.Unmarshal(suite.Decode(t, listRR).Data, &listed))
	assert.Empty(t, listed)

	// Only the owner can delete; deletion removes the media assets too.
	forbiddenRR = st.Do(st.JSONRequest(t, http.MethodDelete, "/api/v1/videos/"+video.ID, nil, watcherCookie))
	assert.Equal(t, http.StatusForbidden, forbiddenRR.Code)

	deleteRR := st.Do(st.JSONRequest(t, http.MethodDelete, "/api/v1/videos/"+video.ID, nil, ownerCookie))
	require.Equal(t, http.StatusOK, deleteRR.Code)
	assert.Len(t, st.Media.Deleted, 2)

	missingRR := st.Do(st.JSONRequest(t, http.MethodGet, "/api/v1/videos/"+video.ID, nil, ownerCookie))
	assert.Equal(t, http.StatusNotFound, missingRR.Code)
}

func TestVideoUpdateFlow(t *testing.T) {
	st := suite.New(t)

	owner := registerAndLogin(t, st)
	stranger := registerAndLogin(t, st)

	ownerCookie := &http.Cookie{Name: "accessToken", Value: owner.AccessToken}
	strangerCookie := &http.Cookie{Name: "accessToken", Value: stranger.AccessToken}

	video := uploadVideo(t, st, owner, "original title")

	t.Run("Not owner", func(t *testing.T) {
		body, contentType := suite.MultipartForm(t, map[string]string{"title": "hijack"}, nil)
		req := httptestRequest(http.MethodPatch, "/api/v1/videos/"+video.ID, contentType, body)
		req.AddCookie(strangerCookie)
		rr := st.Do(req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("Nothing to update", func(t *testing.T) {
		body, contentType := suite.MultipartForm(t, nil, nil)
		req := httptestRequest(http.MethodPatch, "/api/v1/videos/"+video.ID, contentType, body)
		req.AddCookie(ownerCookie)
		rr := st.Do(req)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		env := suite.Decode(t, rr)
		require.NotNil(t, env.Error)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Kind)
	})

	t.Run("Title and description", func(t *testing.T) {
		body, contentType := suite.MultipartForm(t, map[string]string{
			"title":       "edited title",
			"description": "edited description",
		}, nil)
		req := httptestRequest(http.MethodPatch, "/api/v1/videos/"+video.ID, contentType, body)
		req.AddCookie(ownerCookie)
		rr := st.Do(req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var updated models.Video
		require.NoError(t, json.Unmarshal(suite.Decode(t, rr).Data, &updated))
		assert.Equal(t, "edited title", updated.Title)
		assert.Equal(t, "edited description", updated.Description)
	})

	t.Run("Replace thumbnail", func(t *testing.T) {
		body, contentType := suite.MultipartForm(t, nil, map[string]string{
			"thumbnail": "new-thumb.jpg",
		})
		req := httptestRequest(http.MethodPatch, "/api/v1/videos/"+video.ID, contentType, body)
		req.AddCookie(ownerCookie)
		rr := st.Do(req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var updated models.Video
		require.NoError(t, json.Unmarshal(suite.Decode(t, rr).Data, &updated))
		assert.NotEqual(t, video.Thumbnail, updated.Thumbnail)

		// The replaced asset was reclaimed from the media store.
		assert.Len(t, st.Media.Deleted, 1)
	})

	t.Run("Unknown video", func(t *testing.T) {
		body, contentType := suite.MultipartForm(t, map[string]string{"title": "anything"}, nil)
		req := httptestRequest(http.MethodPatch, "/api/v1/videos/missing", contentType, body)
		req.AddCookie(ownerCookie)
		rr := st.Do(req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestVideoUpload_Validation(t *testing.T) {
	st := suite.New(t)
	session := registerAndLogin(t, st)
	cookie := &http.Cookie{Name: "accessToken", Value: session.AccessToken}

	t.Run("Missing title", func(t *testing.T) {
		body, contentType := suite.MultipartForm(t, nil, map[string]string{
			"videoFile": "clip.mp4",
			"thumbnail": "thumb.jpg",
		})
		req := httptestRequest(http.MethodPost, "/api/v1/videos", contentType, body)
		req.AddCookie(cookie)
		rr := st.Do(req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Missing video file", func(t *testing.T) {
		body, contentType := suite.MultipartForm(t, map[string]string{
			"title": "no file",
		}, map[string]string{"thumbnail": "thumb.jpg"})
		req := httptestRequest(http.MethodPost, "/api/v1/videos", contentType, body)
		req.AddCookie(cookie)
		rr := st.Do(req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		body, contentType := suite.MultipartForm(t, map[string]string{
			"title": "anonymous",
		}, map[string]string{"videoFile": "clip.mp4", "thumbnail": "thumb.jpg"})
		req := httptestRequest(http.MethodPost, "/api/v1/videos", contentType, body)
		rr := st.Do(req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestSubscriptionFlow(t *testing.T) {
	st := suite.New(t)

	fan := registerAndLogin(t, st)
	channel := registerAndLogin(t, st)

	fanCookie := &http.Cookie{Name: "accessToken", Value: fan.AccessToken}

	t.Run("Self subscription rejected", func(t *testing.T) {
		rr := st.Do(st.JSONRequest(t, http.MethodPost, "/api/v1/subscriptions/toggle/"+fan.User.ID, nil, fanCookie))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Unknown channel", func(t *testing.T) {
		rr := st.Do(st.JSONRequest(t, http.MethodPost, "/api/v1/subscriptions/toggle/missing", nil, fanCookie))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	toggleURL := "/api/v1/subscriptions/toggle/" + channel.User.ID

	rr := st.Do(st.JSONRequest(t, http.MethodPost, toggleURL, nil, fanCookie))
	require.Equal(t, http.StatusOK, rr.Code)

	var state struct {
		IsSubscribed bool `json:"isSubscribed"`
	}
	require.NoError(t, json.Unmarshal(suite.Decode(t, rr).Data, &state))
	assert.True(t, state.IsSubscribed)

	channelsRR := st.Do(st.JSONRequest(t, http.MethodGet, "/api/v1/subscriptions/subscribed-channels", nil, fanCookie))
	require.Equal(t, http.StatusOK, channelsRR.Code)

	var channels []models.PublicUser
	require.NoError(t, json.Unmarshal(suite.Decode(t, channelsRR).Data, &channels))
	require.Len(t, channels, 1)
	assert.Equal(t, channel.User.ID, channels[0].ID)

	subsRR := st.Do(st.JSONRequest(t, http.MethodGet, "/api/v1/subscriptions/channel/"+channel.User.ID+"/subscribers", nil, fanCookie))
	require.Equal(t, http.StatusOK, subsRR.Code)

	var subscribers []models.PublicUser
	require.NoError(t, json.Unmarshal(suite.Decode(t, subsRR).Data, &subscribers))
	require.Len(t, subscribers, 1)
	assert.Equal(t, fan.User.ID, subscribers[0].ID)

	// Toggling again unsubscribes.
	rr = st.Do(st.JSONRequest(t, http.MethodPost, toggleURL, nil, fanCookie))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(suite.Decode(t, rr).Data, &state))
	assert.False(t, state.IsSubscribed)

	channelsRR = st.Do(st.JSONRequest(t, http.MethodGet, "/api/v1/subscriptions/subscribed-channels", nil, fanCookie))
	require.Equal(t, http.StatusOK, channelsRR.Code)
	channels = nil
	require.NoError(t, json.Unmarshal(suite.Decode(t, channelsRR).Data, &channels))
	assert.Empty(t, channels)
}
