package http

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videotube/internal/config"
	"videotube/internal/handler"
	"videotube/internal/httputil"
	"videotube/internal/model"
	"videotube/internal/repository/memory"
	"videotube/internal/service"
	"videotube/internal/token"
)

type testServer struct {
	store  *memory.Store
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		AccessTokenSecret:     "access-secret",
		RefreshTokenSecret:    "refresh-secret",
		AccessTokenMaxAge:     900,
		RefreshTokenMaxAge:    86400,
		MaxSessionsPerAccount: 1,
		MaxPageSize:           model.MaxPageSize,
		ExposeChannelEmail:    true,
	}
	store := memory.New()
	signer := token.NewSigner(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())

	credentials := service.NewCredentialService(store.Accounts(), store.Sessions(), signer, nil, cfg)
	toggles := service.NewToggleService(store.Relations(), store.Accounts(), store.Videos(), store.Comments(), store.Tweets(), nil)
	aggregation := service.NewAggregationService(store.Accounts(), store.Videos(), store.Tweets(), store.Comments(),
		store.Likes(), store.Subscriptions(), nil, cfg)

	router := NewRouter(RouterConfig{
		AuthHandler:     handler.NewAuthHandler(credentials, cfg),
		RelationHandler: handler.NewRelationHandler(toggles, aggregation, cfg),
		CommentHandler:  handler.NewCommentHandler(service.NewCommentService(store.Comments(), store.Videos(), store.Accounts()), aggregation, cfg),
		ChannelHandler:  handler.NewChannelHandler(aggregation),
		VideoHandler:    handler.NewVideoHandler(service.NewVideoService(store.Videos(), store.Accounts(), nil, nil)),
		PlaylistHandler: handler.NewPlaylistHandler(service.NewPlaylistService(store.Playlists(), store.Videos())),
		Signer:          signer,
	})
	return &testServer{store: store, router: router}
}

func (s *testServer) do(t *testing.T, method, path, accessToken string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"username":  username,
		"email":     username + "@example.com",
		"full_name": username + " example",
		"password":  password,
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/auth/register", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, identifier, password string) model.LoginResult {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/login", "", model.LoginRequest{Identifier: identifier, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res model.LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRegisterLoginMe(t *testing.T) {
	s := newTestServer(t)

	rec := s.register(t, "Alice", "correct-horse")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[model.Account](t, rec)
	assert.Equal(t, "alice", created.Username)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.register(t, "alice", "correct-horse")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, httputil.ErrCodeConflict, decode[httputil.ErrorResponse](t, rec).Error.Code)

	res := s.login(t, "alice@example.com", "correct-horse")
	require.NotNil(t, res.Tokens)

	rec = s.do(t, http.MethodGet, "/me", res.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[model.Account](t, rec).ID)

	rec = s.do(t, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_Failures(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.register(t, "bob", "correct-horse").Code)

	rec := s.do(t, http.MethodPost, "/auth/login", "", model.LoginRequest{Identifier: "bob", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", "", model.LoginRequest{Identifier: "nobody", Password: "whatever1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", "", model.LoginRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.ErrCodeValidation, decode[httputil.ErrorResponse](t, rec).Error.Code)
}

func TestRefresh_RotationInvalidatesOldToken(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.register(t, "carol", "correct-horse").Code)
	res := s.login(t, "carol", "correct-horse")

	rec := s.do(t, http.MethodPost, "/auth/refresh", "", model.RefreshRequest{RefreshToken: res.Tokens.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rotated := decode[model.TokenPair](t, rec)
	assert.NotEqual(t, res.Tokens.RefreshToken, rotated.RefreshToken)

	rec = s.do(t, http.MethodPost, "/auth/refresh", "", model.RefreshRequest{RefreshToken: res.Tokens.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, model.CodeTokenReused, decode[httputil.ErrorResponse](t, rec).Error.Code)
}

func TestToggleLikeAndCommentListing(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	require.Equal(t, http.StatusCreated, s.register(t, "owner", "correct-horse").Code)
	require.Equal(t, http.StatusCreated, s.register(t, "carol", "correct-horse").Code)
	owner, err := s.store.Accounts().GetByUsername(ctx, "owner")
	require.NoError(t, err)
	carol := s.login(t, "carol", "correct-horse")

	v := &model.Video{OwnerID: owner.ID, Title: "v", VideoURL: "u", ThumbnailURL: "t", IsPublished: true}
	require.NoError(t, s.store.Videos().Create(ctx, v))

	rec := s.do(t, http.MethodPost, "/likes/video/"+v.ID.String(), carol.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[model.ToggleResult](t, rec).Active)

	rec = s.do(t, http.MethodPost, "/videos/"+v.ID.String()+"/comments", carol.Tokens.AccessToken,
		model.CreateCommentRequest{Content: "first!"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	comment := decode[model.Comment](t, rec)

	rec = s.do(t, http.MethodPost, "/likes/comment/"+comment.ID.String(), carol.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/videos/"+v.ID.String()+"/comments?limit=10", carol.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode[model.Page[model.AnnotatedComment]](t, rec)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.Total)
	assert.True(t, page.Items[0].IsLiked)
	assert.Equal(t, int64(1), page.Items[0].LikeCount)

	// Anonymous viewers see counts but no like flag.
	rec = s.do(t, http.MethodGet, "/videos/"+v.ID.String()+"/comments", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[model.Page[model.AnnotatedComment]](t, rec)
	assert.False(t, page.Items[0].IsLiked)
	assert.Equal(t, int64(1), page.Items[0].LikeCount)
}

func TestToggle_ErrorMapping(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.register(t, "dave", "correct-horse").Code)
	dave := s.login(t, "dave", "correct-horse")

	rec := s.do(t, http.MethodPost, "/likes/video/not-a-uuid", dave.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.ErrCodeInvalidReference, decode[httputil.ErrorResponse](t, rec).Error.Code)

	rec = s.do(t, http.MethodPost, "/likes/video/"+uuid.NewString(), dave.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/likes/channel/"+dave.Account.ID.String(), dave.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/subscriptions/c/"+dave.Account.ID.String(), dave.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.ErrCodeInvalidOperation, decode[httputil.ErrorResponse](t, rec).Error.Code)

	rec = s.do(t, http.MethodPost, "/likes/video/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChannelProfileAndSubscriptions(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.register(t, "dave", "correct-horse").Code)
	require.Equal(t, http.StatusCreated, s.register(t, "eve", "correct-horse").Code)
	dave := s.login(t, "dave", "correct-horse")
	eve := s.login(t, "eve", "correct-horse")

	rec := s.do(t, http.MethodPost, "/subscriptions/c/"+dave.Account.ID.String(), eve.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/channels/DAVE", eve.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	profile := decode[model.ChannelProfile](t, rec)
	assert.Equal(t, int64(1), profile.SubscribersCount)
	assert.True(t, profile.IsSubscribed)

	rec = s.do(t, http.MethodGet, "/subscriptions/c/"+dave.Account.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	subs := decode[model.Page[model.ChannelSummary]](t, rec)
	require.Len(t, subs.Items, 1)
	assert.Equal(t, eve.Account.ID, subs.Items[0].ID)

	rec = s.do(t, http.MethodGet, "/channels/nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogoutRevokesRefresh(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.register(t, "frank", "correct-horse").Code)
	res := s.login(t, "frank", "correct-horse")

	rec := s.do(t, http.MethodPost, "/auth/logout", res.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/refresh", "", model.RefreshRequest{RefreshToken: res.Tokens.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlaylistOwnership(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.register(t, "gina", "correct-horse").Code)
	require.Equal(t, http.StatusCreated, s.register(t, "hank", "correct-horse").Code)
	gina := s.login(t, "gina", "correct-horse")
	hank := s.login(t, "hank", "correct-horse")

	v := &model.Video{OwnerID: gina.Account.ID, Title: "v", VideoURL: "u", ThumbnailURL: "t", IsPublished: true,
		CreatedAt: time.Now()}
	require.NoError(t, s.store.Videos().Create(context.Background(), v))

	rec := s.do(t, http.MethodPost, "/playlists", gina.Tokens.AccessToken, model.CreatePlaylistRequest{Name: "faves"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	pl := decode[model.Playlist](t, rec)

	path := "/playlists/" + pl.ID.String() + "/videos/" + v.ID.String()
	rec = s.do(t, http.MethodPut, path, hank.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPut, path, gina.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uuid.UUID{v.ID}, decode[model.Playlist](t, rec).VideoIDs)

	rec = s.do(t, http.MethodGet, "/playlists/user/"+gina.Account.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Playlist](t, rec), 1)
}
