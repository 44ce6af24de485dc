package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"ghostlore.app/aiservice"
	"ghostlore.app/cache"
	"ghostlore.app/config"
	"ghostlore.app/database"
	apperrors "ghostlore.app/errors"
	"ghostlore.app/models"
	"ghostlore.app/repository"
)

type serviceTestEnv struct {
	db          *gorm.DB
	cache       *cache.Client
	mr          *miniredis.Miniredis
	invalidator cache.Invalidator
	cacheCfg    config.CacheConfig
}

func setupServiceTest(t *testing.T) *serviceTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))

	mr := miniredis.RunT(t)
	client := cache.NewClient(&config.RedisConfig{
		Addr:         mr.Addr(),
		DialTimeout:  5,
		ReadTimeout:  3,
		WriteTimeout: 3,
	}, nil)
	require.NoError(t, client.Connect(context.Background()))
	t.Cleanup(func() { _ = client.Close() })

	return &serviceTestEnv{
		db:          db,
		cache:       client,
		mr:          mr,
		invalidator: cache.NewInvalidator(client, cache.DefaultInvalidationBudget),
		cacheCfg: config.CacheConfig{
			TTLDefault:         3600,
			TTLGhosts:          7200,
			TTLStories:         7200,
			TTLRecommendations: 1800,
			TTLResponse:        300,
		},
	}
}

// mockAIClient implements aiservice.ClientInterface
type mockAIClient struct {
	mock.Mock
}

func (m *mockAIClient) GenerateRecommendations(ctx context.Context, req *aiservice.RecommendationRequest) (*aiservice.RecommendationResponse, error) {
	args := m.Called(ctx, req)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aiservice.RecommendationResponse), nil
}

func (m *mockAIClient) SendTwinMessage(ctx context.Context, req *aiservice.TwinMessageRequest) (*aiservice.TwinMessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aiservice.TwinMessageResponse), nil
}

func (m *mockAIClient) HealthCheck(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

var _ aiservice.ClientInterface = (*mockAIClient)(nil)

func createTestUser(t *testing.T, env *serviceTestEnv, email, username string) *models.User {
	t.Helper()

	users := repository.NewUserRepository(env.db)
	user := &models.User{Email: email, Username: username, PasswordHash: "x"}
	require.NoError(t, database.WithTransaction(env.db, func(tx *gorm.DB) error {
		return users.Create(tx, user)
	}))
	return user
}

func TestAuthService_RegisterOpensSession(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()

	svc := NewAuthService(env.db, repository.NewUserRepository(env.db), env.cache,
		config.AuthConfig{SessionTimeoutMs: 3600000})

	user, token, err := svc.Register(ctx, &models.RegisterRequest{
		Email:    "reader@example.com",
		Username: "reader",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.NotEmpty(t, token)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)

	var session models.Session
	found, err := env.cache.Get(ctx, cache.SessionKey(token), &session)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, user.ID, session.UserID)
}

func TestAuthService_LoginVerifiesCredentials(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()

	svc := NewAuthService(env.db, repository.NewUserRepository(env.db), env.cache,
		config.AuthConfig{SessionTimeoutMs: 3600000})

	_, _, err := svc.Register(ctx, &models.RegisterRequest{
		Email:    "reader@example.com",
		Username: "reader",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	user, token, err := svc.Login(ctx, &models.LoginRequest{
		Email:    "reader@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "reader", user.Username)
	assert.NotEmpty(t, token)

	_, _, err = svc.Login(ctx, &models.LoginRequest{
		Email:    "reader@example.com",
		Password: "wrong",
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.UnauthorizedError, appErr.Type)

	_, _, err = svc.Login(ctx, &models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.UnauthorizedError, appErr.Type)
}

func TestAuthService_LogoutDestroysSession(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()

	svc := NewAuthService(env.db, repository.NewUserRepository(env.db), env.cache,
		config.AuthConfig{SessionTimeoutMs: 3600000})

	_, token, err := svc.Register(ctx, &models.RegisterRequest{
		Email:    "reader@example.com",
		Username: "reader",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))

	found, err := env.cache.Exists(ctx, cache.SessionKey(token))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAuthService_RegisterFailsWhenSessionStoreIsDown(t *testing.T) {
	env := setupServiceTest(t)
	env.mr.Close()

	svc := NewAuthService(env.db, repository.NewUserRepository(env.db), env.cache,
		config.AuthConfig{SessionTimeoutMs: 3600000})

	_, _, err := svc.Register(context.Background(), &models.RegisterRequest{
		Email:    "reader@example.com",
		Username: "reader",
		Password: "correct-horse",
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CacheError, appErr.Type)
}

func TestPreferencesService_AbsentProfileResolvesToDefault(t *testing.T) {
	env := setupServiceTest(t)
	user := createTestUser(t, env, "reader@example.com", "reader")

	svc := NewPreferencesService(env.db, repository.NewPreferencesRepository(env.db),
		env.cache, env.invalidator, env.cacheCfg)

	prefs, err := svc.GetPreferences(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, prefs.SpookinessLevel)
	assert.Empty(t, prefs.FavoriteGhostTypes)
}

func TestPreferencesService_RejectsOutOfRangeSpookiness(t *testing.T) {
	env := setupServiceTest(t)
	user := createTestUser(t, env, "reader@example.com", "reader")

	svc := NewPreferencesService(env.db, repository.NewPreferencesRepository(env.db),
		env.cache, env.invalidator, env.cacheCfg)

	for _, level := range []int{0, 6} {
		level := level
		_, err := svc.UpdatePreferences(context.Background(), user.ID,
			&models.UpdatePreferencesRequest{SpookinessLevel: &level})
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, apperrors.ValidationError, appErr.Type)
	}
}

func TestPreferencesService_UpdateInvalidatesDerivedCaches(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	user := createTestUser(t, env, "reader@example.com", "reader")

	svc := NewPreferencesService(env.db, repository.NewPreferencesRepository(env.db),
		env.cache, env.invalidator, env.cacheCfg)

	// Warm the profile cache and plant derived entries that a preference
	// change must stale.
	_, err := svc.GetPreferences(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, env.mr.Exists(cache.UserPreferencesKey(user.ID)))

	require.NoError(t, env.cache.Set(ctx, cache.RecommendationsKey(user.ID),
		[]models.Recommendation{{ContentID: "g1"}}, time.Hour))
	require.NoError(t, env.cache.Set(ctx, cache.ResponseKey(user.ID, "/api/recommendations"),
		map[string]int{"status": 200}, time.Hour))

	level := 5
	updated, err := svc.UpdatePreferences(ctx, user.ID,
		&models.UpdatePreferencesRequest{SpookinessLevel: &level})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.SpookinessLevel)

	assert.False(t, env.mr.Exists(cache.UserPreferencesKey(user.ID)))
	assert.False(t, env.mr.Exists(cache.RecommendationsKey(user.ID)))
	assert.False(t, env.mr.Exists(cache.ResponseKey(user.ID, "/api/recommendations")))

	// The next read repopulates from the committed row, not the stale entry.
	prefs, err := svc.GetPreferences(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, prefs.SpookinessLevel)
}

func TestPreferencesService_PartialUpdateKeepsOtherFields(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	user := createTestUser(t, env, "reader@example.com", "reader")

	svc := NewPreferencesService(env.db, repository.NewPreferencesRepository(env.db),
		env.cache, env.invalidator, env.cacheCfg)

	types := []string{"banshee", "poltergeist"}
	_, err := svc.UpdatePreferences(ctx, user.ID,
		&models.UpdatePreferencesRequest{FavoriteGhostTypes: &types})
	require.NoError(t, err)

	level := 4
	prefs, err := svc.UpdatePreferences(ctx, user.ID,
		&models.UpdatePreferencesRequest{SpookinessLevel: &level})
	require.NoError(t, err)

	assert.Equal(t, 4, prefs.SpookinessLevel)
	assert.Equal(t, types, prefs.FavoriteGhostTypes)
}

func newRecommendationService(env *serviceTestEnv, ai aiservice.ClientInterface) *RecommendationService {
	return NewRecommendationService(
		env.db,
		repository.NewRecommendationRepository(env.db),
		repository.NewInteractionRepository(env.db),
		repository.NewPreferencesRepository(env.db),
		ai,
		env.cache,
		env.invalidator,
		env.cacheCfg,
	)
}

func TestRecommendationService_GeneratesAndPersists(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	user := createTestUser(t, env, "reader@example.com", "reader")

	ai := new(mockAIClient)
	ai.On("GenerateRecommendations", mock.Anything, mock.Anything).Return(
		&aiservice.RecommendationResponse{
			Recommendations: []aiservice.ScoredContent{
				{ContentID: "g1", ContentType: "ghost", Score: 0.9, Reasoning: "matches profile"},
				{ContentID: "s1", ContentType: "story", Score: 0.7, Reasoning: "popular"},
			},
		}, nil)

	svc := newRecommendationService(env, ai)

	recs, err := svc.GetPersonalized(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "g1", recs[0].ContentID)
	ai.AssertExpectations(t)

	// Persisted rows back the next fallback generation.
	stored, err := repository.NewRecommendationRepository(env.db).FindByUser(user.ID, 10)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	// The cached result short-circuits a second call entirely.
	_, err = svc.GetPersonalized(ctx, user.ID, 10)
	require.NoError(t, err)
	ai.AssertNumberOfCalls(t, "GenerateRecommendations", 1)
}

func TestRecommendationService_UnavailableUpstreamFallsBackToStored(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	user := createTestUser(t, env, "reader@example.com", "reader")

	// Stale stored rows: older than the freshness window, so the AI service
	// is consulted first.
	recRepo := repository.NewRecommendationRepository(env.db)
	require.NoError(t, database.WithTransaction(env.db, func(tx *gorm.DB) error {
		return recRepo.Create(tx, &models.Recommendation{
			UserID: user.ID, ContentID: "g-old", ContentType: "ghost", Score: 0.5,
		})
	}))
	require.NoError(t, env.db.Model(&models.Recommendation{}).
		Where("user_id = ?", user.ID).
		Update("generated_at", time.Now().Add(-2*time.Hour)).Error)

	ai := new(mockAIClient)
	ai.On("GenerateRecommendations", mock.Anything, mock.Anything).Return(
		nil, apperrors.NewAIUnavailableError("AI service is unreachable", nil))

	svc := newRecommendationService(env, ai)

	recs, err := svc.GetPersonalized(ctx, user.ID, 10)
	require.NoError(t, err, "an upstream outage never reaches the caller")
	require.Len(t, recs, 1)
	assert.Equal(t, "g-old", recs[0].ContentID)
}

func TestRecommendationService_NoStoredDataDegradesToEmptyList(t *testing.T) {
	env := setupServiceTest(t)
	user := createTestUser(t, env, "reader@example.com", "reader")

	ai := new(mockAIClient)
	ai.On("GenerateRecommendations", mock.Anything, mock.Anything).Return(
		nil, apperrors.NewAIUnavailableError("AI service is unreachable", nil))

	svc := newRecommendationService(env, ai)

	recs, err := svc.GetPersonalized(context.Background(), user.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRecommendationService_FreshStoredRowsSkipTheAICall(t *testing.T) {
	env := setupServiceTest(t)
	user := createTestUser(t, env, "reader@example.com", "reader")

	recRepo := repository.NewRecommendationRepository(env.db)
	require.NoError(t, database.WithTransaction(env.db, func(tx *gorm.DB) error {
		return recRepo.Create(tx, &models.Recommendation{
			UserID: user.ID, ContentID: "g-fresh", ContentType: "ghost", Score: 0.8,
		})
	}))

	ai := new(mockAIClient)
	svc := newRecommendationService(env, ai)

	recs, err := svc.GetPersonalized(context.Background(), user.ID, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "g-fresh", recs[0].ContentID)
	ai.AssertNotCalled(t, "GenerateRecommendations")
}

func TestRecommendationService_RecordInteractionInvalidates(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	user := createTestUser(t, env, "reader@example.com", "reader")

	require.NoError(t, env.cache.Set(ctx, cache.RecommendationsKey(user.ID),
		[]models.Recommendation{{ContentID: "stale"}}, time.Hour))

	ai := new(mockAIClient)
	svc := newRecommendationService(env, ai)

	interaction, err := svc.RecordInteraction(ctx, user.ID, "g1", "ghost", "view")
	require.NoError(t, err)
	assert.NotEmpty(t, interaction.ID)
	assert.False(t, env.mr.Exists(cache.RecommendationsKey(user.ID)))
}

func TestRecommendationService_SubmitFeedbackPersistsAndInvalidates(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	user := createTestUser(t, env, "reader@example.com", "reader")

	recRepo := repository.NewRecommendationRepository(env.db)
	rec := &models.Recommendation{UserID: user.ID, ContentID: "g1", ContentType: "ghost"}
	require.NoError(t, database.WithTransaction(env.db, func(tx *gorm.DB) error {
		return recRepo.Create(tx, rec)
	}))

	require.NoError(t, env.cache.Set(ctx, cache.RecommendationsKey(user.ID),
		[]models.Recommendation{{ContentID: "stale"}}, time.Hour))
	require.NoError(t, env.cache.Set(ctx, cache.ResponseKey(user.ID, "/api/recommendations"),
		map[string]int{"status": 200}, time.Hour))

	svc := newRecommendationService(env, new(mockAIClient))

	require.NoError(t, svc.SubmitFeedback(ctx, user.ID, rec.ID, "like"))

	var stored []models.RecommendationFeedback
	require.NoError(t, env.db.Where("user_id = ?", user.ID).Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, rec.ID, stored[0].RecommendationID)
	assert.Equal(t, "like", stored[0].FeedbackType)

	assert.False(t, env.mr.Exists(cache.RecommendationsKey(user.ID)))
	assert.False(t, env.mr.Exists(cache.ResponseKey(user.ID, "/api/recommendations")))
}

func TestRecommendationService_SubmitFeedbackRejectsUnknownType(t *testing.T) {
	env := setupServiceTest(t)
	user := createTestUser(t, env, "reader@example.com", "reader")

	svc := newRecommendationService(env, new(mockAIClient))

	err := svc.SubmitFeedback(context.Background(), user.ID, "r1", "meh")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ValidationError, appErr.Type)
}

func newTwinService(env *serviceTestEnv, ai aiservice.ClientInterface) *TwinService {
	return NewTwinService(
		env.db,
		repository.NewConversationRepository(env.db),
		repository.NewInteractionRepository(env.db),
		repository.NewPreferencesRepository(env.db),
		ai,
		env.invalidator,
	)
}

func TestTwinService_RelaysReplyAndPersistsBothTurns(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	user := createTestUser(t, env, "reader@example.com", "reader")

	ai := new(mockAIClient)
	ai.On("SendTwinMessage", mock.Anything, mock.Anything).Return(
		&aiservice.TwinMessageResponse{Response: "The banshee wails at dusk."}, nil)

	svc := newTwinService(env, ai)

	reply, err := svc.SendMessage(ctx, user.ID, &models.TwinMessageRequest{Message: "Tell me about banshees"})
	require.NoError(t, err)
	assert.Equal(t, "The banshee wails at dusk.", reply.Response)
	assert.False(t, reply.Fallback)

	messages, err := repository.NewConversationRepository(env.db).FindRecent(user.ID, 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	roles := []string{messages[0].Role, messages[1].Role}
	assert.ElementsMatch(t, []string{"user", "assistant"}, roles)
}

func TestTwinService_UnavailableUpstreamServesFallbackReply(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	user := createTestUser(t, env, "reader@example.com", "reader")

	ai := new(mockAIClient)
	ai.On("SendTwinMessage", mock.Anything, mock.Anything).Return(
		nil, apperrors.NewAIUnavailableError("AI service is unreachable", nil))

	svc := newTwinService(env, ai)

	reply, err := svc.SendMessage(ctx, user.ID, &models.TwinMessageRequest{Message: "Hello?"})
	require.NoError(t, err, "an upstream outage degrades, never errors")
	assert.True(t, reply.Fallback)
	assert.Equal(t, fallbackReply, reply.Response)

	// The fallback exchange is still part of the conversation history.
	messages, err := repository.NewConversationRepository(env.db).FindRecent(user.ID, 10)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestTwinService_HistoryReturnsPersistedTurns(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	user := createTestUser(t, env, "reader@example.com", "reader")

	ai := new(mockAIClient)
	ai.On("SendTwinMessage", mock.Anything, mock.Anything).Return(
		&aiservice.TwinMessageResponse{Response: "The banshee wails at dusk."}, nil)

	svc := newTwinService(env, ai)

	_, err := svc.SendMessage(ctx, user.ID, &models.TwinMessageRequest{Message: "Tell me about banshees"})
	require.NoError(t, err)

	history, err := svc.GetHistory(ctx, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)

	roles := []string{history[0].Role, history[1].Role}
	assert.ElementsMatch(t, []string{"user", "assistant"}, roles)

	// Another user's chat stays private.
	other := createTestUser(t, env, "other@example.com", "other")
	history, err = svc.GetHistory(ctx, other.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestTwinService_HistoryRejectsOutOfRangeLimit(t *testing.T) {
	env := setupServiceTest(t)
	user := createTestUser(t, env, "reader@example.com", "reader")

	svc := newTwinService(env, new(mockAIClient))

	for _, limit := range []int{-1, 101} {
		_, err := svc.GetHistory(context.Background(), user.ID, limit)
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, apperrors.ValidationError, appErr.Type)
	}
}
