package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"survey-app-server/internal/models"
	"survey-app-server/internal/store"
)

type memCredentials struct {
	mu     sync.Mutex
	users  map[string]*models.User
	tokens map[string]models.RefreshToken
}

func newMemCredentials() *memCredentials {
	return &memCredentials{
		users:  make(map[string]*models.User),
		tokens: make(map[string]models.RefreshToken),
	}
}

func (m *memCredentials) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memCredentials) FindUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memCredentials) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memCredentials) UpsertRefreshToken(_ context.Context, userID, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[userID] = models.RefreshToken{UserID: userID, Token: token, ExpiresAt: expiresAt}
	return nil
}

func (m *memCredentials) FindRefreshToken(_ context.Context, token string, now time.Time) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.Token == token && !t.Expired(now) {
			cp := t
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memCredentials) DeleteRefreshToken(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, userID)
	return nil
}

// memSurveys mirrors the filtered-update semantics of store.SurveyStore.
type memSurveys struct {
	mu      sync.Mutex
	surveys map[primitive.ObjectID]*models.Survey
}

func newMemSurveys() *memSurveys {
	return &memSurveys{surveys: make(map[primitive.ObjectID]*models.Survey)}
}

func cloneSurvey(s *models.Survey) *models.Survey {
	cp := *s
	cp.Questions = make([]models.Question, len(s.Questions))
	for i, q := range s.Questions {
		q.Options = append([]models.Option(nil), q.Options...)
		cp.Questions[i] = q
	}
	return &cp
}

func (m *memSurveys) Insert(_ context.Context, survey *models.Survey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if survey.ID.IsZero() {
		survey.ID = primitive.NewObjectID()
	}
	if survey.Questions == nil {
		survey.Questions = []models.Question{}
	}
	m.surveys[survey.ID] = cloneSurvey(survey)
	return nil
}

func (m *memSurveys) FindByID(_ context.Context, id primitive.ObjectID) (*models.Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.surveys[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneSurvey(s), nil
}

func (m *memSurveys) FindOwned(_ context.Context, id primitive.ObjectID, creator string) (*models.Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.surveys[id]
	if !ok || s.Creator != creator {
		return nil, store.ErrNotFound
	}
	return cloneSurvey(s), nil
}

func (m *memSurveys) List(_ context.Context, creator string) ([]models.SurveySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.SurveySummary{}
	for _, s := range m.surveys {
		if creator == "" || s.Creator == creator {
			out = append(out, models.SurveySummary{Title: s.Title, Description: s.Description})
		}
	}
	return out, nil
}

func (m *memSurveys) UpdateDetails(_ context.Context, survey *models.Survey) (*models.Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.surveys[survey.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	s.Title = survey.Title
	s.Description = survey.Description
	s.ImageURL = survey.ImageURL
	s.IsPublic = survey.IsPublic
	return cloneSurvey(s), nil
}

func (m *memSurveys) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.surveys[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.surveys, id)
	return nil
}

func (m *memSurveys) PushQuestion(_ context.Context, id primitive.ObjectID, question models.Question) (*models.Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.surveys[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	s.Questions = append(s.Questions, question)
	return cloneSurvey(s), nil
}

func (m *memSurveys) PullQuestion(_ context.Context, id, questionID primitive.ObjectID) (*models.Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.surveys[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	kept := s.Questions[:0]
	for _, q := range s.Questions {
		if q.ID != questionID {
			kept = append(kept, q)
		}
	}
	s.Questions = kept
	return cloneSurvey(s), nil
}

func (m *memSurveys) SetQuestion(_ context.Context, id, questionID primitive.ObjectID, question models.Question) (*models.Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.surveys[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	q, ok := s.FindQuestion(questionID)
	if !ok {
		return nil, store.ErrNotFound
	}
	q.Text = question.Text
	q.Type = question.Type
	q.Options = question.Options
	return cloneSurvey(s), nil
}

func (m *memSurveys) IncrementOption(_ context.Context, id, questionID, optionID primitive.ObjectID) (*models.Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.surveys[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	q, ok := s.FindQuestion(questionID)
	if !ok {
		return nil, store.ErrNotFound
	}
	o, ok := q.FindOption(optionID)
	if !ok {
		return nil, store.ErrNotFound
	}
	o.Count++
	return cloneSurvey(s), nil
}

type mockBlobs struct {
	mock.Mock
}

func (m *mockBlobs) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *mockBlobs) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockBlobs) Replace(ctx context.Context, oldKey, newKey string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, oldKey, newKey, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *mockBlobs) KeyFromURL(url string) (string, bool) {
	args := m.Called(url)
	return args.String(0), args.Bool(1)
}

type stubVerifier map[string]string

func (v stubVerifier) VerifyAccessToken(token string) (string, error) {
	if id, ok := v[token]; ok {
		return id, nil
	}
	return "", ErrInvalidToken
}
