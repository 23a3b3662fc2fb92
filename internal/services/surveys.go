package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"survey-app-server/internal/models"
	"survey-app-server/internal/store"
)

// SurveyStore persists survey documents. Filtered updates return
// store.ErrNotFound when nothing matches.
type SurveyStore interface {
	Insert(ctx context.Context, survey *models.Survey) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Survey, error)
	FindOwned(ctx context.Context, id primitive.ObjectID, creator string) (*models.Survey, error)
	List(ctx context.Context, creator string) ([]models.SurveySummary, error)
	UpdateDetails(ctx context.Context, survey *models.Survey) (*models.Survey, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	PushQuestion(ctx context.Context, id primitive.ObjectID, question models.Question) (*models.Survey, error)
	PullQuestion(ctx context.Context, id, questionID primitive.ObjectID) (*models.Survey, error)
	SetQuestion(ctx context.Context, id, questionID primitive.ObjectID, question models.Question) (*models.Survey, error)
	IncrementOption(ctx context.Context, id, questionID, optionID primitive.ObjectID) (*models.Survey, error)
}

// BlobStore keeps survey images.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	Replace(ctx context.Context, oldKey, newKey string, data []byte, contentType string) (string, error)
	KeyFromURL(url string) (string, bool)
}

// TokenVerifier resolves an access token to a user id.
type TokenVerifier interface {
	VerifyAccessToken(token string) (string, error)
}

// Image is an uploaded survey picture.
type Image struct {
	Name        string
	Data        []byte
	ContentType string
}

// SurveyInput describes a new survey.
type SurveyInput struct {
	Title       string
	Description string
	IsPublic    *bool
	Questions   []QuestionInput
}

// SurveyPatch holds the survey fields to change; nil fields are left as is.
type SurveyPatch struct {
	Title       *string
	Description *string
	IsPublic    *bool
}

// QuestionInput describes a question and its options in order.
type QuestionInput struct {
	Text    string
	Type    string
	Options []string
}

// AnswerInput selects one option of one question.
type AnswerInput struct {
	QuestionID string
	OptionID   string
}

// SurveyService implements the survey lifecycle, question editing, anonymous
// answering and results.
type SurveyService struct {
	surveys SurveyStore
	blobs   BlobStore
	tokens  TokenVerifier
	now     func() time.Time
}

// NewSurveyService creates a new SurveyService. blobs may be nil when image
// storage is not configured; image uploads then fail with ErrUploadFailed.
func NewSurveyService(surveys SurveyStore, blobs BlobStore, tokens TokenVerifier) *SurveyService {
	return &SurveyService{
		surveys: surveys,
		blobs:   blobs,
		tokens:  tokens,
		now:     time.Now,
	}
}

var logger = log.WithField("component", "surveys")

// CreateSurvey uploads the optional image, then stores a survey owned by
// creatorID. Nothing is stored if the upload fails.
func (s *SurveyService) CreateSurvey(ctx context.Context, input SurveyInput, creatorID string, image *Image) (*models.Survey, error) {
	var imageURL string
	if image != nil {
		url, err := s.uploadImage(ctx, "", image)
		if err != nil {
			return nil, err
		}
		imageURL = url
	}

	survey := &models.Survey{
		Title:       input.Title,
		Description: input.Description,
		Creator:     creatorID,
		ImageURL:    imageURL,
		CreatedAt:   s.now().UTC(),
		IsPublic:    true,
		Questions:   make([]models.Question, 0, len(input.Questions)),
	}
	if input.IsPublic != nil {
		survey.IsPublic = *input.IsPublic
	}
	for _, q := range input.Questions {
		survey.Questions = append(survey.Questions, models.NewQuestion(q.Text, q.Type, q.Options))
	}

	if err := s.surveys.Insert(ctx, survey); err != nil {
		return nil, err
	}
	return survey, nil
}

// EditSurvey merges patch into the survey and, if image is given, replaces
// the survey image. Only the owner may edit.
func (s *SurveyService) EditSurvey(ctx context.Context, surveyID string, patch SurveyPatch, requestorID string, image *Image) (*models.Survey, error) {
	survey, err := s.findSurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if survey.Creator != requestorID {
		return nil, newError(ErrForbidden, "You do not have permission to edit this survey", nil)
	}

	if image != nil {
		url, err := s.uploadImage(ctx, survey.ImageURL, image)
		if err != nil {
			return nil, err
		}
		survey.ImageURL = url
	}

	if patch.Title != nil {
		survey.Title = *patch.Title
	}
	if patch.Description != nil {
		survey.Description = *patch.Description
	}
	if patch.IsPublic != nil {
		survey.IsPublic = *patch.IsPublic
	}

	updated, err := s.surveys.UpdateDetails(ctx, survey)
	if err != nil {
		return nil, notFoundAs(err, ErrNotFound, "Survey not found")
	}
	return updated, nil
}

// DeleteSurvey removes a survey owned by requestorID. Its image is deleted
// on a best-effort basis.
func (s *SurveyService) DeleteSurvey(ctx context.Context, surveyID, requestorID string) error {
	survey, err := s.findSurvey(ctx, surveyID)
	if err != nil {
		return err
	}
	if survey.Creator != requestorID {
		return newError(ErrForbidden, "You do not have permission to delete this survey", nil)
	}

	if survey.ImageURL != "" {
		s.deleteImage(ctx, survey)
	}

	if err := s.surveys.Delete(ctx, survey.ID); err != nil {
		return notFoundAs(err, ErrNotFound, "Survey not found")
	}
	return nil
}

// ListSurveys returns the surveys of the token's user, or every survey when
// the token is empty or does not verify.
func (s *SurveyService) ListSurveys(ctx context.Context, bearerToken string) ([]models.SurveySummary, error) {
	var creator string
	if bearerToken != "" && s.tokens != nil {
		userID, err := s.tokens.VerifyAccessToken(bearerToken)
		if err != nil {
			logger.Debugf("listing surveys anonymously, token rejected: %v", err)
		} else {
			creator = userID
		}
	}
	return s.surveys.List(ctx, creator)
}

// GetSurvey returns a full survey with its questions and counts.
func (s *SurveyService) GetSurvey(ctx context.Context, surveyID string) (*models.Survey, error) {
	return s.findSurvey(ctx, surveyID)
}

// AddQuestion appends a question to a survey owned by requestorID.
func (s *SurveyService) AddQuestion(ctx context.Context, surveyID string, input QuestionInput, requestorID string) (*models.Survey, error) {
	survey, err := s.ownedSurvey(ctx, surveyID, requestorID)
	if err != nil {
		return nil, err
	}

	updated, err := s.surveys.PushQuestion(ctx, survey.ID, models.NewQuestion(input.Text, input.Type, input.Options))
	if err != nil {
		return nil, notFoundAs(err, ErrNotFound, "Survey not found")
	}
	return updated, nil
}

// DeleteQuestion removes a question from a survey owned by requestorID.
// Unknown question ids leave the survey unchanged.
func (s *SurveyService) DeleteQuestion(ctx context.Context, surveyID, requestorID, questionID string) (*models.Survey, error) {
	survey, err := s.ownedSurvey(ctx, surveyID, requestorID)
	if err != nil {
		return nil, err
	}

	qid, err := primitive.ObjectIDFromHex(questionID)
	if err != nil {
		return survey, nil
	}

	updated, err := s.surveys.PullQuestion(ctx, survey.ID, qid)
	if err != nil {
		return nil, notFoundAs(err, ErrNotFound, "Survey not found")
	}
	return updated, nil
}

// EditQuestion replaces text, type and options of a question in a survey
// owned by requestorID. Replaced options start again at zero votes.
func (s *SurveyService) EditQuestion(ctx context.Context, surveyID, requestorID, questionID string, input QuestionInput) (*models.Survey, error) {
	survey, err := s.ownedSurvey(ctx, surveyID, requestorID)
	if err != nil {
		return nil, err
	}

	qid, err := primitive.ObjectIDFromHex(questionID)
	if err != nil {
		return nil, newError(ErrNotFound, "Question not found in survey", nil)
	}
	if _, ok := survey.FindQuestion(qid); !ok {
		return nil, newError(ErrNotFound, "Question not found in survey", nil)
	}

	replacement := models.NewQuestion(input.Text, input.Type, input.Options)
	updated, err := s.surveys.SetQuestion(ctx, survey.ID, qid, replacement)
	if err != nil {
		return nil, notFoundAs(err, ErrNotFound, "Question not found in survey")
	}
	return updated, nil
}

// GetResults returns the questions of a survey owned by requestorID with
// their vote counts.
func (s *SurveyService) GetResults(ctx context.Context, surveyID, requestorID string) ([]models.Question, error) {
	survey, err := s.ownedSurvey(ctx, surveyID, requestorID)
	if err != nil {
		return nil, err
	}
	return survey.Questions, nil
}

// SubmitAnswer records one anonymous vote for an option.
func (s *SurveyService) SubmitAnswer(ctx context.Context, surveyID string, answer AnswerInput) (*models.Survey, error) {
	survey, err := s.findSurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	qid, err := primitive.ObjectIDFromHex(answer.QuestionID)
	if err != nil {
		return nil, newError(ErrNotFound, "Question not found in survey", nil)
	}
	question, ok := survey.FindQuestion(qid)
	if !ok {
		return nil, newError(ErrNotFound, "Question not found in survey", nil)
	}

	oid, err := primitive.ObjectIDFromHex(answer.OptionID)
	if err != nil {
		return nil, newError(ErrNotFound, "Option not found in question", nil)
	}
	if _, ok := question.FindOption(oid); !ok {
		return nil, newError(ErrNotFound, "Option not found in question", nil)
	}

	updated, err := s.surveys.IncrementOption(ctx, survey.ID, qid, oid)
	if err != nil {
		return nil, notFoundAs(err, ErrNotFound, "Option not found in question")
	}
	return updated, nil
}

func (s *SurveyService) findSurvey(ctx context.Context, surveyID string) (*models.Survey, error) {
	id, err := primitive.ObjectIDFromHex(surveyID)
	if err != nil {
		return nil, newError(ErrNotFound, "Survey not found", nil)
	}
	survey, err := s.surveys.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrNotFound, "Survey not found")
	}
	return survey, nil
}

// ownedSurvey does not distinguish a missing survey from one owned by
// someone else.
func (s *SurveyService) ownedSurvey(ctx context.Context, surveyID, requestorID string) (*models.Survey, error) {
	id, err := primitive.ObjectIDFromHex(surveyID)
	if err != nil {
		return nil, newError(ErrForbidden, "Not authorized or survey not found", nil)
	}
	survey, err := s.surveys.FindOwned(ctx, id, requestorID)
	if err != nil {
		return nil, notFoundAs(err, ErrForbidden, "Not authorized or survey not found")
	}
	return survey, nil
}

// uploadImage stores image under a fresh key, deleting the object behind
// currentURL first when there is one.
func (s *SurveyService) uploadImage(ctx context.Context, currentURL string, image *Image) (string, error) {
	if s.blobs == nil {
		return "", newError(ErrUploadFailed, "Image storage is not configured", nil)
	}

	key := s.imageKey(image.Name)

	var (
		url string
		err error
	)
	if oldKey, ok := s.blobs.KeyFromURL(currentURL); ok {
		url, err = s.blobs.Replace(ctx, oldKey, key, image.Data, image.ContentType)
	} else {
		url, err = s.blobs.Upload(ctx, key, image.Data, image.ContentType)
	}
	if err != nil {
		return "", newError(ErrUploadFailed, "Error uploading image", err)
	}
	return url, nil
}

func (s *SurveyService) deleteImage(ctx context.Context, survey *models.Survey) {
	if s.blobs == nil {
		logger.Warnf("survey %s has an image but image storage is not configured", survey.ID.Hex())
		return
	}
	key, ok := s.blobs.KeyFromURL(survey.ImageURL)
	if !ok {
		logger.Warnf("survey %s image %q is not in the configured bucket", survey.ID.Hex(), survey.ImageURL)
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		logger.Warnf("failed to delete image %s of survey %s: %v", key, survey.ID.Hex(), err)
	}
}

func (s *SurveyService) imageKey(name string) string {
	base := path.Base(name)
	if base == "." || base == "/" {
		base = "image"
	}
	return fmt.Sprintf("surveys/%d-%s", s.now().UnixMilli(), base)
}

// notFoundAs maps store.ErrNotFound to a service error of the given kind.
func notFoundAs(err error, kind error, message string) error {
	if errors.Is(err, store.ErrNotFound) {
		return newError(kind, message, nil)
	}
	return err
}
