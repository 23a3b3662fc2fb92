package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"survey-app-server/internal/models"
)

const (
	alice = "user-a"
	bob   = "user-b"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestSurveys(blobs BlobStore) (*SurveyService, *memSurveys) {
	surveys := newMemSurveys()
	svc := NewSurveyService(surveys, blobs, stubVerifier{"token-a": alice, "token-b": bob})
	svc.now = func() time.Time { return fixedNow }
	return svc, surveys
}

func petsSurvey(t *testing.T, svc *SurveyService) *models.Survey {
	t.Helper()
	survey, err := svc.CreateSurvey(context.Background(), SurveyInput{
		Title:       "Pets",
		Description: "Which pet do you prefer?",
		Questions: []QuestionInput{
			{Text: "Fav?", Type: "single", Options: []string{"Cat", "Dog"}},
		},
	}, alice, nil)
	require.NoError(t, err)
	return survey
}

func TestCreateSurvey(t *testing.T) {
	svc, surveys := newTestSurveys(nil)

	survey := petsSurvey(t, svc)
	assert.False(t, survey.ID.IsZero())
	assert.Equal(t, alice, survey.Creator)
	assert.True(t, survey.IsPublic)
	assert.Equal(t, fixedNow, survey.CreatedAt)
	require.Len(t, survey.Questions, 1)
	for _, o := range survey.Questions[0].Options {
		assert.Zero(t, o.Count)
	}

	stored, err := surveys.FindByID(context.Background(), survey.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pets", stored.Title)

	private := false
	empty, err := svc.CreateSurvey(context.Background(), SurveyInput{Title: "Empty", IsPublic: &private}, alice, nil)
	require.NoError(t, err)
	assert.NotNil(t, empty.Questions)
	assert.Empty(t, empty.Questions)
	assert.False(t, empty.IsPublic)
}

func TestCreateSurvey_WithImage(t *testing.T) {
	blobs := new(mockBlobs)
	svc, _ := newTestSurveys(blobs)

	data := []byte("png")
	blobs.On("KeyFromURL", "").Return("", false)
	blobs.On("Upload", mock.Anything, "surveys/1714564800000-cat.png", data, "image/png").
		Return("https://bucket.s3.amazonaws.com/surveys/1714564800000-cat.png", nil)

	survey, err := svc.CreateSurvey(context.Background(), SurveyInput{Title: "Pets"}, alice,
		&Image{Name: "uploads/cat.png", Data: data, ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/surveys/1714564800000-cat.png", survey.ImageURL)
	blobs.AssertExpectations(t)
}

func TestCreateSurvey_UploadFailureStoresNothing(t *testing.T) {
	blobs := new(mockBlobs)
	svc, surveys := newTestSurveys(blobs)

	blobs.On("KeyFromURL", "").Return("", false)
	blobs.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("access denied"))

	_, err := svc.CreateSurvey(context.Background(), SurveyInput{Title: "Pets"}, alice,
		&Image{Name: "cat.png", Data: []byte("x"), ContentType: "image/png"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUploadFailed)

	list, err := surveys.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateSurvey_ImageWithoutStorage(t *testing.T) {
	svc, _ := newTestSurveys(nil)

	_, err := svc.CreateSurvey(context.Background(), SurveyInput{Title: "Pets"}, alice,
		&Image{Name: "cat.png", Data: []byte("x")})
	assert.ErrorIs(t, err, ErrUploadFailed)
}

func TestEditSurvey(t *testing.T) {
	svc, _ := newTestSurveys(nil)
	survey := petsSurvey(t, svc)
	ctx := context.Background()

	title := "Animals"
	private := false
	updated, err := svc.EditSurvey(ctx, survey.ID.Hex(), SurveyPatch{Title: &title, IsPublic: &private}, alice, nil)
	require.NoError(t, err)
	assert.Equal(t, "Animals", updated.Title)
	assert.Equal(t, "Which pet do you prefer?", updated.Description)
	assert.False(t, updated.IsPublic)
	assert.Len(t, updated.Questions, 1)

	_, err = svc.EditSurvey(ctx, survey.ID.Hex(), SurveyPatch{Title: &title}, bob, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.EditSurvey(ctx, primitive.NewObjectID().Hex(), SurveyPatch{}, alice, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.EditSurvey(ctx, "not-an-id", SurveyPatch{}, alice, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEditSurvey_ReplacesImage(t *testing.T) {
	blobs := new(mockBlobs)
	svc, surveys := newTestSurveys(blobs)
	ctx := context.Background()

	oldURL := "https://bucket.s3.amazonaws.com/surveys/1-old.png"
	survey := &models.Survey{Title: "Pets", Creator: alice, ImageURL: oldURL}
	require.NoError(t, surveys.Insert(ctx, survey))

	data := []byte("jpg")
	blobs.On("KeyFromURL", oldURL).Return("surveys/1-old.png", true)
	blobs.On("Replace", mock.Anything, "surveys/1-old.png", "surveys/1714564800000-new.jpg", data, "image/jpeg").
		Return("https://bucket.s3.amazonaws.com/surveys/1714564800000-new.jpg", nil)

	updated, err := svc.EditSurvey(ctx, survey.ID.Hex(), SurveyPatch{}, alice,
		&Image{Name: "new.jpg", Data: data, ContentType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/surveys/1714564800000-new.jpg", updated.ImageURL)
	blobs.AssertExpectations(t)
}

func TestDeleteSurvey(t *testing.T) {
	svc, surveys := newTestSurveys(nil)
	survey := petsSurvey(t, svc)
	ctx := context.Background()

	err := svc.DeleteSurvey(ctx, survey.ID.Hex(), bob)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.DeleteSurvey(ctx, survey.ID.Hex(), alice))
	_, err = surveys.FindByID(ctx, survey.ID)
	assert.Error(t, err)

	err = svc.DeleteSurvey(ctx, survey.ID.Hex(), alice)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSurvey_ImageDeleteFailureStillDeletes(t *testing.T) {
	blobs := new(mockBlobs)
	svc, surveys := newTestSurveys(blobs)
	ctx := context.Background()

	url := "https://bucket.s3.amazonaws.com/surveys/1-cat.png"
	survey := &models.Survey{Title: "Pets", Creator: alice, ImageURL: url}
	require.NoError(t, surveys.Insert(ctx, survey))

	blobs.On("KeyFromURL", url).Return("surveys/1-cat.png", true)
	blobs.On("Delete", mock.Anything, "surveys/1-cat.png").Return(errors.New("timeout"))

	require.NoError(t, svc.DeleteSurvey(ctx, survey.ID.Hex(), alice))
	_, err := surveys.FindByID(ctx, survey.ID)
	assert.Error(t, err)
	blobs.AssertExpectations(t)
}

func TestListSurveys(t *testing.T) {
	svc, _ := newTestSurveys(nil)
	ctx := context.Background()

	petsSurvey(t, svc)
	_, err := svc.CreateSurvey(ctx, SurveyInput{Title: "Food"}, bob, nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		titles []string
	}{
		{"owner a", "token-a", []string{"Pets"}},
		{"owner b", "token-b", []string{"Food"}},
		{"anonymous", "", []string{"Pets", "Food"}},
		{"bad token is anonymous", "garbage", []string{"Pets", "Food"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := svc.ListSurveys(ctx, tt.token)
			require.NoError(t, err)
			var titles []string
			for _, s := range list {
				titles = append(titles, s.Title)
			}
			assert.ElementsMatch(t, tt.titles, titles)
		})
	}
}

func TestGetSurvey(t *testing.T) {
	svc, _ := newTestSurveys(nil)
	survey := petsSurvey(t, svc)

	got, err := svc.GetSurvey(context.Background(), survey.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, survey.Questions, got.Questions)

	_, err = svc.GetSurvey(context.Background(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuestionOperations_Ownership(t *testing.T) {
	svc, _ := newTestSurveys(nil)
	survey := petsSurvey(t, svc)
	ctx := context.Background()
	qid := survey.Questions[0].ID.Hex()
	input := QuestionInput{Text: "Why?", Type: "single", Options: []string{"Yes"}}

	ops := map[string]func(surveyID, requestor string) error{
		"add": func(id, who string) error {
			_, err := svc.AddQuestion(ctx, id, input, who)
			return err
		},
		"delete": func(id, who string) error {
			_, err := svc.DeleteQuestion(ctx, id, who, qid)
			return err
		},
		"edit": func(id, who string) error {
			_, err := svc.EditQuestion(ctx, id, who, qid, input)
			return err
		},
		"results": func(id, who string) error {
			_, err := svc.GetResults(ctx, id, who)
			return err
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, op(survey.ID.Hex(), bob), ErrForbidden)
			assert.ErrorIs(t, op(primitive.NewObjectID().Hex(), alice), ErrForbidden)
			assert.ErrorIs(t, op("bogus", alice), ErrForbidden)
		})
	}
}

func TestAddQuestion(t *testing.T) {
	svc, _ := newTestSurveys(nil)
	survey := petsSurvey(t, svc)

	updated, err := svc.AddQuestion(context.Background(), survey.ID.Hex(),
		QuestionInput{Text: "Size?", Type: "single", Options: []string{"Small", "Large"}}, alice)
	require.NoError(t, err)
	require.Len(t, updated.Questions, 2)
	added := updated.Questions[1]
	assert.Equal(t, "Size?", added.Text)
	assert.False(t, added.ID.IsZero())
	require.Len(t, added.Options, 2)
	assert.NotEqual(t, added.Options[0].ID, added.Options[1].ID)
}

func TestDeleteQuestion(t *testing.T) {
	svc, _ := newTestSurveys(nil)
	survey := petsSurvey(t, svc)
	ctx := context.Background()

	unchanged, err := svc.DeleteQuestion(ctx, survey.ID.Hex(), alice, primitive.NewObjectID().Hex())
	require.NoError(t, err)
	assert.Len(t, unchanged.Questions, 1)

	unchanged, err = svc.DeleteQuestion(ctx, survey.ID.Hex(), alice, "bogus")
	require.NoError(t, err)
	assert.Len(t, unchanged.Questions, 1)

	updated, err := svc.DeleteQuestion(ctx, survey.ID.Hex(), alice, survey.Questions[0].ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, updated.Questions)
}

func TestEditQuestion(t *testing.T) {
	svc, _ := newTestSurveys(nil)
	survey := petsSurvey(t, svc)
	ctx := context.Background()
	question := survey.Questions[0]

	_, err := svc.SubmitAnswer(ctx, survey.ID.Hex(), AnswerInput{
		QuestionID: question.ID.Hex(), OptionID: question.Options[0].ID.Hex(),
	})
	require.NoError(t, err)

	updated, err := svc.EditQuestion(ctx, survey.ID.Hex(), alice, question.ID.Hex(),
		QuestionInput{Text: "Favourite?", Type: "multiple", Options: []string{"Cat", "Dog", "Fish"}})
	require.NoError(t, err)
	edited := updated.Questions[0]
	assert.Equal(t, question.ID, edited.ID)
	assert.Equal(t, "Favourite?", edited.Text)
	assert.Equal(t, "multiple", edited.Type)
	require.Len(t, edited.Options, 3)
	for _, o := range edited.Options {
		assert.Zero(t, o.Count)
	}

	_, err = svc.EditQuestion(ctx, survey.ID.Hex(), alice, primitive.NewObjectID().Hex(), QuestionInput{Text: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitAnswer_PetsResults(t *testing.T) {
	svc, _ := newTestSurveys(nil)
	survey := petsSurvey(t, svc)
	ctx := context.Background()
	q := survey.Questions[0]
	cat, dog := q.Options[0], q.Options[1]

	for _, option := range []models.Option{cat, cat, dog} {
		_, err := svc.SubmitAnswer(ctx, survey.ID.Hex(), AnswerInput{QuestionID: q.ID.Hex(), OptionID: option.ID.Hex()})
		require.NoError(t, err)
	}

	results, err := svc.GetResults(ctx, survey.ID.Hex(), alice)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Cat", results[0].Options[0].Text)
	assert.Equal(t, 2, results[0].Options[0].Count)
	assert.Equal(t, "Dog", results[0].Options[1].Text)
	assert.Equal(t, 1, results[0].Options[1].Count)

	_, err = svc.GetResults(ctx, survey.ID.Hex(), bob)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSubmitAnswer_UnknownTargetsLeaveCounts(t *testing.T) {
	svc, surveys := newTestSurveys(nil)
	survey := petsSurvey(t, svc)
	ctx := context.Background()
	q := survey.Questions[0]

	tests := []struct {
		name     string
		surveyID string
		answer   AnswerInput
	}{
		{"unknown survey", primitive.NewObjectID().Hex(), AnswerInput{QuestionID: q.ID.Hex(), OptionID: q.Options[0].ID.Hex()}},
		{"unknown question", survey.ID.Hex(), AnswerInput{QuestionID: primitive.NewObjectID().Hex(), OptionID: q.Options[0].ID.Hex()}},
		{"unknown option", survey.ID.Hex(), AnswerInput{QuestionID: q.ID.Hex(), OptionID: primitive.NewObjectID().Hex()}},
		{"malformed option", survey.ID.Hex(), AnswerInput{QuestionID: q.ID.Hex(), OptionID: "bogus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitAnswer(ctx, tt.surveyID, tt.answer)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}

	stored, err := surveys.FindByID(ctx, survey.ID)
	require.NoError(t, err)
	for _, o := range stored.Questions[0].Options {
		assert.Zero(t, o.Count)
	}
}

func TestSubmitAnswer_Concurrent(t *testing.T) {
	svc, surveys := newTestSurveys(nil)
	survey := petsSurvey(t, svc)
	ctx := context.Background()
	q := survey.Questions[0]

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitAnswer(ctx, survey.ID.Hex(), AnswerInput{QuestionID: q.ID.Hex(), OptionID: q.Options[1].ID.Hex()})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := surveys.FindByID(ctx, survey.ID)
	require.NoError(t, err)
	assert.Equal(t, n, stored.Questions[0].Options[1].Count)
	assert.Zero(t, stored.Questions[0].Options[0].Count)
}
