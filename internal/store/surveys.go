package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"survey-app-server/internal/models"
)

const surveysCollection = "surveys"

// SurveyStore persists survey documents with their embedded questions and
// options.
type SurveyStore struct {
	coll *mongo.Collection
}

// NewSurveyStore creates a SurveyStore backed by the surveys collection of db.
func NewSurveyStore(db *mongo.Database) *SurveyStore {
	return &SurveyStore{coll: db.Collection(surveysCollection)}
}

var returnAfter = options.FindOneAndUpdate().SetReturnDocument(options.After)

// Insert stores a new survey and sets its id.
func (s *SurveyStore) Insert(ctx context.Context, survey *models.Survey) error {
	if survey.Questions == nil {
		survey.Questions = []models.Question{}
	}
	res, err := s.coll.InsertOne(ctx, survey)
	if err != nil {
		return fmt.Errorf("insert survey: %w", err)
	}
	survey.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID returns the survey with the given id.
func (s *SurveyStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Survey, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// FindOwned returns the survey with the given id only if creator owns it.
func (s *SurveyStore) FindOwned(ctx context.Context, id primitive.ObjectID, creator string) (*models.Survey, error) {
	return s.findOne(ctx, bson.M{"_id": id, "creator": creator})
}

// List returns the title and description of every survey, or only of the
// surveys owned by creator when it is not empty.
func (s *SurveyStore) List(ctx context.Context, creator string) ([]models.SurveySummary, error) {
	filter := bson.M{}
	if creator != "" {
		filter["creator"] = creator
	}
	opts := options.Find().SetProjection(bson.M{"title": 1, "description": 1, "_id": 0})

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find surveys: %w", err)
	}

	summaries := []models.SurveySummary{}
	if err = cur.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("decode surveys: %w", err)
	}
	return summaries, nil
}

// UpdateDetails writes the top-level fields of survey (title, description,
// image, visibility) without touching its questions, so concurrent votes are
// not overwritten. Returns the updated document.
func (s *SurveyStore) UpdateDetails(ctx context.Context, survey *models.Survey) (*models.Survey, error) {
	update := bson.M{"$set": bson.M{
		"title":       survey.Title,
		"description": survey.Description,
		"imageUrl":    survey.ImageURL,
		"isPublic":    survey.IsPublic,
	}}
	return s.findOneAndUpdate(ctx, bson.M{"_id": survey.ID}, update, returnAfter)
}

// Delete removes the survey with the given id.
func (s *SurveyStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete survey: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// PushQuestion appends question to the survey and returns the updated document.
func (s *SurveyStore) PushQuestion(ctx context.Context, id primitive.ObjectID, question models.Question) (*models.Survey, error) {
	update := bson.M{"$push": bson.M{"questions": question}}
	return s.findOneAndUpdate(ctx, bson.M{"_id": id}, update, returnAfter)
}

// PullQuestion removes the question with questionID if present and returns
// the updated document.
func (s *SurveyStore) PullQuestion(ctx context.Context, id, questionID primitive.ObjectID) (*models.Survey, error) {
	update := bson.M{"$pull": bson.M{"questions": bson.M{"_id": questionID}}}
	return s.findOneAndUpdate(ctx, bson.M{"_id": id}, update, returnAfter)
}

// SetQuestion replaces text, type and options of the embedded question
// matching questionID. ErrNotFound if the survey holds no such question.
func (s *SurveyStore) SetQuestion(ctx context.Context, id, questionID primitive.ObjectID, question models.Question) (*models.Survey, error) {
	filter := bson.M{"_id": id, "questions._id": questionID}
	update := bson.M{"$set": bson.M{
		"questions.$[elem].text":    question.Text,
		"questions.$[elem].type":    question.Type,
		"questions.$[elem].options": question.Options,
	}}
	opts := options.FindOneAndUpdate().
		SetArrayFilters(options.ArrayFilters{Filters: []interface{}{
			bson.M{"elem._id": questionID},
		}}).
		SetReturnDocument(options.After)
	return s.findOneAndUpdate(ctx, filter, update, opts)
}

// IncrementOption adds one vote to the option optionID of question
// questionID in a single atomic update. ErrNotFound if the survey does not
// hold that option under that question.
func (s *SurveyStore) IncrementOption(ctx context.Context, id, questionID, optionID primitive.ObjectID) (*models.Survey, error) {
	filter := bson.M{
		"_id": id,
		"questions": bson.M{"$elemMatch": bson.M{
			"_id":         questionID,
			"options._id": optionID,
		}},
	}
	update := bson.M{"$inc": bson.M{"questions.$[question].options.$[option].count": 1}}
	opts := options.FindOneAndUpdate().
		SetArrayFilters(options.ArrayFilters{Filters: []interface{}{
			bson.M{"question._id": questionID},
			bson.M{"option._id": optionID},
		}}).
		SetReturnDocument(options.After)
	return s.findOneAndUpdate(ctx, filter, update, opts)
}

func (s *SurveyStore) findOne(ctx context.Context, filter bson.M) (*models.Survey, error) {
	var survey models.Survey
	if err := s.coll.FindOne(ctx, filter).Decode(&survey); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find survey: %w", err)
	}
	return &survey, nil
}

func (s *SurveyStore) findOneAndUpdate(ctx context.Context, filter, update bson.M, opts *options.FindOneAndUpdateOptions) (*models.Survey, error) {
	var survey models.Survey
	if err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&survey); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update survey: %w", err)
	}
	return &survey, nil
}
