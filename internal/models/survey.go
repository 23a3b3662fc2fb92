package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxTitleLength bounds Survey.Title.
const MaxTitleLength = 100

// Survey is a titled, ordered collection of questions owned by a user.
type Survey struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Creator     string             `json:"creator" bson:"creator"`
	ImageURL    string             `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	Questions   []Question         `json:"questions" bson:"questions"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	IsPublic    bool               `json:"isPublic" bson:"isPublic"`
}

// Question is embedded in a Survey.
type Question struct {
	ID      primitive.ObjectID `json:"id" bson:"_id"`
	Text    string             `json:"text" bson:"text"`
	Type    string             `json:"type" bson:"type"`
	Options []Option           `json:"options" bson:"options"`
}

// Option is embedded in a Question. Count only changes through answer
// submission.
type Option struct {
	ID    primitive.ObjectID `json:"id" bson:"_id"`
	Text  string             `json:"text" bson:"text"`
	Count int                `json:"count" bson:"count"`
}

// SurveySummary is the listing projection of a survey.
type SurveySummary struct {
	Title       string `json:"title" bson:"title"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
}

// NewQuestion builds a question with fresh ids and zeroed counts.
func NewQuestion(text, kind string, optionTexts []string) Question {
	options := make([]Option, 0, len(optionTexts))
	for _, t := range optionTexts {
		options = append(options, Option{ID: primitive.NewObjectID(), Text: t})
	}
	return Question{
		ID:      primitive.NewObjectID(),
		Text:    text,
		Type:    kind,
		Options: options,
	}
}

// FindQuestion returns the embedded question with the given id.
func (s *Survey) FindQuestion(id primitive.ObjectID) (*Question, bool) {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i], true
		}
	}
	return nil, false
}

// FindOption returns the embedded option with the given id.
func (q *Question) FindOption(id primitive.ObjectID) (*Option, bool) {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i], true
		}
	}
	return nil, false
}
