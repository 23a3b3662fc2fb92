package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"survey-app-server/internal/middleware"
	"survey-app-server/internal/models"
	"survey-app-server/internal/services"
	"survey-app-server/internal/utils"
)

// SurveyService is the survey API used by SurveyHandler.
type SurveyService interface {
	CreateSurvey(ctx context.Context, input services.SurveyInput, creatorID string, image *services.Image) (*models.Survey, error)
	EditSurvey(ctx context.Context, surveyID string, patch services.SurveyPatch, requestorID string, image *services.Image) (*models.Survey, error)
	DeleteSurvey(ctx context.Context, surveyID, requestorID string) error
	ListSurveys(ctx context.Context, bearerToken string) ([]models.SurveySummary, error)
	GetSurvey(ctx context.Context, surveyID string) (*models.Survey, error)
	AddQuestion(ctx context.Context, surveyID string, input services.QuestionInput, requestorID string) (*models.Survey, error)
	DeleteQuestion(ctx context.Context, surveyID, requestorID, questionID string) (*models.Survey, error)
	EditQuestion(ctx context.Context, surveyID, requestorID, questionID string, input services.QuestionInput) (*models.Survey, error)
	GetResults(ctx context.Context, surveyID, requestorID string) ([]models.Question, error)
	SubmitAnswer(ctx context.Context, surveyID string, answer services.AnswerInput) (*models.Survey, error)
}

// SurveyHandler handles survey and question requests.
type SurveyHandler struct {
	Surveys      SurveyService
	MaxImageSize int64
}

// NewSurveyHandler creates a new SurveyHandler. Uploaded images larger than
// maxImageSizeMB are rejected.
func NewSurveyHandler(surveys SurveyService, maxImageSizeMB int) *SurveyHandler {
	return &SurveyHandler{Surveys: surveys, MaxImageSize: int64(maxImageSizeMB) << 20}
}

// OptionRequest is one answer option of a question.
type OptionRequest struct {
	Text string `json:"text" binding:"required"`
}

// QuestionRequest represents the request body for adding or editing a question.
type QuestionRequest struct {
	Text    string          `json:"text" binding:"required"`
	Type    string          `json:"type" binding:"required"`
	Options []OptionRequest `json:"options" binding:"dive"`
}

func (r QuestionRequest) input() services.QuestionInput {
	options := make([]string, 0, len(r.Options))
	for _, o := range r.Options {
		options = append(options, o.Text)
	}
	return services.QuestionInput{Text: r.Text, Type: r.Type, Options: options}
}

// CreateSurveyRequest is accepted as JSON or multipart form. In a form,
// questions is a JSON encoded array.
type CreateSurveyRequest struct {
	Title       string            `json:"title" form:"title" binding:"required,max=100"`
	Description string            `json:"description" form:"description"`
	IsPublic    *bool             `json:"isPublic" form:"isPublic"`
	Questions   []QuestionRequest `json:"questions" form:"-" binding:"dive"`
}

// UpdateSurveyRequest holds the survey fields to change.
type UpdateSurveyRequest struct {
	Title       *string `json:"title" form:"title" binding:"omitempty,max=100"`
	Description *string `json:"description" form:"description"`
	IsPublic    *bool   `json:"isPublic" form:"isPublic"`
}

// AnswerRequest represents the request body for answer submission.
type AnswerRequest struct {
	QuestionID string `json:"questionId" binding:"required,mongodb"`
	OptionID   string `json:"optionId" binding:"required,mongodb"`
}

// CreateSurvey handles survey creation with an optional image.
func (h *SurveyHandler) CreateSurvey(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req CreateSurveyRequest
	image, ok := h.bindSurvey(c, &req)
	if !ok {
		return
	}
	if isMultipart(c) {
		if raw := c.PostForm("questions"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Questions); err != nil {
				utils.BadRequest(c, "Invalid questions: "+err.Error())
				return
			}
			if err := utils.Validate(&req); err != nil {
				utils.BadRequest(c, "Validation failed: "+utils.FormatValidationError(err))
				return
			}
		}
	}

	input := services.SurveyInput{
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		Questions:   make([]services.QuestionInput, 0, len(req.Questions)),
	}
	for _, q := range req.Questions {
		input.Questions = append(input.Questions, q.input())
	}

	survey, err := h.Surveys.CreateSurvey(c.Request.Context(), input, userID, image)
	if err != nil {
		HandleError(c, err)
		return
	}

	utils.Created(c, "Survey created successfully", survey)
}

// ListSurveys lists the caller's surveys, or every survey for anonymous callers.
func (h *SurveyHandler) ListSurveys(c *gin.Context) {
	token, _ := middleware.BearerToken(c.GetHeader("Authorization"))

	surveys, err := h.Surveys.ListSurveys(c.Request.Context(), token)
	if err != nil {
		HandleError(c, err)
		return
	}

	utils.Success(c, "Surveys fetched successfully", surveys)
}

// GetSurvey returns a full survey.
func (h *SurveyHandler) GetSurvey(c *gin.Context) {
	survey, err := h.Surveys.GetSurvey(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}

	utils.Success(c, "Survey fetched successfully", survey)
}

// UpdateSurvey edits survey fields and optionally replaces the image.
func (h *SurveyHandler) UpdateSurvey(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req UpdateSurveyRequest
	image, ok := h.bindSurvey(c, &req)
	if !ok {
		return
	}

	patch := services.SurveyPatch{
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	}
	survey, err := h.Surveys.EditSurvey(c.Request.Context(), c.Param("id"), patch, userID, image)
	if err != nil {
		HandleError(c, err)
		return
	}

	utils.Success(c, "Survey updated successfully", survey)
}

// DeleteSurvey deletes a survey and its image.
func (h *SurveyHandler) DeleteSurvey(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.Surveys.DeleteSurvey(c.Request.Context(), c.Param("id"), userID); err != nil {
		HandleError(c, err)
		return
	}

	utils.Success(c, "Survey deleted successfully", nil)
}

// AddQuestion appends a question to a survey.
func (h *SurveyHandler) AddQuestion(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req QuestionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	survey, err := h.Surveys.AddQuestion(c.Request.Context(), c.Param("id"), req.input(), userID)
	if err != nil {
		HandleError(c, err)
		return
	}

	utils.Created(c, "Question added successfully", survey)
}

// DeleteQuestion removes a question from a survey.
func (h *SurveyHandler) DeleteQuestion(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	survey, err := h.Surveys.DeleteQuestion(c.Request.Context(), c.Param("id"), userID, c.Param("questionId"))
	if err != nil {
		HandleError(c, err)
		return
	}

	utils.Success(c, "Question deleted successfully", survey)
}

// EditQuestion replaces a question's text, type and options.
func (h *SurveyHandler) EditQuestion(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req QuestionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	survey, err := h.Surveys.EditQuestion(c.Request.Context(), c.Param("id"), userID, c.Param("questionId"), req.input())
	if err != nil {
		HandleError(c, err)
		return
	}

	utils.Success(c, "Question updated successfully", survey)
}

// GetResults returns per-option counts of a survey.
func (h *SurveyHandler) GetResults(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	results, err := h.Surveys.GetResults(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		HandleError(c, err)
		return
	}

	utils.Success(c, "Results fetched successfully", results)
}

// SubmitAnswer records an anonymous vote.
func (h *SurveyHandler) SubmitAnswer(c *gin.Context) {
	var req AnswerRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	survey, err := h.Surveys.SubmitAnswer(c.Request.Context(), c.Param("id"), services.AnswerInput{
		QuestionID: req.QuestionID,
		OptionID:   req.OptionID,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	utils.Success(c, "Answer submitted successfully", survey)
}

// bindSurvey binds JSON or multipart bodies into req and reads the optional
// image file of a multipart body.
func (h *SurveyHandler) bindSurvey(c *gin.Context, req interface{}) (*services.Image, bool) {
	if !isMultipart(c) {
		return nil, utils.BindAndValidate(c, req)
	}
	if !utils.BindFormAndValidate(c, req) {
		return nil, false
	}
	return h.readImage(c)
}

func (h *SurveyHandler) readImage(c *gin.Context) (*services.Image, bool) {
	header, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, true
	}
	if err != nil {
		utils.BadRequest(c, "Invalid image: "+err.Error())
		return nil, false
	}
	if h.MaxImageSize > 0 && header.Size > h.MaxImageSize {
		utils.BadRequest(c, fmt.Sprintf("Image exceeds the %d MB limit", h.MaxImageSize>>20))
		return nil, false
	}

	file, err := header.Open()
	if err != nil {
		utils.BadRequest(c, "Invalid image: "+err.Error())
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		utils.BadRequest(c, "Invalid image: "+err.Error())
		return nil, false
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		utils.BadRequest(c, "Only image files are allowed")
		return nil, false
	}

	return &services.Image{Name: header.Filename, Data: data, ContentType: mtype.String()}, true
}

func isMultipart(c *gin.Context) bool {
	return c.ContentType() == binding.MIMEMultipartPOSTForm
}

func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
	}
	return userID, ok
}
