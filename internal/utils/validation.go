package utils

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	// gin validates `binding` tags with this engine, so custom rules live here.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("hasdigit", hasDigit)
	}
}

func hasDigit(fl validator.FieldLevel) bool {
	return strings.IndexFunc(fl.Field().String(), unicode.IsDigit) >= 0
}

// Validate performs validation on a struct using its `binding` tags.
func Validate(s interface{}) error {
	return binding.Validator.ValidateStruct(s)
}

// FormatValidationError formats validation errors into a readable string.
func FormatValidationError(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}

	var errorMessages []string
	for _, e := range errs {
		errorMessages = append(errorMessages, fieldMessage(e))
	}
	return strings.Join(errorMessages, ", ")
}

func fieldMessage(e validator.FieldError) string {
	field := e.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "hasdigit":
		return field + " must contain at least one number"
	default:
		return fmt.Sprintf("%s failed on the '%s' rule", field, e.Tag())
	}
}

// BindAndValidate binds the JSON request body to a struct and validates it.
// If binding or validation fails, it sends a BadRequest response and returns false.
func BindAndValidate(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondBindError(c, err)
		return false
	}
	return true
}

// BindFormAndValidate is BindAndValidate for multipart and urlencoded bodies.
func BindFormAndValidate(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindWith(obj, binding.FormMultipart); err != nil {
		respondBindError(c, err)
		return false
	}
	return true
}

func respondBindError(c *gin.Context, err error) {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		BadRequest(c, "Validation failed: "+FormatValidationError(err))
		return
	}
	BadRequest(c, "Invalid request payload: "+err.Error())
}
