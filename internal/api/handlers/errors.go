package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qwami-service/qwami_service/internal/domain/entities"
)

// Error codes as constants for consistent error responses across handlers
const (
	// Validation errors
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeValidationError = "VALIDATION_ERROR"
	ErrCodeInvalidAmount   = "INVALID_AMOUNT"
	ErrCodeInvalidAddress  = "INVALID_ADDRESS"

	// Session errors
	ErrCodeNotConnected        = "NOT_CONNECTED"
	ErrCodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	ErrCodeSigningUnsupported  = "SIGNING_UNSUPPORTED"
	ErrCodeUserRejected        = "USER_REJECTED"
	ErrCodeAlreadyConnecting   = "ALREADY_CONNECTING"

	// Configuration errors
	ErrCodeNotConfigured = "NOT_CONFIGURED"

	// Network errors
	ErrCodeFetchFailed         = "FETCH_FAILED"
	ErrCodeSubmissionFailed    = "SUBMISSION_FAILED"
	ErrCodeConfirmationTimeout = "CONFIRMATION_TIMEOUT"

	// Operation errors
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeOperationFailed    = "OPERATION_FAILED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
)

// Error messages as constants for consistency
const (
	MsgInvalidRequest     = "Invalid request payload"
	MsgInternalError      = "Internal server error"
	MsgServiceUnavailable = "Service temporarily unavailable"
)

// ErrorResponseBuilder provides a fluent interface for building error responses
type ErrorResponseBuilder struct {
	status  int
	code    string
	message string
	details map[string]interface{}
}

// NewError creates a new ErrorResponseBuilder
func NewError(status int, code string) *ErrorResponseBuilder {
	return &ErrorResponseBuilder{
		status: status,
		code:   code,
	}
}

// Message sets the error message
func (e *ErrorResponseBuilder) Message(msg string) *ErrorResponseBuilder {
	e.message = msg
	return e
}

// Detail adds a single detail to the error response
func (e *ErrorResponseBuilder) Detail(key string, value interface{}) *ErrorResponseBuilder {
	if e.details == nil {
		e.details = make(map[string]interface{})
	}
	e.details[key] = value
	return e
}

// Send sends the error response
func (e *ErrorResponseBuilder) Send(c *gin.Context) {
	c.JSON(e.status, entities.ErrorResponse{
		Code:    e.code,
		Message: e.message,
		Details: e.details,
	})
}

// SendDomainError maps a typed domain error onto the HTTP surface. Unknown
// errors become opaque 500s.
func SendDomainError(c *gin.Context, err error) {
	kind := entities.KindOf(err)
	status, code := statusForKind(kind)

	message := MsgInternalError
	var domainErr *entities.Error
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}

	c.JSON(status, entities.ErrorResponse{
		Code:    code,
		Message: message,
		Details: map[string]interface{}{
			"error_kind": string(kind),
		},
	})
}

func statusForKind(kind entities.ErrorKind) (int, string) {
	switch kind {
	case entities.ErrKindInvalidAmount:
		return http.StatusBadRequest, ErrCodeInvalidAmount
	case entities.ErrKindInvalidAddress:
		return http.StatusBadRequest, ErrCodeInvalidAddress
	case entities.ErrKindNotConnected:
		return http.StatusConflict, ErrCodeNotConnected
	case entities.ErrKindAlreadyConnecting:
		return http.StatusConflict, ErrCodeAlreadyConnecting
	case entities.ErrKindProviderUnavailable:
		return http.StatusServiceUnavailable, ErrCodeProviderUnavailable
	case entities.ErrKindSigningUnsupported:
		return http.StatusUnprocessableEntity, ErrCodeSigningUnsupported
	case entities.ErrKindUserRejected:
		return http.StatusUnprocessableEntity, ErrCodeUserRejected
	case entities.ErrKindNotConfigured:
		return http.StatusServiceUnavailable, ErrCodeNotConfigured
	case entities.ErrKindFetchFailed:
		return http.StatusBadGateway, ErrCodeFetchFailed
	case entities.ErrKindSubmissionFailed:
		return http.StatusBadGateway, ErrCodeSubmissionFailed
	case entities.ErrKindConfirmationTimeout:
		return http.StatusGatewayTimeout, ErrCodeConfirmationTimeout
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}

// Common error response helpers for frequently used errors

// SendBadRequest sends a 400 Bad Request error
func SendBadRequest(c *gin.Context, code, message string, details ...map[string]interface{}) {
	var det map[string]interface{}
	if len(details) > 0 {
		det = details[0]
	}
	c.JSON(http.StatusBadRequest, entities.ErrorResponse{
		Code:    code,
		Message: message,
		Details: det,
	})
}

// SendNotFound sends a 404 Not Found error
func SendNotFound(c *gin.Context, code, message string) {
	c.JSON(http.StatusNotFound, entities.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// SendInternalError sends a 500 Internal Server Error
func SendInternalError(c *gin.Context, code, message string) {
	c.JSON(http.StatusInternalServerError, entities.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// SendServiceUnavailable sends a 503 Service Unavailable error
func SendServiceUnavailable(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, entities.ErrorResponse{
		Code:    ErrCodeServiceUnavailable,
		Message: message,
	})
}

// SendTooManyRequests sends a 429 Too Many Requests error
func SendTooManyRequests(c *gin.Context, message string) {
	c.JSON(http.StatusTooManyRequests, entities.ErrorResponse{
		Code:    ErrCodeTooManyRequests,
		Message: message,
	})
}

// SendSuccess sends a 200 OK response with data
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// SendCreated sends a 201 Created response with data
func SendCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}
