package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/fulfillment-service/models"
)

// Error is an application error with the HTTP status it maps to.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// FromDomain maps a domain error to its transport error. Unknown errors
// become a 500 that does not leak the cause to the client.
func FromDomain(err error) *Error {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var oos *models.OutOfStockError
	var insufficient *models.InsufficientStockError
	var conflict *models.StateConflictError
	switch {
	case stderrors.As(err, &oos):
		e := New(http.StatusConflict, oos.Error(), err)
		e.Details = gin.H{"sku": oos.SKU, "variant_id": oos.VariantID, "requested": oos.Requested}
		return e
	case stderrors.As(err, &insufficient):
		e := New(http.StatusConflict, "Insufficient stock", err)
		e.Details = gin.H{"available": insufficient.Available, "requested": insufficient.Requested}
		return e
	case stderrors.As(err, &conflict):
		e := New(http.StatusConflict, conflict.Error(), err)
		e.Details = gin.H{"from": conflict.From, "to": conflict.To}
		return e
	case stderrors.Is(err, models.ErrNotFound):
		return New(http.StatusNotFound, "Not found", err)
	case stderrors.Is(err, models.ErrVoucherExpired):
		return New(http.StatusUnprocessableEntity, "Voucher expired", err)
	case stderrors.Is(err, models.ErrVoucherInvalid):
		return New(http.StatusUnprocessableEntity, "Voucher invalid", err)
	case stderrors.Is(err, models.ErrProductUnavailable):
		return New(http.StatusUnprocessableEntity, "Product unavailable", err)
	case stderrors.Is(err, models.ErrInvalidQuantity),
		stderrors.Is(err, models.ErrInvalidStatus),
		stderrors.Is(err, models.ErrEmptyOrder),
		stderrors.Is(err, models.ErrInvalidRating),
		stderrors.Is(err, models.ErrInvalidPayment):
		return New(http.StatusBadRequest, err.Error(), err)
	}
	return New(http.StatusInternalServerError, "Internal server error", err)
}

// Abort writes the mapped error and stops the handler chain.
func Abort(c *gin.Context, err error) {
	appErr := FromDomain(err)
	_ = c.Error(appErr)
	c.AbortWithStatusJSON(appErr.Code, appErr)
}

// ErrorMiddleware renders the last error a handler attached with c.Error
// when the handler did not write a response itself.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		appErr := FromDomain(c.Errors.Last().Err)
		c.JSON(appErr.Code, appErr)
		c.Abort()
	}
}

var (
	ErrBadRequest   = New(http.StatusBadRequest, "Bad request", nil)
	ErrUnauthorized = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrForbidden    = New(http.StatusForbidden, "Forbidden", nil)
)

// BadRequest wraps a binding or parsing failure.
func BadRequest(err error) *Error {
	return New(http.StatusBadRequest, "Invalid input", err)
}
