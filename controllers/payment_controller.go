package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/fulfillment-service/common/errors"
	"github.com/yashrajoria/fulfillment-service/models"
)

// PaymentApplier turns a provider callback into a PaymentCompleted event.
type PaymentApplier interface {
	Apply(ctx context.Context, evt models.PaymentEvent) error
}

type PaymentController struct {
	payments PaymentApplier
}

func NewPaymentController(payments PaymentApplier) *PaymentController {
	return &PaymentController{payments: payments}
}

// HandleWebhook handles POST /webhooks/payments. Subscribers run before the
// response is written.
func (pc *PaymentController) HandleWebhook(ctx *gin.Context) {
	var evt models.PaymentEvent
	if err := ctx.ShouldBindJSON(&evt); err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}

	if err := pc.payments.Apply(ctx.Request.Context(), evt); err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"received": true})
}
