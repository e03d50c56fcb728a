package router

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/questx-lab/rewardissuer/pkg/errorx"
	"github.com/questx-lab/rewardissuer/pkg/xcontext"
)

type errorResponse struct {
	Code     errorx.Code `json:"code"`
	Error    string      `json:"error"`
	Details  string      `json:"details,omitempty"`
	TxHash   string      `json:"txHash,omitempty"`
	Explorer string      `json:"explorer,omitempty"`
}

func newErrorResponse(err error) errorResponse {
	errx := errorx.Error{}
	if !errors.As(err, &errx) {
		errx = errorx.Unknown
	}

	return errorResponse{
		Code:     errx.Code,
		Error:    errx.Message,
		Details:  errx.Details,
		TxHash:   errx.TxHash,
		Explorer: errx.Explorer,
	}
}

func writeError(ctx context.Context, c *gin.Context, err error) {
	resp := newErrorResponse(err)
	if resp.Code == errorx.Internal && !errors.As(err, new(errorx.Error)) {
		xcontext.Logger(ctx).Errorf("Unexpected error: %v", err)
	}

	c.JSON(resp.Code.HTTPStatus(), resp)
}
