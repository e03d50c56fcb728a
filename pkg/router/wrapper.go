package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/questx-lab/rewardissuer/pkg/errorx"
	"github.com/questx-lab/rewardissuer/pkg/xcontext"
)

func wrapHandler[Request, Response any](
	router *Router,
	method string,
	handler HandlerFunc[Request, Response],
) gin.HandlerFunc {
	befores := router.befores
	closers := router.closers

	return func(c *gin.Context) {
		ctx := xcontext.WithHTTPRequest(router.ctx, c.Request)

		defer func() {
			for _, closer := range closers {
				closer(ctx)
			}
		}()

		resp, err := func() (*Response, error) {
			for _, before := range befores {
				next, err := before(ctx)
				if err != nil {
					return nil, err
				}
				ctx = next
			}

			var req Request
			var err error
			switch method {
			case http.MethodGet:
				err = c.ShouldBindQuery(&req)
			case http.MethodPost:
				err = c.ShouldBindJSON(&req)
			}
			if err != nil {
				xcontext.Logger(ctx).Debugf("Cannot bind the request: %v", err)
				return nil, errorx.New(errorx.BadRequest, "Invalid request body")
			}

			return handler(ctx, &req)
		}()

		if err != nil {
			ctx = xcontext.WithError(ctx, err)
			writeError(ctx, c, err)
			return
		}

		if resp == nil {
			c.Status(http.StatusOK)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}
