package response

import (
	"net/http"

	"rewardpoints/internal/apperr"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    apperr.CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    apperr.CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Fail writes err using the status and code of its apperr kind.
func Fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	c.JSON(apperr.HTTPStatus(kind), Response{
		Code:    apperr.Code(kind),
		Message: apperr.MessageOf(err),
	})
}

// Abort is Fail for middleware: it also stops the handler chain.
func Abort(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	c.AbortWithStatusJSON(apperr.HTTPStatus(kind), Response{
		Code:    apperr.Code(kind),
		Message: apperr.MessageOf(err),
	})
}

func ParamError(c *gin.Context, message string) {
	Fail(c, apperr.Validation(message))
}
