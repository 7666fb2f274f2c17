package utils

import "github.com/gin-gonic/gin"

// JSONResponse defines the uniform structure for API responses.
// Reason carries a stable machine-readable code for failures that clients branch on.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Reason  string      `json:"error,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, 200, 0, "success", data)
}

// SuccessMessage returns a success response with a custom message.
func SuccessMessage(ctx *gin.Context, message string, data interface{}) {
	Respond(ctx, 200, 0, message, data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// Reject returns an error response tagged with a reason code and optional details.
func Reject(ctx *gin.Context, status int, code int, reason, message string, details interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    details,
		Reason:  reason,
	})
}
