package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Context keys set by the middleware in this package.
const (
	CtxOperatorID = "operator_id"
	CtxRole       = "role"
	CtxRequestID  = "request_id"
)

// OperatorID returns the authenticated operator, if any.
func OperatorID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxOperatorID).(uint64)
	return id, ok && id != 0
}

// subject identifies the caller for rate limiting: the operator id when
// authenticated, "anon" otherwise.
func subject(c echo.Context) string {
	if id, ok := OperatorID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
