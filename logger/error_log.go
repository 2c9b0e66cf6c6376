package logger

import (
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys read from the gin context. They mirror the keys the request id
// and auth middleware set; logger cannot import middleware.
const (
	requestIDKey = "request_id"
	userIDKey    = "userID"
	userRoleKey  = "userRole"
)

// LogHTTPError logs a failed request. Client errors are logged at warn level;
// server errors at error level with the request headers and, outside
// production, a stack trace.
func LogHTTPError(c *gin.Context, err error, statusCode int, message string) {
	log := GetLogger().Named("http")

	kv := []interface{}{
		"error", err,
		"errorType", errorType(err),
		"status", statusCode,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"clientIp", c.ClientIP(),
	}
	if id := c.GetString(requestIDKey); id != "" {
		kv = append(kv, "requestId", id)
	}
	if uid := c.GetString(userIDKey); uid != "" {
		kv = append(kv, "userId", uid, "userRole", c.GetString(userRoleKey))
	}

	if statusCode < http.StatusInternalServerError {
		log.Warnw(message, kv...)
		return
	}

	kv = append(kv, "headers", filterSensitiveHeaders(c.Request.Header))
	if os.Getenv("ENVIRONMENT") != "production" {
		kv = append(kv, "stackTrace", stackTrace(3))
	}
	log.Errorw(message, kv...)
}

// errorType returns the dynamic type of err without its package path,
// e.g. "AppError" or "PgError".
func errorType(err error) string {
	if err == nil {
		return ""
	}
	name := strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

func stackTrace(skip int) string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(skip, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			b.WriteString(frame.Function)
			b.WriteString("\n\t")
			b.WriteString(frame.File)
			b.WriteString(":")
			b.WriteString(strconv.Itoa(frame.Line))
			b.WriteString("\n")
		}
		if !more {
			break
		}
	}
	return b.String()
}

// filterSensitiveHeaders keeps the first value of each header and redacts
// credentials.
func filterSensitiveHeaders(headers http.Header) map[string]string {
	filtered := make(map[string]string, len(headers))
	for name, values := range headers {
		lower := strings.ToLower(name)
		if lower == "authorization" || lower == "cookie" ||
			strings.Contains(lower, "token") || strings.Contains(lower, "key") || strings.Contains(lower, "secret") {
			filtered[name] = "[REDACTED]"
			continue
		}
		if len(values) > 0 {
			filtered[name] = values[0]
		}
	}
	return filtered
}
