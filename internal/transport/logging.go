package transport

import (
	"encoding/json"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var censoredFields = []string{"password", "code"}

// censorBody blanks credential-bearing fields before a request body reaches
// the log. Non-JSON bodies are dropped entirely rather than risk leaking.
func censorBody(body []byte) []byte {
	if len(body) == 0 {
		return body
	}

	parsed := map[string]interface{}{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return []byte(`"$unparsed"`)
	}

	for _, field := range censoredFields {
		if _, ok := parsed[field]; ok {
			parsed[field] = "$censored"
		}
	}

	out, err := json.Marshal(parsed)
	if err != nil {
		return []byte(`"$unparsed"`)
	}
	return out
}

// RequestLogMiddleware logs each request with its censored body.
func (s *HTTPServer) RequestLogMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return middleware.BodyDump(func(c echo.Context, reqBody, resBody []byte) {
		s.logger.Infow("request",
			"method", c.Request().Method,
			"path", c.Path(),
			"status", c.Response().Status,
			"body", string(censorBody(reqBody)),
		)
	})(next)
}
