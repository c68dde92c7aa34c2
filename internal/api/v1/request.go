package v1

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/types"
	jsoniter "github.com/json-iterator/go"
)

// bindPayload decodes a JSON object body keeping numbers as json.Number, so
// decimal fields are not rounded through float64
func bindPayload(c *gin.Context) (map[string]any, error) {
	payload := make(map[string]any)
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return payload, nil
	}

	dec := jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Request body must be a JSON object").
			Mark(ierr.ErrValidation)
	}
	if payload == nil {
		payload = make(map[string]any)
	}
	return payload, nil
}

// bindJSON binds a typed request body, the DTO validates itself afterwards
func bindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return ierr.WithError(err).
			WithHint("Please check the request payload").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ifMatch reads the expected record version. Quoted and weak entity tags are accepted.
func ifMatch(c *gin.Context) (*int64, error) {
	raw := strings.TrimSpace(c.GetHeader(types.HeaderIfMatch))
	if raw == "" || raw == "*" {
		return nil, nil
	}

	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || version < 1 {
		return nil, ierr.NewErrorf("invalid If-Match header %q", raw).
			WithHint("If-Match must carry a record version").
			WithReportableDetails(map[string]any{
				"violations": []map[string]string{{"field": types.HeaderIfMatch, "message": "must be a positive integer"}},
			}).
			Mark(ierr.ErrValidation)
	}
	return &version, nil
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}
