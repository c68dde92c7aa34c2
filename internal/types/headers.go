package types

const (
	HeaderRequestID     = "X-Request-ID"
	HeaderAuthorization = "Authorization"
	// HeaderIfMatch carries the record version a client read before writing
	HeaderIfMatch = "If-Match"
	// HeaderReportURL carries the presigned link of an archived export
	HeaderReportURL = "X-Report-URL"

	// QueryToken lets browser websocket clients pass the bearer token
	QueryToken = "token"
)
