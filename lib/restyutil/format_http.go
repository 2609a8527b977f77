package restyutil

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

// query parameters that are replaced with "<redacted>" in formatted messages
var redactedParams = []string{"key"}

func formatHeaders(headers http.Header) string {
	var out strings.Builder
	for k, vals := range headers {
		for _, v := range vals {
			out.WriteString(fmt.Sprintf("%s: %s\n", k, v))
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}

func formatRequestBody(req *http.Request) string {
	if req.GetBody == nil {
		return "<NO BODY AVAILABLE>"
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("failed to get request body: %s", err.Error())
	}
	if body == nil {
		return "<NO BODY AVAILABLE>"
	}
	defer body.Close()
	readBody, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("failed to read request body: %s", err.Error())
	}
	return string(readBody)
}

// RedactUrl replaces the values of api key query parameters with "<redacted>".
func RedactUrl(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	query := parsed.Query()
	for _, p := range redactedParams {
		if query.Has(p) {
			query.Set(p, "<redacted>")
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// RedactError redacts the url of a transport error in place, net/http
// includes the full request url in the message of a *url.Error.
func RedactError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = RedactUrl(urlErr.URL)
	}
	return err
}

// 1: request method
// 2: request url
// 3: request headers in ("Key: Value" format)
// 4: request body
// 5: response status
// 6: response url
// 7: response headers in ("Key: Value" format)
// 8: response body
const messageInfoTemplate = `---- REQUEST ----

%s %s

%s

%s

---- RESPONSE ----

%s %s

%s

%s`

// FormatHttpMessage renders a request/response pair, api keys in the url are redacted.
func FormatHttpMessage(res *resty.Response) string {
	requestUrl := res.Request.URL
	if res.Request.RawRequest != nil {
		requestUrl = res.Request.RawRequest.URL.String()
	}
	requestUrl = RedactUrl(requestUrl)

	responseUrl := requestUrl
	if res.RawResponse != nil {
		redirected, err := res.RawResponse.Location()
		if err == nil {
			responseUrl = RedactUrl(redirected.String())
		}
	}

	requestHeaders := ""
	requestBody := "<NO BODY AVAILABLE>"
	if res.Request.RawRequest != nil {
		requestHeaders = formatHeaders(res.Request.RawRequest.Header)
		requestBody = formatRequestBody(res.Request.RawRequest)
	}

	return fmt.Sprintf(
		messageInfoTemplate,

		res.Request.Method, requestUrl,
		requestHeaders,
		requestBody,

		strconv.Itoa(res.StatusCode()), responseUrl,
		formatHeaders(res.Header()),
		res.String(),
	)
}
