package restyutil

import (
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/go-resty/resty/v2"
)

// bodies of scraped pages can be large, dumps keep only the head of them
const maxDumpedBody = 64 << 10

// formatHeaders writes one "Key: value" line per header value, sorted by key
// so dumps of the same request compare equal.
func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var out strings.Builder
	for _, k := range keys {
		for _, v := range headers[k] {
			fmt.Fprintf(&out, "%s: %s\n", k, v)
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}

func truncateBody(body string) string {
	if len(body) <= maxDumpedBody {
		return body
	}
	return fmt.Sprintf("%s\n... (%d bytes omitted)", body[:maxDumpedBody], len(body)-maxDumpedBody)
}

func formatRequestBody(req *http.Request) string {
	if req == nil || req.GetBody == nil {
		return ""
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("(failed to get request body: %s)", err)
	}
	if body == nil {
		return ""
	}
	defer body.Close()
	read, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("(failed to read request body: %s)", err)
	}
	return truncateBody(string(read))
}

func writeSection(out *strings.Builder, title, startLine, headers, body string) {
	fmt.Fprintf(out, "==== %s ====\n%s\n", title, startLine)
	if headers != "" {
		out.WriteString(headers)
		out.WriteString("\n")
	}
	out.WriteString("\n")
	if body != "" {
		out.WriteString(body)
		out.WriteString("\n")
	}
}

// formatExchange renders a request and its response the way they would
// appear on the wire, the final url is the redirect target when there was
// one.
func formatExchange(res *resty.Response) string {
	req := res.Request
	var requestHeaders string
	if req.RawRequest != nil {
		requestHeaders = formatHeaders(req.RawRequest.Header)
	}

	finalURL := req.URL
	if res.RawResponse != nil {
		if redirected, err := res.RawResponse.Location(); err == nil {
			finalURL = redirected.String()
		}
	}

	var out strings.Builder
	writeSection(
		&out, "request",
		fmt.Sprintf("%s %s", req.Method, req.URL),
		requestHeaders,
		formatRequestBody(req.RawRequest),
	)
	out.WriteString("\n")
	writeSection(
		&out, "response",
		fmt.Sprintf("%s (%s)", res.Status(), finalURL),
		formatHeaders(res.Header()),
		truncateBody(res.String()),
	)
	return out.String()
}
