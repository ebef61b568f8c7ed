// Package apierror turns Google API failures into diagnostics a human can read.
package apierror

import (
	"bytes"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"google.golang.org/api/googleapi"

	"ChannelBanner/internal/domain"
)

const maxDiagnostic = 1024

// DescribeBody returns JSON and text bodies verbatim; HTML error pages from
// Google front ends are reduced to their title and visible text.
func DescribeBody(contentType string, body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	if !strings.Contains(strings.ToLower(contentType), "html") && trimmed[0] != '<' {
		return string(trimmed)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(trimmed))
	if err != nil {
		return truncate(string(trimmed))
	}

	doc.Find("script, style").Remove()
	title := collapse(doc.Find("title").First().Text())
	text := collapse(doc.Find("body").Text())

	switch {
	case title != "" && text != "" && !strings.HasPrefix(text, title):
		return truncate(title + ": " + text)
	case text != "":
		return truncate(text)
	default:
		return truncate(title)
	}
}

// Upload wraps a failed upload call into a domain.UploadError.
func Upload(dest domain.Destination, err error) error {
	if err == nil {
		return nil
	}

	uploadErr := &domain.UploadError{Destination: dest, Err: err}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		uploadErr.Code = gErr.Code
		contentType := ""
		if gErr.Header != nil {
			contentType = gErr.Header.Get("Content-Type")
		}
		uploadErr.Payload = DescribeBody(contentType, []byte(gErr.Body))
		if uploadErr.Payload == "" {
			uploadErr.Payload = gErr.Message
		}
	}

	return uploadErr
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string) string {
	if len(s) <= maxDiagnostic {
		return s
	}
	return s[:maxDiagnostic] + "..."
}
