package hcl

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

const (
	// ContentTypeHCL is the custom MIME type for HCL analysis documents
	ContentTypeHCL = "application/vnd.hcl"

	// ContentTypeJSON is the standard MIME type for JSON
	ContentTypeJSON = "application/json"
)

// DetectContentType determines whether a request carries JSON or HCL, first
// from the Content-Type header and then by inspecting the body. The body is
// reset afterwards so handlers can still read it.
func DetectContentType(r *http.Request) (string, error) {
	if contentType := r.Header.Get("Content-Type"); contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			switch mediaType {
			case ContentTypeHCL:
				return ContentTypeHCL, nil
			case ContentTypeJSON:
				return ContentTypeJSON, nil
			}
		}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read request body: %w", err)
	}

	// Reset the body so it can be read again later
	r.Body = io.NopCloser(bytes.NewBuffer(body))

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 {
		// JSON documents open with { or [; HCL never does
		if trimmed[0] == '{' || trimmed[0] == '[' {
			return ContentTypeJSON, nil
		}

		if IsHCL(trimmed) {
			return ContentTypeHCL, nil
		}
	}

	// Default to JSON if we can't determine
	return ContentTypeJSON, nil
}

// IsHCLBasedOnExtension checks if the filename has an HCL extension
func IsHCLBasedOnExtension(filename string) bool {
	return strings.HasSuffix(filename, ".hcl") ||
		strings.HasSuffix(filename, ".tf") ||
		strings.HasSuffix(filename, ".tfvars")
}
