package remoteapi

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kirillkom/docnav/internal/core/domain"
)

const (
	documentPageSize = 100
	maxFileBytes     = 256 << 20
)

type documentListResponse struct {
	Documents []domain.Document `json:"documents"`
	Total     int               `json:"total"`
}

type latestParseResponse struct {
	Cached bool                `json:"cached"`
	Result *domain.ParseResult `json:"result"`
}

// ListDocuments pages through the project's documents until the reported total is reached.
func (c *Client) ListDocuments(ctx context.Context, projectID string) ([]domain.Document, error) {
	var out []domain.Document
	for skip := 0; ; skip += documentPageSize {
		var page documentListResponse
		err := c.do(ctx, call{
			operation: "list_documents",
			method:    http.MethodGet,
			path:      projectPath(projectID, "documents"),
			query: url.Values{
				"skip":  {strconv.Itoa(skip)},
				"limit": {strconv.Itoa(documentPageSize)},
			},
			handle: decodeJSON("list_documents", &page),
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.Documents...)
		if len(page.Documents) < documentPageSize || len(out) >= page.Total {
			break
		}
	}
	if out == nil {
		out = []domain.Document{}
	}
	return out, nil
}

func (c *Client) FetchFile(ctx context.Context, projectID, documentID string) (domain.DocumentFile, error) {
	var file domain.DocumentFile
	err := c.do(ctx, call{
		operation: "fetch_file",
		method:    http.MethodGet,
		path:      projectPath(projectID, "documents", url.PathEscape(documentID), "file"),
		accept:    "*/*",
		handle: func(resp *http.Response) error {
			data, err := io.ReadAll(io.LimitReader(resp.Body, maxFileBytes+1))
			if err != nil {
				return fmt.Errorf("read document body: %w", err)
			}
			if len(data) > maxFileBytes {
				return fmt.Errorf("document body exceeds %d bytes: %w", maxFileBytes, errMalformedResponse)
			}
			file = domain.DocumentFile{
				Name:        attachmentName(resp.Header.Get("Content-Disposition")),
				ContentType: mediaType(resp.Header.Get("Content-Type"), data),
				Data:        data,
			}
			return nil
		},
	})
	if err != nil {
		return domain.DocumentFile{}, err
	}
	return file, nil
}

// LatestParse returns the newest completed parse. An empty parser matches any.
func (c *Client) LatestParse(ctx context.Context, projectID, documentID, parser string) (*domain.ParseResult, bool, error) {
	query := url.Values{}
	if parser != "" {
		query.Set("parser", parser)
	}

	var resp latestParseResponse
	err := c.do(ctx, call{
		operation: "latest_parse",
		method:    http.MethodGet,
		path:      projectPath(projectID, "documents", url.PathEscape(documentID), "latest-parse"),
		query:     query,
		handle:    decodeJSON("latest_parse", &resp),
	})
	if err != nil {
		return nil, false, err
	}
	if !resp.Cached || resp.Result == nil {
		return nil, false, nil
	}
	return resp.Result, true, nil
}

func attachmentName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}

// mediaType strips parameters from the header and sniffs the body when the
// server sent none.
func mediaType(header string, data []byte) string {
	if header == "" {
		return http.DetectContentType(data)
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return header
	}
	return mt
}
