// Package localfs serves documents and cached parses from a directory tree:
//
//	<root>/<project>/<document>/<file>
//	<root>/<project>/<document>/parse/<parser>.json
package localfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kirillkom/docnav/internal/core/domain"
	"github.com/kirillkom/docnav/internal/core/ports"
)

const parseDir = "parse"

var (
	_ ports.DocumentStore = (*Storage)(nil)
	_ ports.ParseCache    = (*Storage)(nil)
)

type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/documents"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

func (s *Storage) ListDocuments(_ context.Context, projectID string) ([]domain.Document, error) {
	projectDir, err := s.dir(projectID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return nil, classifyFSError("list documents", err)
	}

	docs := make([]domain.Document, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		doc, ok, err := s.describe(projectID, entry.Name())
		if err != nil {
			return nil, err
		}
		if ok {
			docs = append(docs, doc)
		}
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt.Time)
	})
	return docs, nil
}

func (s *Storage) FetchFile(_ context.Context, projectID, documentID string) (domain.DocumentFile, error) {
	path, info, err := s.documentFile(projectID, documentID)
	if err != nil {
		return domain.DocumentFile{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.DocumentFile{}, classifyFSError("read document file", err)
	}
	return domain.DocumentFile{
		Name:        info.Name(),
		ContentType: sniffContentType(info.Name(), data),
		Data:        data,
	}, nil
}

// LatestParse reads parse/<parser>.json. An empty parser picks the newest file.
func (s *Storage) LatestParse(_ context.Context, projectID, documentID, parser string) (*domain.ParseResult, bool, error) {
	docDir, err := s.dir(projectID, documentID)
	if err != nil {
		return nil, false, err
	}
	if _, err := os.Stat(docDir); err != nil {
		return nil, false, classifyFSError("stat document", err)
	}

	if parser == "" {
		latest, err := latestParser(filepath.Join(docDir, parseDir))
		if err != nil {
			return nil, false, err
		}
		if latest == "" {
			return nil, false, nil
		}
		parser = latest
	}
	if err := validateID(parser); err != nil {
		return nil, false, err
	}

	raw, err := os.ReadFile(filepath.Join(docDir, parseDir, parser+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classifyFSError("read parse result", err)
	}

	var result domain.ParseResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false, domain.WrapError(domain.ErrServer, "decode parse result", err)
	}
	if result.Metadata.Parser == "" {
		result.Metadata.Parser = parser
	}
	return &result, true, nil
}

func (s *Storage) describe(projectID, documentID string) (domain.Document, bool, error) {
	path, info, err := s.documentFile(projectID, documentID)
	if domain.IsKind(err, domain.ErrNotFound) {
		return domain.Document{}, false, nil
	}
	if err != nil {
		return domain.Document{}, false, err
	}

	latest, err := latestParser(filepath.Join(filepath.Dir(path), parseDir))
	if err != nil {
		return domain.Document{}, false, err
	}
	return domain.Document{
		ID:               documentID,
		ProjectID:        projectID,
		Filename:         info.Name(),
		OriginalFilename: info.Name(),
		ContentType:      contentType(info.Name()),
		FileSize:         info.Size(),
		HasCachedResult:  latest != "",
		LatestParser:     latest,
		CreatedAt:        domain.Timestamp{Time: info.ModTime().UTC()},
	}, true, nil
}

// documentFile returns the first regular file of a document directory.
func (s *Storage) documentFile(projectID, documentID string) (string, fs.FileInfo, error) {
	docDir, err := s.dir(projectID, documentID)
	if err != nil {
		return "", nil, err
	}
	entries, err := os.ReadDir(docDir)
	if err != nil {
		return "", nil, classifyFSError("read document dir", err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return "", nil, classifyFSError("stat document file", err)
		}
		return filepath.Join(docDir, entry.Name()), info, nil
	}
	return "", nil, domain.WrapError(domain.ErrNotFound, "find document file", fmt.Errorf("no file in %s", documentID))
}

func (s *Storage) dir(ids ...string) (string, error) {
	parts := []string{s.basePath}
	for _, id := range ids {
		if err := validateID(id); err != nil {
			return "", err
		}
		parts = append(parts, id)
	}
	return filepath.Join(parts...), nil
}

func latestParser(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", classifyFSError("read parse dir", err)
	}

	var name string
	var newest int64
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); name == "" || mod > newest {
			name = strings.TrimSuffix(entry.Name(), ".json")
			newest = mod
		}
	}
	return name, nil
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return domain.WrapError(domain.ErrInvalidInput, "validate id", fmt.Errorf("invalid id %q", id))
	}
	return nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return ""
}

func sniffContentType(name string, data []byte) string {
	if ct := contentType(name); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

func classifyFSError(operation string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return domain.WrapError(domain.ErrNotFound, operation, err)
	case errors.Is(err, fs.ErrPermission):
		return domain.WrapError(domain.ErrForbidden, operation, err)
	default:
		return domain.WrapError(domain.ErrTransport, operation, err)
	}
}
