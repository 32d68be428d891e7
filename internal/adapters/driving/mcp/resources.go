package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const uriScheme = "searag://"

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "files",
		Name:        "files",
		Description: "Uploaded documents with their page counts and parse status",
		MIMEType:    "application/json",
	}, s.handleFilesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "files/{fileId}/pages/{page}/images",
		Name:        "page-images",
		Description: "Images extracted from one page of a document",
		MIMEType:    "application/json",
	}, s.handlePageImagesResource)
}

func (s *Server) handleFilesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Files == nil {
		return jsonResult(req.Params.URI, []any{})
	}

	files, err := s.ports.Files.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	if files == nil {
		return jsonResult(req.Params.URI, []any{})
	}
	return jsonResult(req.Params.URI, files)
}

func (s *Server) handlePageImagesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Files == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	fileID, page, ok := parsePageImagesURI(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	images, err := s.ports.Files.PageImages(ctx, fileID, page)
	if err != nil {
		return nil, fmt.Errorf("listing page images: %w", err)
	}
	return jsonResult(req.Params.URI, images)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// parsePageImagesURI splits searag://files/{fileId}/pages/{page}/images.
func parsePageImagesURI(uri string) (string, int, bool) {
	rest, ok := strings.CutPrefix(uri, uriScheme+"files/")
	if !ok {
		return "", 0, false
	}
	rest, ok = strings.CutSuffix(rest, "/images")
	if !ok {
		return "", 0, false
	}
	fileID, pageStr, ok := strings.Cut(rest, "/pages/")
	if !ok || fileID == "" || strings.Contains(fileID, "/") {
		return "", 0, false
	}
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		return "", 0, false
	}
	return fileID, page, true
}
