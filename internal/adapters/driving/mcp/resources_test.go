package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func TestParsePageImagesURI(t *testing.T) {
	tests := []struct {
		name   string
		uri    string
		fileID string
		page   int
		ok     bool
	}{
		{"valid", "searag://files/f_1/pages/3/images", "f_1", 3, true},
		{"wrong scheme", "other://files/f_1/pages/3/images", "", 0, false},
		{"missing suffix", "searag://files/f_1/pages/3", "", 0, false},
		{"page zero", "searag://files/f_1/pages/0/images", "", 0, false},
		{"page not a number", "searag://files/f_1/pages/x/images", "", 0, false},
		{"nested file id", "searag://files/a/b/pages/1/images", "", 0, false},
		{"empty", "", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fileID, page, ok := parsePageImagesURI(tt.uri)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.fileID, fileID)
			assert.Equal(t, tt.page, page)
		})
	}
}

func TestServer_handleFilesResource(t *testing.T) {
	ctx := context.Background()

	t.Run("lists files as JSON", func(t *testing.T) {
		files := &mockFileService{files: []domain.FileEntry{
			{ID: "f_1", Name: "manual.pdf", PageCount: 12, Status: domain.FileStatusReady},
		}}
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Files: files})
		require.NoError(t, err)

		res, err := server.handleFilesResource(ctx, readRequest("searag://files"))
		require.NoError(t, err)
		require.Len(t, res.Contents, 1)
		assert.Equal(t, "application/json", res.Contents[0].MIMEType)
		assert.Contains(t, res.Contents[0].Text, `"id": "f_1"`)
		assert.Contains(t, res.Contents[0].Text, `"status": "ready"`)
	})

	t.Run("no file service yields empty list", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}})
		require.NoError(t, err)

		res, err := server.handleFilesResource(ctx, readRequest("searag://files"))
		require.NoError(t, err)
		assert.Equal(t, "[]", res.Contents[0].Text)
	})

	t.Run("list error", func(t *testing.T) {
		files := &mockFileService{err: errors.New("disk gone")}
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Files: files})
		require.NoError(t, err)

		_, err = server.handleFilesResource(ctx, readRequest("searag://files"))
		assert.Error(t, err)
	})
}

func TestServer_handlePageImagesResource(t *testing.T) {
	ctx := context.Background()

	t.Run("lists page images", func(t *testing.T) {
		files := &mockFileService{images: []string{"page2_img1.png", "page2_img2.jpg"}}
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Files: files})
		require.NoError(t, err)

		res, err := server.handlePageImagesResource(ctx, readRequest("searag://files/f_1/pages/2/images"))
		require.NoError(t, err)
		assert.Equal(t, 2, files.page)
		assert.JSONEq(t, `["page2_img1.png","page2_img2.jpg"]`, res.Contents[0].Text)
	})

	t.Run("malformed uri", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Files: &mockFileService{}})
		require.NoError(t, err)

		_, err = server.handlePageImagesResource(ctx, readRequest("searag://files/f_1"))
		assert.Error(t, err)
	})
}
