package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/logger"
)

const defaultSearchK = 5

type handler struct {
	ports   Ports
	version string
}

func (h *handler) requireChat(c *gin.Context)   { h.require(c, h.ports.Chat != nil, "chat") }
func (h *handler) requireIngest(c *gin.Context) { h.require(c, h.ports.Ingest != nil, "ingestion") }
func (h *handler) requireFiles(c *gin.Context)  { h.require(c, h.ports.Files != nil, "file") }
func (h *handler) requireSearch(c *gin.Context) { h.require(c, h.ports.Search != nil, "search") }

func (h *handler) require(c *gin.Context, ok bool, name string) {
	if !ok {
		respondError(c, http.StatusServiceUnavailable, "UNAVAILABLE", name+" service not configured")
		return
	}
	c.Next()
}

// bindJSON decodes an optional JSON body. An empty body leaves dst as is.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return false
	}
	return true
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "version": h.version})
}

// Chat

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	PDFFileID string `json:"pdfFileId"`
}

func (h *handler) chat(c *gin.Context) {
	var req chatRequest
	if !bindJSON(c, &req) {
		return
	}

	w := newSSEWriter(c.Writer)
	err := h.ports.Chat.Chat(c.Request.Context(), domain.ChatRequest{
		Message:   req.Message,
		SessionID: strings.TrimSpace(req.SessionID),
		FileID:    strings.TrimSpace(req.PDFFileID),
	}, w.Emit)
	if err == nil {
		return
	}
	if !w.started {
		respondErr(c, err, "CHAT_ERROR")
		return
	}
	// The stream already carries its terminal event, or the client left.
	logger.Debug("chat stream stopped: %v", err)
}

type clearRequest struct {
	SessionID string `json:"sessionId"`
}

func (h *handler) clearChat(c *gin.Context) {
	var req clearRequest
	if !bindJSON(c, &req) {
		return
	}
	sid := strings.TrimSpace(req.SessionID)
	if sid == "" {
		sid = domain.DefaultSessionID
	}
	if err := h.ports.Chat.ClearSession(c.Request.Context(), sid); err != nil {
		respondErr(c, err, "CLEAR_FAIL")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "sessionId": sid, "cleared": true})
}

type queryRequest struct {
	Question string `json:"question"`
	FileID   string `json:"fileId"`
}

func (h *handler) query(c *gin.Context) {
	var req queryRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		respondError(c, http.StatusBadRequest, "EMPTY_QUESTION", "question must not be empty")
		return
	}

	answer, err := h.ports.Chat.Query(c.Request.Context(), req.Question, strings.TrimSpace(req.FileID))
	if err != nil {
		respondErr(c, err, "QUERY_ERROR")
		return
	}
	if answer.Citations == nil {
		answer.Citations = []domain.Citation{}
	}
	c.JSON(http.StatusOK, answer)
}

// PDF

func (h *handler) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "NO_FILE", "missing multipart field \"file\"")
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondErr(c, err, "UPLOAD_FAIL")
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		respondErr(c, err, "UPLOAD_FAIL")
		return
	}

	meta, err := h.ports.Ingest.Upload(c.Request.Context(), fh.Filename, content)
	if err != nil {
		respondErr(c, err, "UPLOAD_FAIL")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"fileId": meta.ID,
		"name":   meta.OriginalFilename,
		"pages":  meta.PageCount,
	})
}

type parseRequest struct {
	FileID string `json:"fileId"`
}

func (h *handler) parse(c *gin.Context) {
	var req parseRequest
	if !bindJSON(c, &req) {
		return
	}

	// The job outlives the request; IngestService runs it on its own context.
	job, err := h.ports.Ingest.StartParse(c.Request.Context(), req.FileID)
	if err != nil {
		respondErr(c, err, "PARSE_FAIL")
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobId": job.ID, "fileId": job.FileID, "status": "started"})
}

func (h *handler) status(c *gin.Context) {
	job, err := h.ports.Ingest.Status(c.Request.Context(), c.Query("fileId"))
	switch {
	case errors.Is(err, domain.ErrNoFileID), errors.Is(err, domain.ErrNotFound):
		resp := gin.H{"status": domain.JobStatusIdle, "progress": 0}
		if id := c.Query("fileId"); id != "" {
			resp["fileId"] = id
		}
		c.JSON(http.StatusOK, resp)
		return
	case err != nil:
		respondErr(c, err, "STATUS_FAIL")
		return
	}

	resp := gin.H{"fileId": job.FileID, "status": job.Status, "progress": job.Progress}
	if job.Error != "" {
		resp["errorMsg"] = job.Error
	}
	c.JSON(http.StatusOK, resp)
}

func pageParam(c *gin.Context) (int, bool) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		respondError(c, http.StatusBadRequest, "INVALID_PAGE", "page must be an integer >= 1")
		return 0, false
	}
	return page, true
}

func (h *handler) page(c *gin.Context) {
	fileID := c.Query("fileId")
	if fileID == "" {
		respondError(c, http.StatusBadRequest, "NO_FILE_ID", "fileId is required")
		return
	}
	page, ok := pageParam(c)
	if !ok {
		return
	}
	// Both "original" and "parsed" previews render the original page.
	png, err := h.ports.Files.RenderPage(c.Request.Context(), fileID, page)
	if err != nil {
		respondErr(c, err, "RENDER_ERROR")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *handler) pageImages(c *gin.Context) {
	fileID := c.Query("fileId")
	if fileID == "" {
		respondError(c, http.StatusBadRequest, "NO_FILE_ID", "fileId is required")
		return
	}
	page, ok := pageParam(c)
	if !ok {
		return
	}
	images, err := h.ports.Files.PageImages(c.Request.Context(), fileID, page)
	if err != nil {
		respondErr(c, err, "LIST_IMAGES_FAIL")
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

func (h *handler) image(c *gin.Context) {
	path, err := h.ports.Files.ImagePath(c.Request.Context(), c.Query("fileId"), c.Query("imagePath"))
	if err != nil {
		respondErr(c, err, "IMAGE_FAIL")
		return
	}
	c.File(path)
}

// Index

type buildRequest struct {
	FileID string `json:"fileId"`
}

func (h *handler) buildIndex(c *gin.Context) {
	var req buildRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.ports.Ingest.BuildIndex(c.Request.Context(), req.FileID)
	if err != nil {
		respondErr(c, err, "INDEX_BUILD_FAIL")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "chunks": res.Chunks, "indexPath": res.IndexPath})
}

type searchRequest struct {
	FileID string `json:"fileId"`
	Query  string `json:"query"`
	K      int    `json:"k"`
}

type searchResult struct {
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata searchMetadata `json:"metadata"`
}

type searchMetadata struct {
	FileID  string `json:"file_id"`
	Source  string `json:"source"`
	Page    int    `json:"page"`
	ChunkID string `json:"chunk_id"`
}

func (h *handler) search(c *gin.Context) {
	var req searchRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(c, http.StatusBadRequest, "EMPTY_QUERY", "query must not be empty")
		return
	}
	if req.K <= 0 {
		req.K = defaultSearchK
	}

	hits, err := h.ports.Search.Search(c.Request.Context(), req.Query, req.K,
		domain.SearchFilter{SourceID: strings.TrimSpace(req.FileID)})
	if err != nil {
		respondErr(c, err, "INDEX_SEARCH_FAIL")
		return
	}

	results := make([]searchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, searchResult{
			Text:  hit.Chunk.Content,
			Score: hit.Score,
			Metadata: searchMetadata{
				FileID:  hit.Chunk.SourceID,
				Source:  hit.Chunk.SourceName,
				Page:    hit.Chunk.Page,
				ChunkID: hit.Chunk.ID,
			},
		})
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "results": results})
}

// Files

func (h *handler) listFiles(c *gin.Context) {
	files, err := h.ports.Files.List(c.Request.Context())
	if err != nil {
		respondErr(c, err, "LIST_FAIL")
		return
	}
	if files == nil {
		files = []domain.FileEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (h *handler) deleteFile(c *gin.Context) {
	fileID := c.Param("fileId")
	if err := h.ports.Files.Delete(c.Request.Context(), fileID); err != nil {
		respondErr(c, err, "DELETE_FAIL")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "fileId": fileID})
}
