package api

import (
	"net/http"
	"time"

	"domex/api/internal/domain"
	"domex/api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FileHandler serves the file metadata registry.
type FileHandler struct {
	fileService service.FileService
	logger      *zap.Logger
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(fileService service.FileService, logger *zap.Logger) *FileHandler {
	return &FileHandler{fileService: fileService, logger: logger}
}

// --- DTOs for API ---

// CreateFileRequest is the metadata a client submits after a blob transfer.
// Required fields are checked by the service so that the error names all of them.
type CreateFileRequest struct {
	OwnerKey     string     `json:"ownerKey"`
	DisplayName  string     `json:"displayName"`
	OriginalName string     `json:"originalName"`
	StoredName   string     `json:"storedName"`
	SizeBytes    int64      `json:"sizeBytes" binding:"gte=0"`
	MimeType     string     `json:"mimeType"`
	StoragePath  string     `json:"storagePath"`
	FetchURL     string     `json:"fetchUrl"`
	UploadedAt   *time.Time `json:"uploadedAt"`
	Tags         []string   `json:"tags" binding:"omitempty,max=32,dive,max=64"`
	IsPublic     *bool      `json:"isPublic"`
}

// UpdateFileRequest carries the editable fields; absent fields are left unchanged.
type UpdateFileRequest struct {
	DisplayName *string   `json:"displayName" binding:"omitempty,max=255"`
	Tags        *[]string `json:"tags" binding:"omitempty,max=32,dive,max=64"`
	IsPublic    *bool     `json:"isPublic"`
}

// UploadURLRequest asks for a presigned direct upload.
type UploadURLRequest struct {
	OwnerKey  string `json:"ownerKey" binding:"required"`
	FileName  string `json:"fileName" binding:"required"`
	MimeType  string `json:"mimeType" binding:"required"`
	SizeBytes int64  `json:"sizeBytes" binding:"gte=0"`
}

// --- Handler Methods ---

// CreateFile godoc
// @Summary Register an uploaded file
// @Tags Files
// @Accept json
// @Produce json
// @Param file body CreateFileRequest true "File metadata"
// @Success 201 {object} gin.H "{success, id}"
// @Failure 400 {object} gin.H "Missing required fields"
// @Failure 409 {object} gin.H "Stored name already registered for owner"
// @Failure 503 {object} gin.H "Metadata store unavailable"
// @Router /files [post]
func (h *FileHandler) CreateFile(c *gin.Context) {
	var req CreateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	id, err := h.fileService.CreateFile(c.Request.Context(), service.CreateFileInput{
		OwnerKey:     req.OwnerKey,
		DisplayName:  req.DisplayName,
		OriginalName: req.OriginalName,
		StoredName:   req.StoredName,
		SizeBytes:    req.SizeBytes,
		MimeType:     req.MimeType,
		StoragePath:  req.StoragePath,
		FetchURL:     req.FetchURL,
		UploadedAt:   req.UploadedAt,
		Tags:         req.Tags,
		IsPublic:     req.IsPublic,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to save file information")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "id": id.Hex()})
}

// ListOwnerFiles godoc
// @Summary List an owner's active files, newest first
// @Tags Files
// @Produce json
// @Param ownerKey path string true "Owner key (domain id)"
// @Success 200 {object} gin.H "{success, files}"
// @Router /owners/{ownerKey}/files [get]
func (h *FileHandler) ListOwnerFiles(c *gin.Context) {
	files, err := h.fileService.ListOwnerFiles(c.Request.Context(), c.Param("ownerKey"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch files")
		return
	}
	if files == nil {
		files = []domain.FileRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "files": files})
}

// GetFile godoc
// @Summary Get one active file
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} gin.H "{success, file}"
// @Failure 400 {object} gin.H "Invalid file ID format"
// @Failure 404 {object} gin.H "File not found"
// @Router /files/{id} [get]
func (h *FileHandler) GetFile(c *gin.Context) {
	file, err := h.fileService.GetFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch file")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "file": file})
}

// UpdateFile godoc
// @Summary Edit display name, tags or visibility
// @Tags Files
// @Accept json
// @Produce json
// @Param id path string true "File ID"
// @Param file body UpdateFileRequest true "Fields to change"
// @Success 200 {object} gin.H "{success, file}"
// @Failure 400 {object} gin.H "No updatable fields"
// @Failure 404 {object} gin.H "File not found"
// @Router /files/{id} [put]
func (h *FileHandler) UpdateFile(c *gin.Context) {
	var req UpdateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	file, err := h.fileService.UpdateFile(c.Request.Context(), c.Param("id"), domain.FileUpdate{
		DisplayName: req.DisplayName,
		Tags:        req.Tags,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to update file")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "file": file})
}

// DeleteFile godoc
// @Summary Soft-delete a file
// @Description Marks the record inactive. Deleting twice answers 404.
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} gin.H "{success, message}"
// @Failure 404 {object} gin.H "File not found"
// @Router /files/{id} [delete]
func (h *FileHandler) DeleteFile(c *gin.Context) {
	if err := h.fileService.DeleteFile(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "Failed to delete file")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "File deleted"})
}

// GetStats godoc
// @Summary Aggregate over all active files
// @Tags Files
// @Produce json
// @Success 200 {object} gin.H "{success, stats}"
// @Router /files/stats [get]
func (h *FileHandler) GetStats(c *gin.Context) {
	stats, err := h.fileService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch file statistics")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

// RequestUploadURL godoc
// @Summary Presigned URL for a direct browser upload
// @Description Validates type and size, then returns where to PUT the bytes.
// @Tags Files
// @Accept json
// @Produce json
// @Param request body UploadURLRequest true "Declared file"
// @Success 200 {object} service.UploadURL
// @Failure 400 {object} gin.H "Type or size not allowed"
// @Router /files/upload-url [post]
func (h *FileHandler) RequestUploadURL(c *gin.Context) {
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	res, err := h.fileService.RequestUploadURL(c.Request.Context(), service.UploadURLRequest{
		OwnerKey:  req.OwnerKey,
		FileName:  req.FileName,
		MimeType:  req.MimeType,
		SizeBytes: req.SizeBytes,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to generate upload URL")
		return
	}
	c.JSON(http.StatusOK, res)
}
