package controllers

import (
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/inkwell/models"
	"github.com/cppla/inkwell/utils"
)

// UploadURLPrefix is the public path files under the upload dir are served from.
const UploadURLPrefix = "/uploads"

var allowedUploadTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// UploadController stores media for posts on local disk.
type UploadController struct {
	db       *gorm.DB
	dir      string
	maxBytes int64
	now      func() time.Time
	logger   *zap.Logger
}

func NewUploadController(db *gorm.DB, dir string, maxBytes int64, logger *zap.Logger) *UploadController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadController{db: db, dir: dir, maxBytes: maxBytes, now: time.Now, logger: logger}
}

// Upload accepts one multipart file under "file", sniffs its type and stores it as
// <dir>/YYYY/MM/<uuid><ext>.
func (u *UploadController) Upload(ctx *gin.Context) {
	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "no file uploaded")
		return
	}
	defer file.Close()

	if header.Size > u.maxBytes {
		utils.Reject(ctx, http.StatusBadRequest, 40032, "FILE_TOO_LARGE", "file is too large", gin.H{"max_bytes": u.maxBytes})
		return
	}

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "unreadable file")
		return
	}
	mime := strings.SplitN(mtype.String(), ";", 2)[0]
	if !allowedUploadTypes[mime] {
		utils.Reject(ctx, http.StatusBadRequest, 40033, "UNSUPPORTED_TYPE", "file type not allowed", gin.H{"type": mime})
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to read file")
		return
	}

	now := u.now()
	sub := path.Join(now.Format("2006"), now.Format("01"))
	baseDir := filepath.Join(u.dir, filepath.FromSlash(sub))
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		u.logger.Error("create upload directory failed", zap.String("dir", baseDir), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to create upload directory")
		return
	}
	name := uuid.NewString() + mtype.Extension()
	dst := filepath.Join(baseDir, name)

	out, err := os.Create(dst)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to save file")
		return
	}
	written, err := io.Copy(out, &io.LimitedReader{R: file, N: u.maxBytes + 1})
	closeErr := out.Close()
	if err != nil || closeErr != nil {
		_ = os.Remove(dst)
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to write file")
		return
	}
	if written > u.maxBytes {
		_ = os.Remove(dst)
		utils.Reject(ctx, http.StatusBadRequest, 40032, "FILE_TOO_LARGE", "file is too large", gin.H{"max_bytes": u.maxBytes})
		return
	}

	record := models.UploadedFile{
		FilePath: dst,
		URL:      path.Join(UploadURLPrefix, sub, name),
		Filename: filepath.Base(header.Filename),
		Size:     written,
		MimeType: mime,
	}
	if err := u.db.WithContext(ctx.Request.Context()).Create(&record).Error; err != nil {
		_ = os.Remove(dst)
		u.logger.Error("record upload failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to record upload")
		return
	}
	u.logger.Info("file uploaded", zap.String("url", record.URL), zap.Int64("size", written), zap.String("type", mime))
	utils.Success(ctx, record)
}
