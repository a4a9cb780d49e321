package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/gemchat/internal/repo"
)

// UploadCleanupJob removes uploaded_file rows past the vendor's retention
// window. Lookups already skip expired rows, so this only reclaims storage.
type UploadCleanupJob struct {
	uploads *repo.UploadedFileRepo
}

func NewUploadCleanupJob(uploads *repo.UploadedFileRepo) *UploadCleanupJob {
	return &UploadCleanupJob{uploads: uploads}
}

func (j *UploadCleanupJob) Name() string {
	return "upload_cleanup"
}

func (j *UploadCleanupJob) Run(ctx context.Context) error {
	if j.uploads == nil {
		return nil
	}
	removed, err := j.uploads.DeleteExpired(ctx, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("expired uploads removed", zap.Int64("rows", removed))
	}
	return nil
}
