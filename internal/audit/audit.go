// Package audit appends access-control events to the audit trail.
// Writes are best-effort: a failed insert is logged and swallowed so the
// request that triggered it still completes.
package audit

import (
	"net/http"

	"github.com/algasur/algatrack/httpx"
	"github.com/algasur/algatrack/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Recorder struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewRecorder(db *gorm.DB, log *zap.Logger) *Recorder {
	return &Recorder{db: db, log: log}
}

// Record appends one audit entry. userID may be nil (failed login against
// an unknown username).
func (rec *Recorder) Record(r *http.Request, userID *uint, accessType, detail string) {
	entry := models.AccessLog{
		UserID:     userID,
		SourceIP:   httpx.ClientIP(r),
		AccessType: accessType,
		Detail:     detail,
	}
	if err := rec.db.WithContext(r.Context()).Create(&entry).Error; err != nil {
		rec.log.Warn("audit write failed",
			zap.String("access_type", accessType),
			zap.String("detail", detail),
			zap.Error(err))
	}
}

// RecordUser is Record with a concrete user id.
func (rec *Recorder) RecordUser(r *http.Request, userID uint, accessType, detail string) {
	rec.Record(r, &userID, accessType, detail)
}
