package storage

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

const (
	resumePrefix  = "resume-uploads/"
	previewPrefix = "thumbnails/portfolio/"
)

// ResumeObjectKey 生成简历原件的对象键：resume-uploads/<uid>/<uuid><ext>。
func ResumeObjectKey(userID uint, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) > 10 || strings.ContainsAny(ext, " ?#%") {
		ext = ""
	}
	return fmt.Sprintf("%s%d/%s%s", resumePrefix, userID, uuid.NewString(), ext)
}

// PreviewObjectKey 返回作品集预览图的对象键。
func PreviewObjectKey(portfolioID uint) string {
	return fmt.Sprintf("%s%d/preview.jpg", previewPrefix, portfolioID)
}
