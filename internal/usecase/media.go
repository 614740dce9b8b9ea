package usecase

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"tunechat/internal/domain/entity"
)

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".m4v":  {},
	".webm": {},
	".mkv":  {},
	".avi":  {},
	".3gp":  {},
}

// ClassifyMedia picks the message type for a media send. More than one file is
// always an image grid; a single file is a video when it looks like one.
func ClassifyMedia(files []entity.LocalFile, kind MediaKind) entity.MessageType {
	if kind == MediaAudio {
		return entity.MessageTypeAudio
	}
	if len(files) > 1 {
		return entity.MessageTypeImageGrid
	}
	if len(files) == 1 && isVideo(files[0]) {
		return entity.MessageTypeVideo
	}
	return entity.MessageTypeImage
}

func isVideo(f entity.LocalFile) bool {
	if _, ok := videoExtensions[strings.ToLower(filepath.Ext(f.Name))]; ok {
		return true
	}
	return strings.HasPrefix(detectContentType(f), "video/")
}

// detectContentType trusts a declared content type, otherwise sniffs the head
// of the file.
func detectContentType(f entity.LocalFile) string {
	if f.ContentType != "" {
		return f.ContentType
	}
	if f.Open == nil {
		return "application/octet-stream"
	}
	r, err := f.Open()
	if err != nil {
		return "application/octet-stream"
	}
	defer r.Close()

	mtype, err := mimetype.DetectReader(io.LimitReader(r, 3072))
	if err != nil {
		return "application/octet-stream"
	}
	return mtype.String()
}
