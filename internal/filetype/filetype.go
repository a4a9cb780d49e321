// Package filetype maps attachment extensions to their backend handling.
package filetype

import (
	"fmt"
	"path/filepath"
	"strings"

	appErr "github.com/xxxsen/gemchat/internal/pkg/errors"
)

// Type describes how one attachment extension is handled: the mime type
// reported to the backend, and whether the content is inlined as extracted
// text instead of uploaded.
type Type struct {
	Mime   string
	Inline bool
}

var supported = map[string]Type{
	".pdf":  {Mime: "application/pdf"},
	".doc":  {Mime: "application/msword"},
	".docx": {Mime: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", Inline: true},
	".xls":  {Mime: "application/vnd.ms-excel"},
	".xlsx": {Mime: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	".ppt":  {Mime: "application/vnd.ms-powerpoint"},
	".pptx": {Mime: "application/vnd.openxmlformats-officedocument.presentationml.presentation"},
	".png":  {Mime: "image/png"},
	".jpg":  {Mime: "image/jpeg"},
	".jpeg": {Mime: "image/jpeg"},
	".webp": {Mime: "image/webp"},
	".heic": {Mime: "image/heic"},
	".heif": {Mime: "image/heif"},
}

// Lookup resolves handling for a path by its extension, case-insensitive.
func Lookup(path string) (Type, error) {
	ext := strings.ToLower(filepath.Ext(path))
	t, ok := supported[ext]
	if !ok {
		return Type{}, fmt.Errorf("%w: %q", appErr.ErrUnsupportedFile, ext)
	}
	return t, nil
}
