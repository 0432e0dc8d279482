// -------------------------------------------------------------------------------
// Validate - Request and File Validation
//
// Project: KCloud / Author: Alex Freidah
//
// Input validation for song requests: identifier syntax, multipart field
// shape, and file type allow-lists. A file passes only when both its declared
// mimetype is allow-listed and its extension is one the mimetype maps to, so
// a PNG named track.mp3 is rejected in either direction.
// -------------------------------------------------------------------------------

package validate

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nestorara/kcloud-music-api/internal/faults"
)

// -------------------------------------------------------------------------
// ALLOW-LISTS
// -------------------------------------------------------------------------

// audioTypes maps accepted audio mimetypes to their valid extensions. The
// first extension is the canonical one used for download filenames.
var audioTypes = map[string][]string{
	"audio/mpeg":  {".mp3"},
	"audio/wav":   {".wav"},
	"audio/x-wav": {".wav"},
	"audio/ogg":   {".ogg"},
	"audio/flac":  {".flac"},
	"audio/mp4":   {".m4a", ".mp4"},
	"audio/aac":   {".aac"},
}

// imageTypes maps accepted cover mimetypes to their valid extensions.
var imageTypes = map[string][]string{
	"image/png":  {".png"},
	"image/jpeg": {".jpg", ".jpeg"},
	"image/webp": {".webp"},
	"image/gif":  {".gif"},
}

// FileClass selects which allow-list applies to a file.
type FileClass int

const (
	ClassAudio FileClass = iota
	ClassImage
)

func (c FileClass) table() map[string][]string {
	if c == ClassAudio {
		return audioTypes
	}
	return imageTypes
}

func (c FileClass) String() string {
	if c == ClassAudio {
		return "audio"
	}
	return "image"
}

// -------------------------------------------------------------------------
// VALIDATORS
// -------------------------------------------------------------------------

// ValidateID parses a song identifier, rejecting malformed hex with a
// validation fault rather than a not-found.
func ValidateID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, faults.Newf(faults.ValidationData,
			"the id %q is not a valid identifier", id).In("song")
	}
	return oid, nil
}

// ValidateFileType checks a file's declared mimetype and extension against
// the class allow-list. Both must agree: an allow-listed mimetype with a
// mismatched extension fails, and vice versa.
func ValidateFileType(class FileClass, fileName, mimetype string) error {
	exts, ok := class.table()[strings.ToLower(mimetype)]
	if !ok {
		return faults.Newf(faults.UnsupportedFileType,
			"the file type %q is not a supported %s type", mimetype, class)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	for _, allowed := range exts {
		if ext == allowed {
			return nil
		}
	}
	return faults.Newf(faults.UnsupportedFileType,
		"the file extension %q does not match the declared type %q", ext, mimetype)
}

// ValidateFileField checks the multipart shape of one file field: required
// fields must carry exactly one file, optional fields zero or one. Exactly
// one is the only accepted plural count; duplicates are a distinct fault so
// clients can tell "missing" from "sent twice".
func ValidateFileField(files []*multipart.FileHeader, field string, required bool) error {
	switch {
	case len(files) > 1:
		return faults.Newf(faults.DuplicateFields,
			"the field %q must contain a single file, got %d", field, len(files))
	case len(files) == 0 && required:
		return faults.Newf(faults.MissingParameter,
			"the field %q is required", field)
	case len(files) == 1 && (files[0].Filename == "" || files[0].Size <= 0):
		return faults.Newf(faults.ValidationData,
			"the field %q does not contain a well-formed file", field)
	default:
		return nil
	}
}

// ValidateName checks the song name constraint shared by create and update.
func ValidateName(name string, required bool) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		if required {
			return faults.New(faults.ValidationData, "the field \"name\" is required").In("song")
		}
		return nil
	}
	if len(trimmed) > 200 {
		return faults.New(faults.ValidationData, "the field \"name\" must be at most 200 characters").In("song")
	}
	return nil
}

// ValidateAccountID checks the owner identifier, required when creating a
// song. Updates never carry it; ownership is set once.
func ValidateAccountID(account string) error {
	if strings.TrimSpace(account) == "" {
		return faults.New(faults.ValidationData, "the field \"accountId\" is required").In("song")
	}
	return nil
}

// Collect merges validation faults into a single ValidationData fault whose
// Messages carries every individual problem, or returns nil when all checks
// passed. A non-validation fault (e.g. UnsupportedFileType) short-circuits
// and is returned as-is.
func Collect(errs ...error) error {
	var messages []string
	for _, err := range errs {
		if err == nil {
			continue
		}
		switch faults.KindOf(err) {
		case faults.ValidationData, faults.MissingParameter:
			messages = append(messages, faults.From(err).Message)
		default:
			return err
		}
	}
	if len(messages) == 0 {
		return nil
	}
	return faults.Validation(messages...)
}

// -------------------------------------------------------------------------
// HELPERS
// -------------------------------------------------------------------------

// ExtensionFor returns the canonical file extension for a stored mimetype,
// used to build download filenames. Unknown mimetypes yield an empty string.
func ExtensionFor(mimetype string) string {
	mt := strings.ToLower(mimetype)
	if exts, ok := audioTypes[mt]; ok {
		return exts[0]
	}
	if exts, ok := imageTypes[mt]; ok {
		return exts[0]
	}
	return ""
}

// SplitList splits a comma-separated form value into trimmed, non-empty
// entries. Returns nil for an absent value so callers can distinguish "not
// provided" from "provided empty".
func SplitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// DownloadFilename builds the attachment filename for a blob download from
// the song name and the stored mimetype.
func DownloadFilename(songName, mimetype string) string {
	return fmt.Sprintf("%s%s", songName, ExtensionFor(mimetype))
}
