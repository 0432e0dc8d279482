// -------------------------------------------------------------------------------
// Models - Song Documents and File References
//
// Project: KCloud / Author: Alex Freidah
//
// Domain types shared by the record store, the object store adapter, and the
// lifecycle manager. A Song document embeds FileRef metadata for its blobs; the
// blobs themselves live in the object store under generated keys.
// -------------------------------------------------------------------------------

package storage

import (
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// -------------------------------------------------------------------------
// DOCUMENTS
// -------------------------------------------------------------------------

// FileRef describes a blob stored in the object store. It is embedded in a
// Song document, never stored as its own collection. FileName is the object
// store key, generated at upload time; it is never derived from the
// user-supplied filename.
type FileRef struct {
	FileName string `bson:"fileName" json:"fileName,omitempty"`
	Size     int64  `bson:"size" json:"size,omitempty"`
	Mimetype string `bson:"mimetype" json:"mimetype,omitempty"`
}

// Song is the primary entity. SongFile is required; Cover is either absent or
// a fully populated FileRef. AccountID is set at creation and never mutated.
type Song struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Name      string             `bson:"name,omitempty" json:"name,omitempty"`
	Genres    []string           `bson:"genres,omitempty" json:"genres,omitempty"`
	Artists   []string           `bson:"artists,omitempty" json:"artists,omitempty"`
	Albums    []string           `bson:"albums,omitempty" json:"albums,omitempty"`
	SongFile  *FileRef           `bson:"songFile,omitempty" json:"songFile,omitempty"`
	Cover     *FileRef           `bson:"cover,omitempty" json:"cover,omitempty"`
	AccountID string             `bson:"accountId,omitempty" json:"accountId,omitempty"`
	CreatedAt time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt time.Time          `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// FileField names one of the two blob slots on a Song.
type FileField string

const (
	FieldSongFile FileField = "songFile"
	FieldCover    FileField = "cover"
)

// Display returns a copy restricted to the fields in DisplayProjection, for
// responses built from a full document.
func (s *Song) Display() *Song {
	return &Song{
		ID:        s.ID,
		Name:      s.Name,
		Genres:    s.Genres,
		Artists:   s.Artists,
		Albums:    s.Albums,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// Ref returns the FileRef stored in the named slot, or nil.
func (s *Song) Ref(field FileField) *FileRef {
	switch field {
	case FieldSongFile:
		return s.SongFile
	case FieldCover:
		return s.Cover
	default:
		return nil
	}
}

// -------------------------------------------------------------------------
// PROJECTIONS
// -------------------------------------------------------------------------

// DisplayProjection whitelists the fields exposed to API clients. Storage
// keys (songFile, cover) and the owner accountId stay internal; clients reach
// the blobs only through signed URLs or the download endpoint.
var DisplayProjection = bson.D{
	{Key: "_id", Value: 1},
	{Key: "name", Value: 1},
	{Key: "genres", Value: 1},
	{Key: "artists", Value: 1},
	{Key: "albums", Value: 1},
	{Key: "createdAt", Value: 1},
	{Key: "updatedAt", Value: 1},
}

// -------------------------------------------------------------------------
// UPLOADS AND DOWNLOADS
// -------------------------------------------------------------------------

// UploadFile is an in-memory file received from a multipart request. Name is
// the client-supplied filename, used only to derive the extension of the
// generated object key.
type UploadFile struct {
	Field    FileField
	Name     string
	Mimetype string
	Size     int64
	Body     io.Reader
}

// DownloadResult holds a blob streamed out of the object store.
type DownloadResult struct {
	Body     io.ReadCloser
	Size     int64
	Mimetype string
}
