// -------------------------------------------------------------------------------
// Handlers - Song API Endpoints
//
// Project: KCloud / Author: Alex Freidah
//
// HTTP handlers for the song CRUD surface. Handlers only parse, validate and
// serialize; all cross-store sequencing lives in the lifecycle manager.
// -------------------------------------------------------------------------------

package server

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nestorara/kcloud-music-api/internal/faults"
	"github.com/nestorara/kcloud-music-api/internal/storage"
	"github.com/nestorara/kcloud-music-api/internal/validate"
)

// Multipart field names. The audio upload arrives in the "song" form field
// even though the stored reference is called songFile.
const (
	fieldName    = "name"
	fieldGenres  = "genres"
	fieldArtists = "artists"
	fieldAlbums  = "albums"
	fieldAccount = "accountId"
	fieldSong    = "song"
	fieldCover   = "cover"
)

// -------------------------------------------------------------------------
// READ
// -------------------------------------------------------------------------

func (s *Server) handleList(c *gin.Context) {
	songs, err := s.manager.ListSongs(c.Request.Context())
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, songs)
}

func (s *Server) handleGet(c *gin.Context) {
	id, err := validate.ValidateID(c.Param("id"))
	if err != nil {
		writeFault(c, err)
		return
	}

	song, err := s.manager.GetSong(c.Request.Context(), id)
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, song)
}

// -------------------------------------------------------------------------
// CREATE
// -------------------------------------------------------------------------

func (s *Server) handleCreate(c *gin.Context) {
	form, err := s.multipartForm(c)
	if err != nil {
		writeFault(c, err)
		return
	}

	audioFiles := form.File[fieldSong]
	coverFiles := form.File[fieldCover]

	if err := validate.Collect(
		validate.ValidateName(c.PostForm(fieldName), true),
		validate.ValidateAccountID(c.PostForm(fieldAccount)),
		validate.ValidateFileField(audioFiles, fieldSong, true),
		validate.ValidateFileField(coverFiles, fieldCover, false),
	); err != nil {
		writeFault(c, err)
		return
	}

	in := &storage.SongInput{
		Name:      c.PostForm(fieldName),
		Genres:    validate.SplitList(c.PostForm(fieldGenres)),
		Artists:   validate.SplitList(c.PostForm(fieldArtists)),
		Albums:    validate.SplitList(c.PostForm(fieldAlbums)),
		AccountID: c.PostForm(fieldAccount),
	}

	in.SongFile, err = openUpload(audioFiles[0], storage.FieldSongFile, validate.ClassAudio)
	if err != nil {
		writeFault(c, err)
		return
	}
	defer closeUpload(in.SongFile)

	if len(coverFiles) == 1 {
		in.Cover, err = openUpload(coverFiles[0], storage.FieldCover, validate.ClassImage)
		if err != nil {
			writeFault(c, err)
			return
		}
		defer closeUpload(in.Cover)
	}

	song, err := s.manager.CreateSong(c.Request.Context(), in)
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, song)
}

// -------------------------------------------------------------------------
// UPDATE
// -------------------------------------------------------------------------

func (s *Server) handleUpdate(c *gin.Context) {
	id, err := validate.ValidateID(c.Param("id"))
	if err != nil {
		writeFault(c, err)
		return
	}

	in := &storage.SongInput{}

	// A PATCH without a parseable multipart body is an empty update; the
	// manager rejects it with the proper validation fault.
	form, err := s.multipartForm(c)
	if err != nil {
		if faults.IsKind(err, faults.FileSizeLimit) {
			writeFault(c, err)
			return
		}
	} else {
		if err := validate.Collect(
			validate.ValidateName(c.PostForm(fieldName), false),
			validate.ValidateFileField(form.File[fieldCover], fieldCover, false),
		); err != nil {
			writeFault(c, err)
			return
		}

		in.Name = c.PostForm(fieldName)
		in.Genres = validate.SplitList(c.PostForm(fieldGenres))
		in.Artists = validate.SplitList(c.PostForm(fieldArtists))
		in.Albums = validate.SplitList(c.PostForm(fieldAlbums))

		if coverFiles := form.File[fieldCover]; len(coverFiles) == 1 {
			in.Cover, err = openUpload(coverFiles[0], storage.FieldCover, validate.ClassImage)
			if err != nil {
				writeFault(c, err)
				return
			}
			defer closeUpload(in.Cover)
		}
	}

	song, warnings, err := s.manager.UpdateSong(c.Request.Context(), id, in)
	if err != nil {
		writeFault(c, err)
		return
	}
	writeSuccess(c, successBody{
		Message:  "song updated successfully",
		Song:     song,
		Warnings: warnings,
	})
}

// -------------------------------------------------------------------------
// DELETE
// -------------------------------------------------------------------------

func (s *Server) handleDelete(c *gin.Context) {
	id, err := validate.ValidateID(c.Param("id"))
	if err != nil {
		writeFault(c, err)
		return
	}

	song, warnings, err := s.manager.DeleteSong(c.Request.Context(), id)
	if err != nil {
		writeFault(c, err)
		return
	}
	writeSuccess(c, successBody{
		Message:  "song deleted successfully",
		Song:     song.Display(),
		Warnings: warnings,
	})
}

// -------------------------------------------------------------------------
// FILE ACCESS
// -------------------------------------------------------------------------

func (s *Server) handleFileURL(c *gin.Context) {
	id, field, err := fileParams(c)
	if err != nil {
		writeFault(c, err)
		return
	}

	url, err := s.manager.FileURL(c.Request.Context(), id, field)
	if err != nil {
		writeFault(c, err)
		return
	}
	writeSuccess(c, successBody{
		Message: "url generated successfully",
		URL:     url,
	})
}

func (s *Server) handleDownload(c *gin.Context) {
	id, field, err := fileParams(c)
	if err != nil {
		writeFault(c, err)
		return
	}

	song, result, err := s.manager.DownloadFile(c.Request.Context(), id, field)
	if err != nil {
		writeFault(c, err)
		return
	}
	defer result.Body.Close()

	// The record's stored mimetype names the extension; the backend may only
	// report a generic octet-stream.
	mimetype := result.Mimetype
	if ref := song.Ref(field); ref != nil && ref.Mimetype != "" {
		mimetype = ref.Mimetype
	}
	filename := validate.DownloadFilename(song.Name, mimetype)
	c.DataFromReader(http.StatusOK, result.Size, result.Mimetype, result.Body, map[string]string{
		"Content-Disposition": `attachment; filename="` + filename + `"`,
	})
}

// -------------------------------------------------------------------------
// PARSING HELPERS
// -------------------------------------------------------------------------

// multipartForm parses the request body under the configured size cap.
// Exceeding the cap is a FileSizeLimit fault; any other parse failure is a
// validation fault.
func (s *Server) multipartForm(c *gin.Context) (*multipart.Form, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadSize)

	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, faults.Newf(faults.FileSizeLimit,
				"the request body exceeds the %d byte upload limit", maxErr.Limit)
		}
		return nil, faults.New(faults.ValidationData, "the request body is not valid multipart form data")
	}
	return form, nil
}

// fileParams parses the :id and :field route parameters shared by the URL
// and download routes.
func fileParams(c *gin.Context) (primitive.ObjectID, storage.FileField, error) {
	id, err := validate.ValidateID(c.Param("id"))
	if err != nil {
		return primitive.NilObjectID, "", err
	}

	switch field := c.Param("field"); field {
	case string(storage.FieldSongFile):
		return id, storage.FieldSongFile, nil
	case string(storage.FieldCover):
		return id, storage.FieldCover, nil
	default:
		return primitive.NilObjectID, "", faults.Newf(faults.ValidationData,
			"the file field %q is not valid, expected %q or %q",
			field, storage.FieldSongFile, storage.FieldCover)
	}
}

// openUpload validates a multipart file's type and opens it for streaming.
func openUpload(fh *multipart.FileHeader, field storage.FileField, class validate.FileClass) (*storage.UploadFile, error) {
	mimetype := fh.Header.Get("Content-Type")
	if err := validate.ValidateFileType(class, fh.Filename, mimetype); err != nil {
		return nil, err
	}

	file, err := fh.Open()
	if err != nil {
		return nil, faults.Wrap(faults.NotReadable, err, "the uploaded file could not be read")
	}

	return &storage.UploadFile{
		Field:    field,
		Name:     fh.Filename,
		Mimetype: mimetype,
		Size:     fh.Size,
		Body:     file,
	}, nil
}

// closeUpload releases the multipart temp file if the body is closeable.
func closeUpload(f *storage.UploadFile) {
	if closer, ok := f.Body.(io.Closer); ok {
		closer.Close()
	}
}
