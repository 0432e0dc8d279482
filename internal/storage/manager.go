// -------------------------------------------------------------------------------
// Manager - Song Lifecycle Orchestrator
//
// Project: KCloud / Author: Alex Freidah
//
// Coordinates the record store and the object store so the two stay as
// consistent as a non-transactional pair can be. The guiding rules:
//
//   - Create: blobs first, record last. A failed record insert after a
//     successful upload orphans the blob; that is logged and counted, never
//     silently repaired.
//   - Delete: record first, blobs best-effort. Once the record is gone the
//     blobs are unreachable, so cleanup failures downgrade to warnings on an
//     otherwise successful response.
//   - Update: the new cover lands before the old one is removed, so a failure
//     mid-way leaves the record pointing at a valid blob.
//
// Cleanup failures follow a fixed policy: a missing blob or an unknown error
// warns and continues; an unavailable or slow storage service fails the
// request, because retrying later can still succeed.
// -------------------------------------------------------------------------------

package storage

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/codes"

	"github.com/nestorara/kcloud-music-api/internal/config"
	"github.com/nestorara/kcloud-music-api/internal/faults"
	"github.com/nestorara/kcloud-music-api/internal/telemetry"
)

// -------------------------------------------------------------------------
// COLLABORATOR INTERFACES
// -------------------------------------------------------------------------

// URLCache caches signed download URLs keyed by object key. Implementations
// must be safe for concurrent use. A nil cache disables caching.
type URLCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, url string, ttl time.Duration)
}

// EventPublisher announces song lifecycle changes. Publishing is best-effort;
// failures are logged by implementations and never fail a request.
type EventPublisher interface {
	SongCreated(ctx context.Context, song *Song)
	SongUpdated(ctx context.Context, song *Song)
	SongDeleted(ctx context.Context, song *Song)
}

// -------------------------------------------------------------------------
// INPUT / OUTPUT TYPES
// -------------------------------------------------------------------------

// SongInput carries the parsed multipart fields for a create or update.
// Nil slice/pointer fields mean "not provided" on update.
type SongInput struct {
	Name      string
	Genres    []string
	Artists   []string
	Albums    []string
	AccountID string
	SongFile  *UploadFile
	Cover     *UploadFile
}

// Empty reports whether the input carries nothing to change.
func (in *SongInput) Empty() bool {
	return in.Name == "" &&
		in.Genres == nil && in.Artists == nil && in.Albums == nil &&
		in.SongFile == nil && in.Cover == nil
}

// Warning describes a non-fatal problem attached to an otherwise successful
// operation, such as a blob that could not be cleaned up.
type Warning struct {
	Code    string `json:"errorCode"`
	Message string `json:"message"`
}

// -------------------------------------------------------------------------
// MANAGER
// -------------------------------------------------------------------------

// Manager orchestrates song lifecycle operations across both stores.
type Manager struct {
	store   SongStore
	backend ObjectBackend
	cache   URLCache
	events  EventPublisher
	cfg     config.BucketConfig
}

// NewManager wires the collaborators. cache and events may be nil.
func NewManager(store SongStore, backend ObjectBackend, cache URLCache, events EventPublisher, cfg config.BucketConfig) *Manager {
	return &Manager{
		store:   store,
		backend: backend,
		cache:   cache,
		events:  events,
		cfg:     cfg,
	}
}

// -------------------------------------------------------------------------
// READ OPERATIONS
// -------------------------------------------------------------------------

// ListSongs returns all songs in display projection. The projection excludes
// blob references; clients fetch those through the URL and download routes.
func (m *Manager) ListSongs(ctx context.Context) ([]Song, error) {
	const operation = "ListSongs"
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "Manager "+operation)
	defer span.End()

	songs, err := m.store.Find(ctx, nil, DisplayProjection)
	m.recordOperation(operation, start, err)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return songs, nil
}

// GetSong returns one song in display projection.
func (m *Manager) GetSong(ctx context.Context, id primitive.ObjectID) (*Song, error) {
	const operation = "GetSong"
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "Manager "+operation,
		telemetry.AttrSongID.String(id.Hex()),
	)
	defer span.End()

	song, err := m.store.FindByID(ctx, id, DisplayProjection)
	m.recordOperation(operation, start, err)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return song, nil
}

// -------------------------------------------------------------------------
// CREATE
// -------------------------------------------------------------------------

// CreateSong uploads the audio blob, then the optional cover, then inserts
// the record, and returns the stored song in display projection. Any upload
// failure is fatal. If the cover upload or the insert fails after earlier
// uploads succeeded, the already-stored blobs are orphaned; they are logged
// and counted for offline reconciliation, not deleted inline, because a
// cleanup attempt against a store that just failed is likely to fail too.
func (m *Manager) CreateSong(ctx context.Context, in *SongInput) (*Song, error) {
	const operation = "CreateSong"
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "Manager "+operation)
	defer span.End()

	audioKey, err := m.backend.Upload(ctx, in.SongFile)
	if err != nil {
		m.recordOperation(operation, start, err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	song := &Song{
		Name:      in.Name,
		Genres:    in.Genres,
		Artists:   in.Artists,
		Albums:    in.Albums,
		AccountID: in.AccountID,
		SongFile: &FileRef{
			FileName: audioKey,
			Size:     in.SongFile.Size,
			Mimetype: in.SongFile.Mimetype,
		},
	}

	if in.Cover != nil {
		coverKey, err := m.backend.Upload(ctx, in.Cover)
		if err != nil {
			m.noteOrphan(operation, FieldSongFile, audioKey)
			m.recordOperation(operation, start, err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		song.Cover = &FileRef{
			FileName: coverKey,
			Size:     in.Cover.Size,
			Mimetype: in.Cover.Mimetype,
		}
	}

	id, err := m.store.Insert(ctx, song)
	if err != nil {
		m.noteOrphan(operation, FieldSongFile, audioKey)
		if song.Cover != nil {
			m.noteOrphan(operation, FieldCover, song.Cover.FileName)
		}
		m.recordOperation(operation, start, err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	stored, err := m.store.FindByID(ctx, id, DisplayProjection)
	m.recordOperation(operation, start, err)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if m.events != nil {
		// Publish from the full document, not the projected response, so the
		// event carries the owner.
		song.ID = id
		m.events.SongCreated(ctx, song)
	}
	span.SetAttributes(telemetry.AttrSongID.String(id.Hex()))
	return stored, nil
}

// -------------------------------------------------------------------------
// UPDATE
// -------------------------------------------------------------------------

// UpdateSong applies the provided fields to an existing song. A request with
// nothing to change is a validation failure. A new cover is uploaded before
// the record is updated, and the previous cover blob is removed only after
// the record points at the new one, following the cleanup policy: a missing
// old blob or an unknown cleanup error produces a warning on the successful
// response, while an unavailable or slow storage service fails the request.
// In that last case the record update has already committed: the client gets
// an error even though the patch is applied, with only the old cover blob
// left to reclaim.
func (m *Manager) UpdateSong(ctx context.Context, id primitive.ObjectID, in *SongInput) (*Song, []Warning, error) {
	const operation = "UpdateSong"
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "Manager "+operation,
		telemetry.AttrSongID.String(id.Hex()),
	)
	defer span.End()

	fail := func(err error) (*Song, []Warning, error) {
		m.recordOperation(operation, start, err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	if in.Empty() {
		return fail(faults.New(faults.ValidationData, "no data provided to update").In("song"))
	}

	current, err := m.store.FindByID(ctx, id, nil)
	if err != nil {
		return fail(err)
	}

	update := bson.M{}
	if in.Name != "" {
		update["name"] = in.Name
	}
	if in.Genres != nil {
		update["genres"] = in.Genres
	}
	if in.Artists != nil {
		update["artists"] = in.Artists
	}
	if in.Albums != nil {
		update["albums"] = in.Albums
	}

	if in.Cover != nil {
		coverKey, err := m.backend.Upload(ctx, in.Cover)
		if err != nil {
			return fail(err)
		}
		update["cover"] = &FileRef{
			FileName: coverKey,
			Size:     in.Cover.Size,
			Mimetype: in.Cover.Mimetype,
		}
	}

	updated, err := m.store.FindByIDAndUpdate(ctx, id, update, DisplayProjection)
	if err != nil {
		return fail(err)
	}

	var warnings []Warning
	if in.Cover != nil && current.Cover != nil && current.Cover.FileName != "" {
		warn, err := m.cleanupBlob(ctx, operation, FieldCover, current.Cover.FileName)
		if err != nil {
			return fail(err)
		}
		if warn != nil {
			warnings = append(warnings, *warn)
		}
	}

	m.recordOperation(operation, start, nil)
	if m.events != nil {
		// The projected response drops the owner; restore it from the
		// document loaded at the start so every event names its account.
		event := *updated
		event.AccountID = current.AccountID
		m.events.SongUpdated(ctx, &event)
	}
	return updated, warnings, nil
}

// -------------------------------------------------------------------------
// DELETE
// -------------------------------------------------------------------------

// DeleteSong removes the record first and then the blobs. Once the record
// delete commits, the operation reports success even when blob cleanup
// stumbles: missing blobs and unknown cleanup errors become warnings on the
// response, while an unavailable or slow storage service fails the request
// mid-cleanup (the record is already gone at that point).
func (m *Manager) DeleteSong(ctx context.Context, id primitive.ObjectID) (*Song, []Warning, error) {
	const operation = "DeleteSong"
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "Manager "+operation,
		telemetry.AttrSongID.String(id.Hex()),
	)
	defer span.End()

	song, err := m.store.FindByIDAndDelete(ctx, id)
	if err != nil {
		m.recordOperation(operation, start, err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	var warnings []Warning
	for _, field := range []FileField{FieldSongFile, FieldCover} {
		ref := song.Ref(field)
		if ref == nil || ref.FileName == "" {
			continue
		}
		warn, err := m.cleanupBlob(ctx, operation, field, ref.FileName)
		if err != nil {
			m.recordOperation(operation, start, err)
			span.SetStatus(codes.Error, err.Error())
			return nil, warnings, err
		}
		if warn != nil {
			warnings = append(warnings, *warn)
		}
	}

	m.recordOperation(operation, start, nil)
	if m.events != nil {
		m.events.SongDeleted(ctx, song)
	}
	return song, warnings, nil
}

// -------------------------------------------------------------------------
// FILE ACCESS
// -------------------------------------------------------------------------

// FileURL returns a signed, time-limited download URL for one of a song's
// blobs, consulting the cache first. A song without the requested blob is a
// FileReferenceNotFound fault.
func (m *Manager) FileURL(ctx context.Context, id primitive.ObjectID, field FileField) (string, error) {
	const operation = "FileURL"
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "Manager "+operation,
		telemetry.AttrSongID.String(id.Hex()),
		telemetry.AttrFileField.String(string(field)),
	)
	defer span.End()

	ref, err := m.fileRef(ctx, id, field)
	if err != nil {
		m.recordOperation(operation, start, err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	if m.cache != nil {
		if url, ok := m.cache.Get(ctx, ref.FileName); ok {
			telemetry.URLCacheTotal.WithLabelValues("hit").Inc()
			m.recordOperation(operation, start, nil)
			return url, nil
		}
		telemetry.URLCacheTotal.WithLabelValues("miss").Inc()
	}

	url, err := m.backend.SignedURL(ctx, ref.FileName, m.cfg.URLExpiry)
	m.recordOperation(operation, start, err)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	if m.cache != nil {
		// Cache for less than the signing window so a hit never serves a URL
		// about to expire.
		m.cache.Set(ctx, ref.FileName, url, m.cfg.URLExpiry/2)
	}
	return url, nil
}

// DownloadFile streams one of a song's blobs through the API. The caller owns
// the returned body. The ref's stored name and mimetype ride along so the
// handler can set a sensible download filename.
func (m *Manager) DownloadFile(ctx context.Context, id primitive.ObjectID, field FileField) (*Song, *DownloadResult, error) {
	const operation = "DownloadFile"
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "Manager "+operation,
		telemetry.AttrSongID.String(id.Hex()),
		telemetry.AttrFileField.String(string(field)),
	)
	defer span.End()

	song, err := m.store.FindByID(ctx, id, nil)
	if err != nil {
		m.recordOperation(operation, start, err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	ref := song.Ref(field)
	if ref == nil || ref.FileName == "" {
		err := faults.Newf(faults.FileReferenceNotFound,
			"the song has no %s file", field).In("song").During(operation)
		m.recordOperation(operation, start, err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	result, err := m.backend.Download(ctx, ref.FileName)
	m.recordOperation(operation, start, err)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	return song, result, nil
}

// fileRef loads a song and resolves the requested blob reference.
func (m *Manager) fileRef(ctx context.Context, id primitive.ObjectID, field FileField) (*FileRef, error) {
	song, err := m.store.FindByID(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	ref := song.Ref(field)
	if ref == nil || ref.FileName == "" {
		return nil, faults.Newf(faults.FileReferenceNotFound,
			"the song has no %s file", field).In("song")
	}
	return ref, nil
}

// -------------------------------------------------------------------------
// CLEANUP POLICY
// -------------------------------------------------------------------------

// cleanupBlob deletes a blob under the shared cleanup policy. A missing blob
// or an unclassified failure is downgraded to a warning; timeouts and
// unavailability propagate as errors because the blob is still recoverable.
func (m *Manager) cleanupBlob(ctx context.Context, operation string, field FileField, key string) (*Warning, error) {
	err := m.backend.Delete(ctx, key)
	if err == nil {
		return nil, nil
	}

	switch faults.KindOf(err) {
	case faults.FileNotFound:
		telemetry.CleanupWarningsTotal.WithLabelValues(operation, faults.FileReferenceNotFound.Code()).Inc()
		slog.Warn("blob already missing during cleanup",
			"operation", operation,
			"field", string(field),
			"key", key,
		)
		return &Warning{
			Code:    faults.FileReferenceNotFound.Code(),
			Message: "the associated file could not be found in storage",
		}, nil
	case faults.Timeout, faults.ServiceUnavailable:
		return nil, err
	default:
		telemetry.CleanupWarningsTotal.WithLabelValues(operation, faults.UnknownFileReference.Code()).Inc()
		slog.Warn("blob cleanup failed",
			"operation", operation,
			"field", string(field),
			"key", key,
			"error", err,
		)
		return &Warning{
			Code:    faults.UnknownFileReference.Code(),
			Message: "an unknown error occurred while removing the associated file",
		}, nil
	}
}

// noteOrphan records a blob left behind by a partial create failure.
func (m *Manager) noteOrphan(operation string, field FileField, key string) {
	telemetry.OrphanedBlobsTotal.Inc()
	slog.Error("blob orphaned by partial failure",
		"operation", operation,
		"field", string(field),
		"key", key,
	)
}

func (m *Manager) recordOperation(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	telemetry.ManagerRequestsTotal.WithLabelValues(operation, status).Inc()
	telemetry.ManagerDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
