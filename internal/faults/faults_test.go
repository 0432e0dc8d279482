// -------------------------------------------------------------------------------
// Faults Tests - Codes, Status Mapping, and errors.Is/As Dispatch
//
// Author: Alex Freidah
// -------------------------------------------------------------------------------

package faults

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestKindCodes(t *testing.T) {
	cases := []struct {
		kind Kind
		code string
	}{
		{Unknown, "UNKNOWNERROR"},
		{NotReadable, "NOTREADABLEERROR"},
		{ServiceUnavailable, "SERVICEUNAVAILABLEERROR"},
		{FileNotFound, "FILENOTFOUNDERROR"},
		{ResourceNotFound, "RESOURCENOTFOUNDERROR"},
		{FileReferenceNotFound, "FILEREFERENCENOTFOUNDERROR"},
		{UnknownFileReference, "UNKNOWNERRORINFILEREFERENCE"},
		{Timeout, "TIMEOUTERROR"},
		{DBConnection, "DBCONNECTIONERROR"},
		{UnsupportedFileType, "UNSUPPORTEDFILETYPEERROR"},
		{ValidationData, "VALIDATIONDATAERROR"},
		{DuplicateFields, "DUPLICATEFIELDSERROR"},
		{FileSizeLimit, "FILESIZELIMITERROR"},
		{MissingParameter, "MISSINGPARAMETERERROR"},
		{AccessDenied, "ACCESSDENIEDERROR"},
	}
	for _, tc := range cases {
		if got := tc.kind.Code(); got != tc.code {
			t.Errorf("Code(%v) = %q, want %q", tc.kind, got, tc.code)
		}
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
	}{
		{ResourceNotFound, http.StatusNotFound},
		{FileNotFound, http.StatusNotFound},
		{FileReferenceNotFound, http.StatusNotFound},
		{Timeout, http.StatusRequestTimeout},
		{UnsupportedFileType, http.StatusUnsupportedMediaType},
		{ValidationData, http.StatusBadRequest},
		{DuplicateFields, http.StatusBadRequest},
		{FileSizeLimit, http.StatusBadRequest},
		{MissingParameter, http.StatusBadRequest},
		{AccessDenied, http.StatusForbidden},
		{Unknown, http.StatusInternalServerError},
		{NotReadable, http.StatusInternalServerError},
		{ServiceUnavailable, http.StatusInternalServerError},
		{DBConnection, http.StatusInternalServerError},
		{UnknownFileReference, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.kind.HTTPStatus(); got != tc.status {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tc.kind.Code(), got, tc.status)
		}
	}
}

func TestIsKind_MatchesThroughWrapping(t *testing.T) {
	inner := New(FileNotFound, "file missing").In("cover")
	wrapped := fmt.Errorf("deleting old cover: %w", inner)

	if !IsKind(wrapped, FileNotFound) {
		t.Error("IsKind should match a wrapped fault")
	}
	if IsKind(wrapped, ResourceNotFound) {
		t.Error("IsKind should not match a different kind")
	}

	var f *Fault
	if !errors.As(wrapped, &f) {
		t.Fatal("errors.As should extract the fault")
	}
	if f.Resource != "cover" {
		t.Errorf("resource = %q, want %q", f.Resource, "cover")
	}
}

func TestErrorsIs_ByKind(t *testing.T) {
	err := Wrap(Timeout, errors.New("context deadline exceeded"), "storage took too long")
	if !errors.Is(err, &Fault{Kind: Timeout}) {
		t.Error("errors.Is should match faults by kind")
	}
	if errors.Is(err, &Fault{Kind: Unknown}) {
		t.Error("errors.Is should not match a different kind")
	}
}

func TestFrom_CoercesUnclassified(t *testing.T) {
	raw := errors.New("driver exploded")
	f := From(raw)
	if f.Kind != Unknown {
		t.Errorf("kind = %s, want Unknown", f.Kind.Code())
	}
	if strings.Contains(f.Message, "exploded") {
		t.Error("client message must not leak internal detail")
	}
	if !errors.Is(f, raw) {
		t.Error("cause should remain reachable for logging")
	}
}

func TestFrom_PreservesExistingFault(t *testing.T) {
	orig := New(ResourceNotFound, "the song doesn't exist")
	f := From(fmt.Errorf("lookup: %w", orig))
	if f != orig {
		t.Error("From should return the original fault unchanged")
	}
}

func TestValidation_CollectsAllMessages(t *testing.T) {
	f := Validation("the name field is required", "the accountId field is required")
	if len(f.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(f.Messages))
	}
	if f.Kind != ValidationData {
		t.Errorf("kind = %s, want ValidationData", f.Kind.Code())
	}
	if !strings.Contains(f.Message, "accountId") {
		t.Error("joined message should include every entry")
	}
}

func TestAnnotations_DoNotMutateOriginal(t *testing.T) {
	base := New(FileNotFound, "missing")
	annotated := base.In("songFile").During("deleteFile")
	if base.Resource != "" || base.Action != "" {
		t.Error("In/During must copy, not mutate")
	}
	if annotated.Resource != "songFile" || annotated.Action != "deleteFile" {
		t.Errorf("annotated = %+v", annotated)
	}
}
