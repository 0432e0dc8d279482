// -------------------------------------------------------------------------------
// Validate Tests
//
// Project: KCloud / Author: Alex Freidah
// -------------------------------------------------------------------------------

package validate

import (
	"mime/multipart"
	"reflect"
	"testing"

	"github.com/nestorara/kcloud-music-api/internal/faults"
)

func TestValidateID(t *testing.T) {
	if _, err := ValidateID("64a0f1e2b3c4d5e6f7a8b9c0"); err != nil {
		t.Errorf("valid hex id rejected: %v", err)
	}

	for _, bad := range []string{"", "not-an-id", "64a0f1", "zzzzzzzzzzzzzzzzzzzzzzzz"} {
		_, err := ValidateID(bad)
		if !faults.IsKind(err, faults.ValidationData) {
			t.Errorf("ValidateID(%q) = %v, want ValidationData fault", bad, err)
		}
	}
}

func TestValidateFileType(t *testing.T) {
	tests := []struct {
		name     string
		class    FileClass
		fileName string
		mimetype string
		wantOK   bool
	}{
		{"mp3 audio", ClassAudio, "track.mp3", "audio/mpeg", true},
		{"uppercase extension", ClassAudio, "TRACK.MP3", "audio/mpeg", true},
		{"wav variant mimetype", ClassAudio, "take1.wav", "audio/x-wav", true},
		{"m4a under audio/mp4", ClassAudio, "take.m4a", "audio/mp4", true},
		{"png cover", ClassImage, "cover.png", "image/png", true},
		{"jpeg either extension", ClassImage, "cover.jpeg", "image/jpeg", true},
		{"image mimetype for audio field", ClassAudio, "track.mp3", "image/png", false},
		{"audio mimetype for image field", ClassImage, "cover.png", "audio/mpeg", false},
		{"extension contradicts mimetype", ClassAudio, "track.wav", "audio/mpeg", false},
		{"unknown mimetype", ClassAudio, "track.mp3", "application/pdf", false},
		{"no extension", ClassAudio, "track", "audio/mpeg", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFileType(tt.class, tt.fileName, tt.mimetype)
			if tt.wantOK && err != nil {
				t.Errorf("unexpected rejection: %v", err)
			}
			if !tt.wantOK && !faults.IsKind(err, faults.UnsupportedFileType) {
				t.Errorf("err = %v, want UnsupportedFileType fault", err)
			}
		})
	}
}

func TestValidateFileField(t *testing.T) {
	one := []*multipart.FileHeader{{Filename: "a.mp3", Size: 10}}
	two := []*multipart.FileHeader{{Filename: "a.mp3", Size: 10}, {Filename: "b.mp3", Size: 10}}

	if err := ValidateFileField(one, "songFile", true); err != nil {
		t.Errorf("single file rejected: %v", err)
	}
	if err := ValidateFileField(nil, "cover", false); err != nil {
		t.Errorf("absent optional file rejected: %v", err)
	}
	if err := ValidateFileField(nil, "songFile", true); !faults.IsKind(err, faults.MissingParameter) {
		t.Errorf("err = %v, want MissingParameter fault", err)
	}
	if err := ValidateFileField(two, "cover", false); !faults.IsKind(err, faults.DuplicateFields) {
		t.Errorf("err = %v, want DuplicateFields fault", err)
	}

	empty := []*multipart.FileHeader{{Filename: "", Size: 10}}
	if err := ValidateFileField(empty, "songFile", true); !faults.IsKind(err, faults.ValidationData) {
		t.Errorf("err = %v, want ValidationData fault for a nameless file", err)
	}
	zeroSize := []*multipart.FileHeader{{Filename: "a.mp3", Size: 0}}
	if err := ValidateFileField(zeroSize, "songFile", true); !faults.IsKind(err, faults.ValidationData) {
		t.Errorf("err = %v, want ValidationData fault for an empty file", err)
	}
}

func TestValidateAccountID(t *testing.T) {
	if err := ValidateAccountID("acct-1"); err != nil {
		t.Errorf("ValidateAccountID(acct-1) = %v", err)
	}
	for _, account := range []string{"", "   "} {
		if err := ValidateAccountID(account); !faults.IsKind(err, faults.ValidationData) {
			t.Errorf("ValidateAccountID(%q) = %v, want ValidationData fault", account, err)
		}
	}
}

func TestCollect(t *testing.T) {
	t.Run("all nil", func(t *testing.T) {
		if err := Collect(nil, nil); err != nil {
			t.Errorf("Collect(nil, nil) = %v", err)
		}
	})

	t.Run("merges validation messages", func(t *testing.T) {
		err := Collect(
			faults.New(faults.ValidationData, "the field \"name\" is required"),
			nil,
			faults.New(faults.MissingParameter, "the field \"songFile\" is required"),
		)
		if !faults.IsKind(err, faults.ValidationData) {
			t.Fatalf("err = %v, want ValidationData fault", err)
		}
		f := faults.From(err)
		if len(f.Messages) != 2 {
			t.Errorf("Messages = %v, want both problems listed", f.Messages)
		}
	})

	t.Run("non-validation fault short-circuits", func(t *testing.T) {
		err := Collect(
			faults.New(faults.ValidationData, "the field \"name\" is required"),
			faults.New(faults.UnsupportedFileType, "the file type is not supported"),
		)
		if !faults.IsKind(err, faults.UnsupportedFileType) {
			t.Errorf("err = %v, want UnsupportedFileType fault", err)
		}
	})
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"rock", []string{"rock"}},
		{"rock, jazz ,ambient", []string{"rock", "jazz", "ambient"}},
		{" , ,", []string{}},
	}

	for _, tt := range tests {
		got := SplitList(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitList(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestDownloadFilename(t *testing.T) {
	if got := DownloadFilename("Nimbus", "audio/mpeg"); got != "Nimbus.mp3" {
		t.Errorf("DownloadFilename = %q, want Nimbus.mp3", got)
	}
	if got := DownloadFilename("Nimbus", "image/jpeg"); got != "Nimbus.jpg" {
		t.Errorf("DownloadFilename = %q, want Nimbus.jpg", got)
	}
	if got := DownloadFilename("Nimbus", "application/unknown"); got != "Nimbus" {
		t.Errorf("DownloadFilename = %q, want bare name for unknown type", got)
	}
}
