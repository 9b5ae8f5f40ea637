package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	assert.NoError(t, Email("owner@uplora.io"))
	assert.Error(t, Email(""))
	assert.Error(t, Email("not-an-email"))
	assert.Error(t, Email("a@b"))
}

func TestContentType(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"video/mp4", false},
		{"video/quicktime; codecs=avc1", false},
		{"", true},
		{"   ", true},
		{"not a mime;;", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := ContentType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPartNumber(t *testing.T) {
	assert.NoError(t, PartNumber(1))
	assert.NoError(t, PartNumber(MaxPartNumber))
	assert.Error(t, PartNumber(0))
	assert.Error(t, PartNumber(-3))
	assert.Error(t, PartNumber(MaxPartNumber+1))
}

func TestObjectKey(t *testing.T) {
	assert.NoError(t, ObjectKey("uploads/users/u1/x/clip.mp4"))
	assert.Error(t, ObjectKey(""))
	assert.Error(t, ObjectKey("uploads/../secrets"))
}

func TestFileSize(t *testing.T) {
	assert.NoError(t, FileSize(0, 10))
	assert.NoError(t, FileSize(10, 10))
	assert.Error(t, FileSize(11, 10))
	assert.Error(t, FileSize(-1, 10))
	assert.NoError(t, FileSize(1<<40, 0))
}

func TestTeamName(t *testing.T) {
	assert.NoError(t, TeamName("Studio X"))
	assert.Error(t, TeamName("  "))
	assert.Error(t, TeamName("bad\x01name"))
}
