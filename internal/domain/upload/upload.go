package upload

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

const (
	keyRoot          = "uploads"
	keyTeamsSegment  = "teams"
	keyUsersSegment  = "users"
	fallbackFilename = "file"
	maxSafeNameLen   = 200
	errMetadataFmt   = "decode lock metadata: %w"
)

// Lock marks an in-flight upload for a user. It is advisory: nothing in
// the schema prevents two locks for the same user.
type Lock struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Key       string
	Metadata  LockMetadata
	CreatedAt time.Time
}

type LockMetadata struct {
	Filename    string     `json:"filename"`
	ContentType string     `json:"contentType"`
	TeamID      *uuid.UUID `json:"teamId,omitempty"`
	UploadID    string     `json:"uploadId"`
	VideoID     *uuid.UUID `json:"videoId,omitempty"`
}

func (m LockMetadata) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func ParseLockMetadata(raw []byte) (LockMetadata, error) {
	var m LockMetadata
	if len(raw) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf(errMetadataFmt, err)
	}
	return m, nil
}

type CreateLockInput struct {
	UserID   uuid.UUID
	Key      string
	Metadata LockMetadata
}

// Part is one uploaded part reported back by the client on completion.
type Part struct {
	PartNumber int64  `json:"partNumber"`
	ETag       string `json:"etag"`
}

// ScopePrefix is the key prefix every object of a team or personal
// workspace lives under.
func ScopePrefix(userID uuid.UUID, teamID *uuid.UUID) string {
	if teamID != nil {
		return path.Join(keyRoot, keyTeamsSegment, teamID.String()) + "/"
	}
	return path.Join(keyRoot, keyUsersSegment, userID.String()) + "/"
}

// ObjectKey derives the storage key from scope, upload id and filename.
// The same inputs always give the same key.
func ObjectKey(userID uuid.UUID, teamID *uuid.UUID, uploadID, filename string) string {
	return ScopePrefix(userID, teamID) + uploadID + "/" + SafeName(filename)
}

// InScope reports whether key belongs to the workspace of userID/teamID.
func InScope(key string, userID uuid.UUID, teamID *uuid.UUID) bool {
	prefix := ScopePrefix(userID, teamID)
	if !strings.HasPrefix(key, prefix) {
		return false
	}
	rest := strings.TrimPrefix(key, prefix)
	if rest == "" {
		return false
	}
	for _, seg := range strings.Split(rest, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}

// SafeName strips path separators and control characters and collapses
// whitespace runs into a single dash.
func SafeName(filename string) string {
	var b strings.Builder
	lastDash := false

	for _, r := range filename {
		switch {
		case r == '/' || r == '\\':
			continue
		case unicode.IsSpace(r):
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
			continue
		case unicode.IsControl(r):
			continue
		}
		b.WriteRune(r)
		lastDash = r == '-'
	}

	name := strings.Trim(b.String(), "-.")
	if name == "" {
		return fallbackFilename
	}
	if len(name) > maxSafeNameLen {
		name = truncateKeepExt(name)
	}
	return name
}

func truncateKeepExt(name string) string {
	ext := path.Ext(name)
	if len(ext) > 16 {
		ext = ""
	}
	base := strings.TrimSuffix(name, ext)
	limit := maxSafeNameLen - len(ext)
	runes := []rune(base)
	for len(string(runes)) > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + ext
}
