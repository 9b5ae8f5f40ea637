package validator

import (
	"fmt"
	"mime"
	"regexp"
	"strings"
)

const (
	minEmailLength    = 3
	maxEmailLength    = 255
	minPasswordLength = 8
	maxPasswordLength = 128
	maxTeamNameLen    = 120
	maxPersonNameLen  = 120
	maxFileNameLen    = 255
	maxContentTypeLen = 255
	minPartNumber     = 1
	MaxPartNumber     = 10000
	asciiControlStart = 32
	asciiDelete       = 127

	errEmailEmptyFmt           = "email cannot be empty"
	errEmailLengthFmt          = "email must be between %d and %d characters"
	errEmailInvalidFmt         = "invalid email format"
	errPasswordMinLengthFmt    = "password must be at least %d characters"
	errPasswordMaxLengthFmt    = "password must not exceed %d characters"
	errTeamNameEmptyFmt        = "team name cannot be empty"
	errTeamNameMaxLengthFmt    = "team name must not exceed %d characters"
	errPersonNameMaxLengthFmt  = "name must not exceed %d characters"
	errNameControlCharsFmt     = "name cannot contain control characters"
	errFileNameEmptyFmt        = "filename is required"
	errFileNameMaxLengthFmt    = "filename must not exceed %d characters"
	errContentTypeEmptyFmt     = "contentType is required"
	errContentTypeMaxLengthFmt = "content type must not exceed %d characters"
	errContentTypeInvalidFmt   = "invalid content type"
	errFileSizeNegativeFmt     = "file size cannot be negative"
	errFileSizeMaxFmt          = "file size exceeds maximum of %d bytes"
	errPartNumberRangeFmt      = "partNumber must be between %d and %d"
	errObjectKeyEmptyFmt       = "key is required"
	errObjectKeyTraversalFmt   = "key cannot contain path traversal"
	errUploadIDEmptyFmt        = "uploadId is required"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func Email(email string) error {
	if email == "" {
		return fmt.Errorf(errEmailEmptyFmt)
	}

	if len(email) < minEmailLength || len(email) > maxEmailLength {
		return fmt.Errorf(errEmailLengthFmt, minEmailLength, maxEmailLength)
	}

	if !emailRegex.MatchString(email) {
		return fmt.Errorf(errEmailInvalidFmt)
	}

	return nil
}

func Password(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf(errPasswordMinLengthFmt, minPasswordLength)
	}

	if len(password) > maxPasswordLength {
		return fmt.Errorf(errPasswordMaxLengthFmt, maxPasswordLength)
	}

	return nil
}

func TeamName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf(errTeamNameEmptyFmt)
	}

	if len(name) > maxTeamNameLen {
		return fmt.Errorf(errTeamNameMaxLengthFmt, maxTeamNameLen)
	}

	if hasControlChars(name) {
		return fmt.Errorf(errNameControlCharsFmt)
	}

	return nil
}

// PersonName allows empty names; signup does not require one.
func PersonName(name string) error {
	if len(name) > maxPersonNameLen {
		return fmt.Errorf(errPersonNameMaxLengthFmt, maxPersonNameLen)
	}

	if hasControlChars(name) {
		return fmt.Errorf(errNameControlCharsFmt)
	}

	return nil
}

// FileName only checks presence and length. Unsafe characters are
// stripped when the object key is derived, not rejected.
func FileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf(errFileNameEmptyFmt)
	}

	if len(name) > maxFileNameLen {
		return fmt.Errorf(errFileNameMaxLengthFmt, maxFileNameLen)
	}

	return nil
}

func ContentType(contentType string) error {
	if strings.TrimSpace(contentType) == "" {
		return fmt.Errorf(errContentTypeEmptyFmt)
	}

	if len(contentType) > maxContentTypeLen {
		return fmt.Errorf(errContentTypeMaxLengthFmt, maxContentTypeLen)
	}

	if _, _, err := mime.ParseMediaType(contentType); err != nil {
		return fmt.Errorf(errContentTypeInvalidFmt)
	}

	return nil
}

func FileSize(size, max int64) error {
	if size < 0 {
		return fmt.Errorf(errFileSizeNegativeFmt)
	}

	if max > 0 && size > max {
		return fmt.Errorf(errFileSizeMaxFmt, max)
	}

	return nil
}

func PartNumber(n int64) error {
	if n < minPartNumber || n > MaxPartNumber {
		return fmt.Errorf(errPartNumberRangeFmt, minPartNumber, MaxPartNumber)
	}
	return nil
}

func ObjectKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf(errObjectKeyEmptyFmt)
	}

	for _, seg := range strings.Split(key, "/") {
		if seg == ".." || seg == "." {
			return fmt.Errorf(errObjectKeyTraversalFmt)
		}
	}

	return nil
}

func UploadID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf(errUploadIDEmptyFmt)
	}
	return nil
}

func hasControlChars(s string) bool {
	for _, char := range s {
		if char < asciiControlStart || char == asciiDelete {
			return true
		}
	}
	return false
}
