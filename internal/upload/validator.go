package upload

import (
	"math"
	"strconv"
	"strings"

	"domex/api/internal/domain"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// ValidateOwnerKey rejects owner keys that are empty or could escape their
// segment of a storage path.
func ValidateOwnerKey(ownerKey string) error {
	if strings.TrimSpace(ownerKey) == "" {
		return &ValidationError{Reason: "Owner key is required"}
	}
	if ownerKey == "." || strings.Contains(ownerKey, "..") || strings.ContainsAny(ownerKey, "/\\") {
		return &ValidationError{Reason: "Owner key contains invalid characters"}
	}
	return nil
}

// Validate checks a candidate's owner key, declared MIME type and size before
// any transfer. It is pure; a nil return means the candidate may be uploaded.
func Validate(candidate domain.UploadCandidate, allowedTypes []string, maxSizeBytes int64) error {
	if err := ValidateOwnerKey(candidate.OwnerKey); err != nil {
		return err
	}
	if !TypeAllowed(candidate.DeclaredMimeType, allowedTypes) {
		return &ValidationError{
			Reason: "File type " + candidate.DeclaredMimeType + " is not allowed. Allowed types: " + strings.Join(allowedTypes, ", "),
		}
	}
	if candidate.SizeBytes < 0 {
		return &ValidationError{Reason: "File size cannot be negative"}
	}
	if candidate.SizeBytes > maxSizeBytes {
		return &ValidationError{
			Reason: "File size " + FormatSize(candidate.SizeBytes) + " exceeds the maximum of " + FormatSize(maxSizeBytes),
		}
	}
	return nil
}

// TypeAllowed reports whether mimeType matches an entry exactly, or an entry of
// the form "<family>/*" whose family prefix it shares.
func TypeAllowed(mimeType string, allowedTypes []string) bool {
	for _, allowed := range allowedTypes {
		if family, ok := strings.CutSuffix(allowed, "/*"); ok {
			if strings.HasPrefix(mimeType, family+"/") {
				return true
			}
			continue
		}
		if mimeType == allowed {
			return true
		}
	}
	return false
}

// FormatSize renders a byte count with 1024-based units and at most two decimals:
// 0 -> "0 Bytes", 1536 -> "1.5 KB", 1048576 -> "1 MB".
func FormatSize(bytes int64) string {
	if bytes == 0 {
		return "0 Bytes"
	}
	value := float64(bytes)
	unit := 0
	for math.Abs(value) >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	value = math.Round(value*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + sizeUnits[unit]
}
