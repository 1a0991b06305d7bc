package utils

import "github.com/google/uuid"

// NewQRCode returns a fresh reservation QR code string. Rendering the
// code into an image is the caller's concern; the engine only needs a
// globally unique, non-blank token.
func NewQRCode() string {
	return "RSV-" + uuid.NewString()
}
