package service

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"

	"github.com/pquerna/otp"
)

// otpauthURL builds the enrollment URI for standard authenticator apps.
// The template is fixed: parameter order and the issuer-prefixed label must
// not change, or already-printed QR codes stop matching.
func (s *AuthService) otpauthURL(account, secret string) string {
	return fmt.Sprintf("otpauth://totp/%s:%s?secret=%s&issuer=%s", s.issuerLabel, account, secret, s.issuer)
}

// qrCodeDataURL renders the otpauth URI as a PNG QR code wrapped in a
// base64 data URL, ready for an <img> tag.
func qrCodeDataURL(otpauthURL string) (string, error) {
	key, err := otp.NewKeyFromURL(otpauthURL)
	if err != nil {
		return "", fmt.Errorf("invalid otpauth url: %w", err)
	}

	img, err := key.Image(256, 256)
	if err != nil {
		return "", fmt.Errorf("failed to render QR code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
