// Package qr encodes document validation URLs as PNG QR codes. The artifact
// is attached to documents for rendering only and never enters the integrity
// digest.
package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const defaultSize = 200

// Encoder builds validation QR codes against a fixed public base URL.
type Encoder struct {
	baseURL string
	size    int
}

// NewEncoder constructs an encoder. baseURL must not end with a slash.
func NewEncoder(baseURL string) *Encoder {
	return &Encoder{baseURL: baseURL, size: defaultSize}
}

// ValidationURL returns the public URL a QR code resolves to.
func (e *Encoder) ValidationURL(code string) string {
	return fmt.Sprintf("%s/validacao/%s", e.baseURL, code)
}

// Encode returns the PNG bytes for the validation URL of code.
func (e *Encoder) Encode(code string) ([]byte, error) {
	png, err := qrcode.Encode(e.ValidationURL(code), qrcode.Medium, e.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr for %s: %w", code, err)
	}
	return png, nil
}

// EncodeDataURL returns the PNG as a data URL suitable for embedding.
func (e *Encoder) EncodeDataURL(code string) (string, error) {
	png, err := e.Encode(code)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
