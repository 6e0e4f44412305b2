// Package pairingimage turns the pairing code returned by the backend into
// something a screen can show. The backend usually sends a ready image data
// URI, sometimes a bare base64 PNG, and occasionally the raw pairing payload,
// which has to be encoded as a QR code locally.
package pairingimage

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

const (
	// PNGDataURIPrefix starts every data URI this package produces.
	PNGDataURIPrefix = "data:image/png;base64,"

	// Size is the edge length in pixels of locally encoded QR codes.
	Size = 256

	imageURIHead = "data:image/"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// ErrMalformedDataURI is returned for an image data URI that is not base64.
var ErrMalformedDataURI = errors.New("malformed image data URI")

// DataURI returns an <img> source for code. A data URI is used verbatim, a
// bare base64 PNG gets the data URI prefix and anything else is encoded as a
// QR code. An empty code yields "".
func DataURI(code string) (string, error) {
	code = strings.TrimSpace(code)
	switch {
	case code == "":
		return "", nil
	case strings.HasPrefix(code, imageURIHead):
		return code, nil
	case isBase64PNG(code):
		return PNGDataURIPrefix + code, nil
	}

	png, err := Encode(code)
	if err != nil {
		return "", err
	}
	return PNGDataURIPrefix + base64.StdEncoding.EncodeToString(png), nil
}

// Decode returns the image bytes carried by code. When code is a raw pairing
// payload rather than an image, raw is true and img is nil.
func Decode(code string) (img []byte, raw bool, err error) {
	code = strings.TrimSpace(code)
	switch {
	case strings.HasPrefix(code, imageURIHead):
		header, data, ok := strings.Cut(code, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, false, ErrMalformedDataURI
		}
		img, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %w", ErrMalformedDataURI, err)
		}
		return img, false, nil
	case isBase64PNG(code):
		img, err := base64.StdEncoding.DecodeString(code)
		if err != nil {
			return nil, false, fmt.Errorf("decode base64 png: %w", err)
		}
		return img, false, nil
	default:
		return nil, true, nil
	}
}

// Encode renders payload as a PNG QR code.
func Encode(payload string) ([]byte, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, Size)
	if err != nil {
		return nil, fmt.Errorf("encode pairing qr code: %w", err)
	}
	return png, nil
}

func isBase64PNG(s string) bool {
	// The magic number is 8 bytes, which needs at most 12 base64 characters.
	if len(s) < 12 {
		return false
	}
	head, err := base64.StdEncoding.DecodeString(s[:12])
	if err != nil {
		return false
	}
	return bytes.HasPrefix(head, pngMagic)
}
