package imaging

import (
	"fmt"
	"image"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

var qrLevels = map[string]qrcode.RecoveryLevel{
	"low":     qrcode.Low,
	"medium":  qrcode.Medium,
	"high":    qrcode.High,
	"highest": qrcode.Highest,
}

// QRCode renders content as a size×size QR code with its quiet zone.
func QRCode(content string, size int, level string) (image.Image, error) {
	if content == "" {
		return nil, fmt.Errorf("qr code content is empty")
	}
	if level == "" {
		level = "medium"
	}
	lvl, ok := qrLevels[strings.ToLower(level)]
	if !ok {
		return nil, fmt.Errorf("unknown qr recovery level %q", level)
	}

	q, err := qrcode.New(content, lvl)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return q.Image(size), nil
}
