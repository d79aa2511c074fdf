package ocr

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	_ "image/gif"  // 支援 GIF
	_ "image/jpeg" // 支援 JPEG
	_ "image/png"  // 支援 PNG

	_ "golang.org/x/image/webp" // 支援 WebP
)

// Upload 上傳給 OCR 服務的檔案
type Upload struct {
	Data        []byte
	FileName    string
	ContentType string
}

// uploadFormats 支援的圖片格式對應的 MIME 類型與檔名
var uploadFormats = map[string]struct {
	contentType string
	fileName    string
}{
	"jpeg": {"image/jpeg", "receipt.jpg"},
	"png":  {"image/png", "receipt.png"},
	"gif":  {"image/gif", "receipt.gif"},
	"webp": {"image/webp", "receipt.webp"},
}

// DecodeImageBase64 解碼 base64 圖片（可帶 data URI 前綴）並檢查大小
func DecodeImageBase64(imageData string, maxSizeBytes int64) ([]byte, error) {
	imageData = strings.TrimSpace(imageData)
	if strings.HasPrefix(imageData, "data:") {
		_, payload, ok := strings.Cut(imageData, ",")
		if !ok {
			return nil, fmt.Errorf("invalid base64 data format")
		}
		imageData = payload
	}

	decoded, err := base64.StdEncoding.DecodeString(imageData)
	if err != nil {
		// 有些客戶端省略 padding
		decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(imageData, "="))
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 data: %w", err)
		}
	}
	if len(decoded) == 0 {
		return nil, fmt.Errorf("empty image data")
	}

	if maxSizeBytes > 0 && int64(len(decoded)) > maxSizeBytes {
		return nil, fmt.Errorf("image size exceeds maximum limit of %d bytes", maxSizeBytes)
	}
	return decoded, nil
}

// SniffUpload 依圖片標頭判斷 MIME 類型，無法辨識時當作 JPEG
func SniffUpload(data []byte) Upload {
	upload := Upload{Data: data, FileName: "receipt.jpg", ContentType: "image/jpeg"}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return upload
	}
	if f, ok := uploadFormats[format]; ok {
		upload.ContentType = f.contentType
		upload.FileName = f.fileName
	}
	return upload
}
