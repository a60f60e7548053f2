package pipeline

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/jung-kurt/gofpdf"
)

// Slide canvas in points, 16:9.
const (
	slideWidthPt  = 1280.0
	slideHeightPt = 720.0
)

// buildPDF lays each image out as one full-bleed 16:9 page and returns the
// assembled PDF bytes.
func buildPDF(images [][]byte) ([]byte, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images to assemble")
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: slideWidthPt, Ht: slideHeightPt},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	for i, data := range images {
		imageType, err := pdfImageType(data)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}

		name := fmt.Sprintf("slide-%d", i+1)
		opts := gofpdf.ImageOptions{ImageType: imageType}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))

		pdf.AddPage()
		pdf.ImageOptions(name, 0, 0, slideWidthPt, slideHeightPt, false, opts, 0, "")

		if pdf.Err() {
			return nil, fmt.Errorf("page %d: %v", i+1, pdf.Error())
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}

	return buf.Bytes(), nil
}

// pdfImageType maps sniffed content to the image type names gofpdf accepts.
func pdfImageType(data []byte) (string, error) {
	switch http.DetectContentType(data) {
	case "image/png":
		return "PNG", nil
	case "image/jpeg":
		return "JPG", nil
	case "image/gif":
		return "GIF", nil
	default:
		return "", fmt.Errorf("unsupported image format")
	}
}
