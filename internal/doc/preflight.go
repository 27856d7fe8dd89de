package doc

import (
	"os"
	"path/filepath"
	"unicode"

	"github.com/ledongthuc/pdf"

	"pdf-layout-translator/internal/logger"
)

// Info describes an input document before pipeline processing.
type Info struct {
	FilePath  string `json:"file_path"`
	FileName  string `json:"file_name"`
	PageCount int    `json:"page_count"`
	FileSize  int64  `json:"file_size"`
	IsTextPDF bool   `json:"is_text_pdf"`
}

// minProbeChars is the number of non-whitespace characters across the first
// pages that qualifies a document as having an extractable text layer.
const minProbeChars = 50

// Preflight inspects an input PDF without mutating it: page count, size,
// and whether it carries an extractable text layer. Scanned raster-only
// documents are reported with IsTextPDF false; OCR is out of scope and the
// pipeline rejects them up front.
func Preflight(path string) (*Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info := &Info{
		FilePath:  path,
		FileName:  filepath.Base(path),
		PageCount: r.NumPage(),
		FileSize:  fi.Size(),
		IsTextPDF: probeText(r),
	}

	logger.Debug("preflight complete",
		logger.String("file", info.FileName),
		logger.Int("pages", info.PageCount),
		logger.Bool("textPDF", info.IsTextPDF))

	return info, nil
}

// probeText extracts text from the first few pages and counts
// non-whitespace characters. Trying actual extraction is more reliable
// than inspecting font resources.
func probeText(r *pdf.Reader) bool {
	pagesToCheck := 3
	if r.NumPage() < pagesToCheck {
		pagesToCheck = r.NumPage()
	}

	total := 0
	for pageNum := 1; pageNum <= pagesToCheck; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, c := range content {
			if !unicode.IsSpace(c) {
				total++
			}
		}
		if total >= minProbeChars {
			return true
		}
	}
	return false
}
