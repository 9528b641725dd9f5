package corpus

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/errors"
	"github.com/ledongthuc/pdf"
)

// ReadSeed reads a bundled seed corpus. PDFs are reduced to plain text;
// anything else is read as UTF-8.
func ReadSeed(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return readPDF(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.Newf(apperrors.ErrNotFound, 0, "no seed corpus at %s", path)
		}
		return "", apperrors.Newf(apperrors.ErrIO, 0, "reading seed %s: %v", path, err)
	}
	return string(data), nil
}

func readPDF(path string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", apperrors.Newf(apperrors.ErrNotFound, 0, "no seed corpus at %s", path)
	}
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", apperrors.Newf(apperrors.ErrIO, 0, "opening pdf %s: %v", path, err)
	}
	defer f.Close()

	plain, err := rdr.GetPlainText()
	if err != nil {
		return "", apperrors.Newf(apperrors.ErrIO, 0, "extracting text from %s: %v", path, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", apperrors.Newf(apperrors.ErrIO, 0, "reading text of %s: %v", path, err)
	}
	if buf.Len() == 0 {
		return "", apperrors.Newf(apperrors.ErrIO, 0, "no text extracted from %s", path)
	}
	return buf.String(), nil
}
