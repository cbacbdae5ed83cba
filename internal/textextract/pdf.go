package textextract

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/rotisserie/eris"
)

// pdfToText extracts PDF text with the poppler pdftotext CLI.
type pdfToText struct {
	binPath string
}

func newPdfToText(binPath string) *pdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &pdfToText{binPath: binPath}
}

func (p *pdfToText) extract(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "upload-*.pdf")
	if err != nil {
		return "", eris.Wrap(err, "textextract: create temp pdf")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return "", eris.Wrap(err, "textextract: write temp pdf")
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrap(err, "textextract: close temp pdf")
	}

	cmd := exec.CommandContext(ctx, p.binPath, "-layout", tmp.Name(), "-")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "textextract: pdftotext failed: %s", stderr.String())
	}
	return stdout.String(), nil
}
