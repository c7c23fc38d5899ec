package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/ianaindex"
)

// ErrDecode is returned when a blob has no usable text encoding.
var ErrDecode = errors.New("undecodable blob")

const utf8Label = "UTF-8"

var utf8BOM = []byte("\xef\xbb\xbf")

// utf8Compatible lists labels detectors report for Western single-byte text
// that frequently turns out to be UTF-8. UTF-8 is tried first for these.
var utf8Compatible = map[string]bool{
	"ISO-8859-1":   true,
	"ISO-8859-15":  true,
	"WINDOWS-1252": true,
}

// Detection is a best-guess encoding for a byte sequence.
type Detection struct {
	Charset    string
	Language   string
	Confidence int
}

// Detector guesses the text encoding of raw bytes.
type Detector interface {
	Detect(data []byte) (Detection, error)
}

// DetectorFunc adapts a plain function to the Detector interface.
type DetectorFunc func(data []byte) (Detection, error)

func (f DetectorFunc) Detect(data []byte) (Detection, error) { return f(data) }

// ChardetDetector detects encodings with the ICU-derived chardet recognizers.
type ChardetDetector struct {
	detector *chardet.Detector
}

func NewChardetDetector() *ChardetDetector {
	return &ChardetDetector{detector: chardet.NewTextDetector()}
}

func (d *ChardetDetector) Detect(data []byte) (Detection, error) {
	res, err := d.detector.DetectBest(data)
	if err != nil {
		return Detection{}, err
	}
	return Detection{Charset: res.Charset, Language: res.Language, Confidence: res.Confidence}, nil
}

// Decoded is text recovered from a blob together with the encoding that worked.
type Decoded struct {
	Text       string
	Encoding   string
	Confidence int
}

// TextDecoder turns raw blobs into text using a Detector.
type TextDecoder struct {
	detector Detector
}

func NewTextDecoder(detector Detector) *TextDecoder {
	return &TextDecoder{detector: detector}
}

// Decode detects the encoding of data and decodes it. Any blob without a
// detectable, supported label fails with ErrDecode.
func (d *TextDecoder) Decode(data []byte) (Decoded, error) {
	if len(data) == 0 {
		return Decoded{}, fmt.Errorf("%w: empty blob", ErrDecode)
	}

	det, err := d.detector.Detect(data)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: detect: %v", ErrDecode, err)
	}

	label := strings.TrimSpace(det.Charset)
	if label == "" {
		return Decoded{}, fmt.Errorf("%w: no encoding detected", ErrDecode)
	}

	candidates := []string{label}
	if utf8Compatible[strings.ToUpper(label)] {
		candidates = []string{utf8Label, label}
	}

	var lastErr error
	for _, candidate := range candidates {
		text, err := decodeAs(candidate, data)
		if err != nil {
			lastErr = err
			continue
		}
		return Decoded{Text: text, Encoding: candidate, Confidence: det.Confidence}, nil
	}

	return Decoded{}, fmt.Errorf("%w: %s: %v", ErrDecode, label, lastErr)
}

// decodeAs decodes data strictly: a decoder that had to substitute U+FFFD for
// bytes it could not map counts as a failure.
func decodeAs(label string, data []byte) (string, error) {
	if strings.EqualFold(label, utf8Label) {
		data = bytes.TrimPrefix(data, utf8BOM)
		if !utf8.Valid(data) {
			return "", errors.New("invalid UTF-8 sequence")
		}
		return string(data), nil
	}

	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return "", err
	}
	if enc == nil {
		return "", fmt.Errorf("unsupported encoding %q", label)
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	if bytes.ContainsRune(out, utf8.RuneError) && !bytes.ContainsRune(data, utf8.RuneError) {
		return "", fmt.Errorf("bytes not representable in %s", label)
	}
	return strings.TrimPrefix(string(out), "\ufeff"), nil
}
