package ingest

import (
	"errors"
	"testing"
)

func fixedDetector(charset string, confidence int) Detector {
	return DetectorFunc(func([]byte) (Detection, error) {
		return Detection{Charset: charset, Confidence: confidence}, nil
	})
}

func TestDecodeUTF8WithChardet(t *testing.T) {
	text := "id,address,city,zip,created_at\n" +
		"1,Place de l'Église,Crécy,77580,2024-01-01\n" +
		"2,Rue du Châtelet,Hôtel-de-Ville,75004,2024-01-02\n"

	d := NewTextDecoder(NewChardetDetector())
	got, err := d.Decode([]byte(text))
	if err != nil {
		t.Fatalf("Decode returned %v", err)
	}
	if got.Text != text {
		t.Errorf("Decode text = %q; want %q", got.Text, text)
	}
	if got.Encoding != "UTF-8" {
		t.Errorf("Decode encoding = %q; want UTF-8", got.Encoding)
	}
}

func TestDecodeEmptyBlob(t *testing.T) {
	d := NewTextDecoder(NewChardetDetector())
	if _, err := d.Decode(nil); !errors.Is(err, ErrDecode) {
		t.Errorf("Decode(nil) error = %v; want ErrDecode", err)
	}
}

func TestDecodeFailures(t *testing.T) {
	tests := []struct {
		name     string
		detector Detector
		data     []byte
	}{
		{"no label", fixedDetector("", 0), []byte("abc")},
		{"unknown label", fixedDetector("x-no-such-charset", 50), []byte("abc")},
		{"detector error", DetectorFunc(func([]byte) (Detection, error) {
			return Detection{}, errors.New("not detected")
		}), []byte("abc")},
		{"invalid utf-8", fixedDetector("UTF-8", 80), []byte("Caf\xe9")},
	}

	for _, tt := range tests {
		d := NewTextDecoder(tt.detector)
		if _, err := d.Decode(tt.data); !errors.Is(err, ErrDecode) {
			t.Errorf("%s: error = %v; want ErrDecode", tt.name, err)
		}
	}
}

func TestDecodeLatin1LabelPrefersUTF8(t *testing.T) {
	d := NewTextDecoder(fixedDetector("ISO-8859-1", 60))

	got, err := d.Decode([]byte("Café"))
	if err != nil {
		t.Fatalf("Decode returned %v", err)
	}
	if got.Text != "Café" || got.Encoding != "UTF-8" {
		t.Errorf("Decode = (%q, %q); want (%q, %q)", got.Text, got.Encoding, "Café", "UTF-8")
	}
}

func TestDecodeLatin1FallsBackToDetectedLabel(t *testing.T) {
	d := NewTextDecoder(fixedDetector("ISO-8859-1", 60))

	got, err := d.Decode([]byte("Caf\xe9 cr\xe8me"))
	if err != nil {
		t.Fatalf("Decode returned %v", err)
	}
	if got.Text != "Café crème" {
		t.Errorf("Decode text = %q; want %q", got.Text, "Café crème")
	}
	if got.Encoding != "ISO-8859-1" {
		t.Errorf("Decode encoding = %q; want ISO-8859-1", got.Encoding)
	}
}

func TestDecodeDropsBOM(t *testing.T) {
	d := NewTextDecoder(fixedDetector("UTF-8", 100))

	got, err := d.Decode([]byte("\xef\xbb\xbfid,address"))
	if err != nil {
		t.Fatalf("Decode returned %v", err)
	}
	if got.Text != "id,address" {
		t.Errorf("Decode text = %q; want %q", got.Text, "id,address")
	}
}
