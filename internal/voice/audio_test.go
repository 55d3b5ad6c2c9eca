package voice

import (
	"bytes"
	"testing"
)

func TestDecodeAudioAcceptsCommonForms(t *testing.T) {
	want := []byte{0xfb, 0xff, 0x01, 0x02}
	cases := []string{
		"+/8BAg==",
		"+/8BAg",
		"-_8BAg==",
		"-_8BAg",
		"data:audio/webm;base64,+/8BAg==",
		" +/8B\nAg== ",
	}
	for _, in := range cases {
		got, err := DecodeAudio(in)
		if err != nil {
			t.Fatalf("DecodeAudio(%q) error = %v", in, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("DecodeAudio(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDecodeAudioRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "   ", "!!!not base64!!!", "data:audio/webm;base64", "data:audio/webm;base64,"} {
		_, err := DecodeAudio(in)
		if err == nil {
			t.Fatalf("DecodeAudio(%q) expected error", in)
		}
		if KindOf(err) != KindInputInvalid {
			t.Fatalf("DecodeAudio(%q) kind = %q, want %q", in, KindOf(err), KindInputInvalid)
		}
	}
}
