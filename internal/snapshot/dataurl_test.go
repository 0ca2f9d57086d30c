package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	url := Encode([]byte("hi"), "image/gif")
	require.Equal(t, "data:image/gif;base64,aGk=", url)

	data, mime, err := Decode(url)
	require.NoError(t, err)
	require.Equal(t, "image/gif", mime)
	require.Equal(t, []byte("hi"), data)
}

func TestEncode_DefaultMIME(t *testing.T) {
	require.Equal(t, "data:application/octet-stream;base64,", Encode(nil, ""))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantData string
		wantMIME string
	}{
		{"no mime", "data:;base64,aGk=", "hi", DefaultMIME},
		{"params before base64", "data:image/svg+xml;charset=utf-8;base64,PHN2Zy8+", "<svg/>", "image/svg+xml"},
		{"plain text body", "data:text/plain,a%20b", "a b", "text/plain"},
		{"bare", "data:,x", "x", DefaultMIME},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, mime, err := Decode(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.wantData, string(data))
			require.Equal(t, tt.wantMIME, mime)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	for _, in := range []string{
		"image/png;base64,aGk=",
		"data:image/png;base64",
		"data:image/png;base64,@@@",
		"data:text/plain,%zz",
	} {
		_, _, err := Decode(in)
		require.Error(t, err, in)
	}
}
