package util

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeDataURI(t *testing.T) {
	uri := EncodeDataURI("image/png", []byte("png-bytes"))
	assert.Equal(t, "data:image/png;base64,cG5nLWJ5dGVz", uri)

	mimeType, data, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestDataURIRoundTrip(t *testing.T) {
	allBytes := make([]byte, 256)
	for i := range allBytes {
		allBytes[i] = byte(i)
	}
	rng := rand.New(rand.NewSource(42))
	blob := func(n int) []byte {
		b := make([]byte, n)
		rng.Read(b)
		return b
	}

	tests := []struct {
		name string
		mime string
		data []byte
	}{
		{"empty", "image/png", nil},
		{"all byte values", "application/octet-stream", allBytes},
		{"single zero", "image/jpeg", []byte{0}},
		{"random small", "image/webp", blob(7)},
		{"random large", "application/pdf", blob(64 * 1024)},
		{"mime with params", "text/plain;charset=utf-8", []byte("héllo, wörld")},
		{"mime with several params", "image/svg+xml;charset=utf-8;q=0.9", blob(33)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uri := EncodeDataURI(tt.mime, tt.data)

			mimeType, data, err := DecodeDataURI(uri)
			require.NoError(t, err)
			assert.Equal(t, tt.mime, mimeType)
			assert.True(t, bytes.Equal(tt.data, data), "payload differs")

			size, err := DecodedSize(uri)
			require.NoError(t, err)
			assert.Equal(t, len(tt.data), size)
		})
	}
}

func FuzzDataURIRoundTrip(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0, 255, 128})
	f.Add([]byte("plain text"))
	f.Fuzz(func(t *testing.T, payload []byte) {
		for _, mimeType := range []string{"image/png", "text/plain;charset=utf-8"} {
			got, data, err := DecodeDataURI(EncodeDataURI(mimeType, payload))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != mimeType || !bytes.Equal(payload, data) {
				t.Fatalf("round trip mismatch for %s", mimeType)
			}
		}
	})
}

// An empty MIME type is encoded, and therefore decoded, as
// application/octet-stream.
func TestEncodeDataURI_DefaultMIME(t *testing.T) {
	uri := EncodeDataURI("", []byte("hi"))
	assert.Equal(t, "data:application/octet-stream;base64,aGk=", uri)

	mimeType, data, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", mimeType)
	assert.Equal(t, []byte("hi"), data)
}

func TestDecodeDataURI_Invalid(t *testing.T) {
	tests := []struct {
		name string
		uri  string
	}{
		{"no scheme", "image/png;base64,aGk="},
		{"no separator", "data:image/png;base64"},
		{"not base64", "data:text/plain,hello"},
		{"bad payload", "data:image/png;base64,!!!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeDataURI(tt.uri)
			assert.ErrorIs(t, err, ErrInvalidDataURI)
		})
	}
}

func TestDecodeDataURI_EmptyMIME(t *testing.T) {
	mimeType, data, err := DecodeDataURI("data:;base64,aGk=")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mimeType)
	assert.Equal(t, "hi", string(data))
}

func TestDecodedSize(t *testing.T) {
	for _, payload := range []string{"", "a", "ab", "abc", "abcd", "hello world"} {
		size, err := DecodedSize(EncodeDataURI("text/plain", []byte(payload)))
		require.NoError(t, err)
		assert.Equal(t, len(payload), size, "payload %q", payload)
	}

	_, err := DecodedSize("not a uri")
	assert.ErrorIs(t, err, ErrInvalidDataURI)
}

func TestDetectMIME(t *testing.T) {
	assert.Equal(t, "image/png", DetectMIME("scan.PNG", nil))
	assert.Equal(t, "application/pdf", DetectMIME("essay.pdf", nil))
	assert.Equal(t, "image/png", DetectMIME("upload", []byte("\x89PNG\r\n\x1a\n0000")))
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".jpg", ExtensionFor("image/jpeg"))
	assert.Equal(t, ".png", ExtensionFor("image/png"))
	assert.Equal(t, ".pdf", ExtensionFor("application/pdf"))
	assert.Equal(t, ".bin", ExtensionFor("application/x-unknown-thing"))
}

func TestEncodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answer.png")
	require.NoError(t, os.WriteFile(path, []byte("image"), 0o600))

	uri, err := EncodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, EncodeDataURI("image/png", []byte("image")), uri)

	_, err = EncodeFile(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestExpandDocuments_KeepsImagesInOrder(t *testing.T) {
	images := []string{
		EncodeDataURI("image/jpeg", []byte("page one")),
		EncodeDataURI("image/png", []byte("page two")),
	}
	out, err := ExpandDocuments(images)
	require.NoError(t, err)
	assert.Equal(t, images, out)
}

func TestExpandDocuments_RejectsBrokenInput(t *testing.T) {
	_, err := ExpandDocuments([]string{"garbage"})
	assert.ErrorIs(t, err, ErrInvalidDataURI)

	_, err = ExpandDocuments([]string{EncodeDataURI(pdfMIME, []byte("not a pdf"))})
	assert.Error(t, err)
}
