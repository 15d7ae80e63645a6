package wire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUvarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 16384, 1 << 32, 1<<64 - 1}
	var w Writer
	for _, v := range values {
		w.Uvarint(v)
	}

	r := NewReader(w.Output())
	for _, want := range values {
		got, err := r.Uvarint()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 0, r.Remaining())
}

func TestUvarintLEB128Encoding(t *testing.T) {
	// 300 = 0b100101100: low 7 bits first, high bit marks continuation.
	var w Writer
	w.Uvarint(300)
	assert.Equal(t, []byte{0xac, 0x02}, w.Output())
}

func TestBytesRoundTrip(t *testing.T) {
	var w Writer
	w.Bytes([]byte("refs/heads/main"))
	w.Bytes(nil)
	w.Bytes([]byte{0xff, 0x00, 0xfe}) // non-UTF8 ref names must survive

	r := NewReader(w.Output())
	b, err := r.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/main", string(b))

	b, err = r.Bytes()
	require.NoError(t, err)
	assert.Empty(t, b)

	b, err = r.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0x00, 0xfe}, b)
}

func TestReaderTruncation(t *testing.T) {
	r := NewReader([]byte{0x05, 'a', 'b'}) // declares 5 bytes, has 2
	_, err := r.Bytes()
	assert.ErrorIs(t, err, ErrTruncated)

	r = NewReader(nil)
	_, err = r.Byte()
	assert.ErrorIs(t, err, ErrTruncated)

	r = NewReader([]byte{0x80}) // unterminated varint
	_, err = r.Uvarint()
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestParseOID(t *testing.T) {
	sha1 := strings.Repeat("ab", 20)
	oid, err := ParseOID(sha1)
	require.NoError(t, err)
	assert.Equal(t, OIDSizeSHA1, oid.RawSize())

	sha256 := strings.Repeat("cd", 32)
	oid, err = ParseOID(sha256)
	require.NoError(t, err)
	assert.Equal(t, OIDSizeSHA256, oid.RawSize())

	_, err = ParseOID("xyz")
	assert.Error(t, err)
	_, err = ParseOID(strings.Repeat("ab", 10))
	assert.Error(t, err)
	_, err = ParseOID(strings.ToUpper(sha1))
	assert.Error(t, err)
}

func TestOIDRawRoundTrip(t *testing.T) {
	oid, err := ParseOID(strings.Repeat("0f", 20))
	require.NoError(t, err)
	raw, err := oid.Raw()
	require.NoError(t, err)
	assert.Equal(t, oid, OIDFromRaw(raw))
}

func TestHead(t *testing.T) {
	assert.False(t, Head{}.Present())
	assert.Equal(t, "(none)", Head{}.String())

	h := SymbolicHead("refs/heads/main")
	assert.True(t, h.Present())
	assert.Equal(t, "refs/heads/main", h.String())

	oid := OID(strings.Repeat("12", 20))
	h = DetachedHead(oid)
	assert.True(t, h.Present())
	assert.Equal(t, string(oid)+" (detached)", h.String())
}
