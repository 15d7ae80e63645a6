package pack

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drmikehenry/git-ibundle/internal/wire"
)

func oid(pair string) wire.OID {
	return wire.OID(strings.Repeat(pair, 20))
}

func TestEmptyPack(t *testing.T) {
	p := Empty()
	assert.Len(t, p, 32)
	assert.Equal(t, []byte("PACK"), p[:4])
	assert.True(t, IsEmpty(p))

	// Callers may hold onto the slice; mutations must not leak back.
	p[0] = 0
	assert.True(t, IsEmpty(Empty()))
}

func TestSplit(t *testing.T) {
	header := "# v2 git bundle\n" +
		"-" + string(oid("aa")) + " basis commit\n" +
		string(oid("bb")) + " refs/heads/main\n"
	data := append([]byte(header+"\n"), Empty()...)

	gotHeader, gotPack, err := Split(data)
	require.NoError(t, err)
	assert.Equal(t, []byte(header), gotHeader)
	assert.True(t, IsEmpty(gotPack))
}

func TestSplitV3(t *testing.T) {
	header := "# v3 git bundle\n" +
		"@object-format=sha256\n" +
		strings.Repeat("cc", 32) + " refs/heads/main\n"
	data := append([]byte(header+"\n"), Empty()...)

	gotHeader, _, err := Split(data)
	require.NoError(t, err)
	assert.Equal(t, []byte(header), gotHeader)
}

func TestSplitRejectsNonBundle(t *testing.T) {
	_, _, err := Split([]byte("PACK..."))
	assert.Error(t, err)

	_, _, err = Split([]byte("# v2 git bundle\nno blank line"))
	assert.Error(t, err)
}

func TestParseHeader(t *testing.T) {
	header := []byte("# v2 git bundle\n" +
		"@object-format=sha1\n" +
		"-" + string(oid("aa")) + " first commit\n" +
		"-" + string(oid("ab")) + "\n" +
		string(oid("bb")) + " refs/heads/main\n" +
		string(oid("cc")) + " refs/tags/v1\n")

	prereqs, refs, err := ParseHeader(header)
	require.NoError(t, err)
	assert.Equal(t, []wire.OID{oid("aa"), oid("ab")}, prereqs)
	require.Len(t, refs, 2)
	assert.Equal(t, wire.Ref{Name: "refs/heads/main", OID: oid("bb")}, refs[0])
	assert.Equal(t, wire.Ref{Name: "refs/tags/v1", OID: oid("cc")}, refs[1])
}

func TestParseHeaderRejectsBadOID(t *testing.T) {
	_, _, err := ParseHeader([]byte("# v2 git bundle\nnothex refs/heads/main\n"))
	assert.Error(t, err)
}

func TestAssembleRoundTrip(t *testing.T) {
	prereqs := []wire.OID{oid("aa")}
	refs := []wire.Ref{
		{Name: "refs/heads/main", OID: oid("bb")},
		{Name: "refs/tags/v1", OID: oid("cc")},
	}

	var buf bytes.Buffer
	require.NoError(t, Assemble(&buf, prereqs, refs, Empty()))

	header, packData, err := Split(buf.Bytes())
	require.NoError(t, err)
	assert.True(t, IsEmpty(packData))

	gotPrereqs, gotRefs, err := ParseHeader(header)
	require.NoError(t, err)
	assert.Equal(t, prereqs, gotPrereqs)
	assert.Equal(t, refs, gotRefs)
}

func TestAssembleNoRefs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Assemble(&buf, nil, nil, Empty()))
	assert.Equal(t, append([]byte("# v2 git bundle\n\n"), Empty()...), buf.Bytes())
}
