// Package pack handles Git bundle files at the byte level: splitting a
// git-produced bundle into its textual header and PACK payload, synthesizing
// an empty PACK, and assembling a bundle from parts.
package pack

import (
	"bytes"
	"fmt"
	"io"

	"github.com/drmikehenry/git-ibundle/internal/wire"
)

const (
	bundleV2Signature = "# v2 git bundle"
	bundleV3Signature = "# v3 git bundle"
)

// emptyPack is the fixed empty version-2 pack: the PACK header with an
// object count of zero followed by its SHA-1 trailer. Equivalent to
// `git pack-objects --stdout < /dev/null`.
var emptyPack = []byte{
	0x50, 0x41, 0x43, 0x4b, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00,
	0x00, 0x02, 0x9d, 0x08, 0x82, 0x3b, 0xd8, 0xa8, 0xea, 0xb5, 0x10,
	0xad, 0x6a, 0xc7, 0x5c, 0x82, 0x3c, 0xfd, 0x3e, 0xd3, 0x1e,
}

// Empty returns a copy of the empty PACK.
func Empty() []byte {
	return append([]byte(nil), emptyPack...)
}

// IsEmpty reports whether data is exactly the empty PACK.
func IsEmpty(data []byte) bool {
	return bytes.Equal(data, emptyPack)
}

// Split separates a Git bundle into its header (through the blank line) and
// the raw PACK payload that follows.
func Split(data []byte) (header, packData []byte, err error) {
	if !bytes.HasPrefix(data, []byte(bundleV2Signature+"\n")) &&
		!bytes.HasPrefix(data, []byte(bundleV3Signature+"\n")) {
		return nil, nil, fmt.Errorf("not a v2/v3 git bundle")
	}
	// The header never contains an empty line, so the first one marks the
	// boundary before the PACK.
	sep := bytes.Index(data, []byte("\n\n"))
	if sep < 0 {
		return nil, nil, fmt.Errorf("git bundle missing blank line before PACK")
	}
	return data[:sep+1], data[sep+2:], nil
}

// ParseHeader extracts the prerequisite OIDs and reference entries from a
// bundle header as returned by Split. Capability lines (`@key=value`) are
// skipped; prerequisite comments are discarded.
func ParseHeader(header []byte) (prereqs []wire.OID, refs []wire.Ref, err error) {
	lines := bytes.Split(header, []byte("\n"))
	for i, line := range lines {
		if i == 0 || len(line) == 0 {
			continue
		}
		switch line[0] {
		case '@':
			continue
		case '-':
			oid, _, err := splitOIDLine(line[1:])
			if err != nil {
				return nil, nil, fmt.Errorf("bundle prerequisite line %d: %w", i+1, err)
			}
			prereqs = append(prereqs, oid)
		default:
			oid, name, err := splitOIDLine(line)
			if err != nil {
				return nil, nil, fmt.Errorf("bundle reference line %d: %w", i+1, err)
			}
			if name == "" {
				return nil, nil, fmt.Errorf("bundle reference line %d: missing ref name", i+1)
			}
			refs = append(refs, wire.Ref{Name: name, OID: oid})
		}
	}
	return prereqs, refs, nil
}

func splitOIDLine(line []byte) (wire.OID, string, error) {
	hex := line
	rest := []byte(nil)
	if sp := bytes.IndexByte(line, ' '); sp >= 0 {
		hex, rest = line[:sp], line[sp+1:]
	}
	oid, err := wire.ParseOID(string(hex))
	if err != nil {
		return "", "", err
	}
	return oid, string(rest), nil
}

// Assemble writes a v2 bundle: header with the given prerequisites and
// references, a blank line, then the PACK payload verbatim. Git refuses
// bundles without references when the PACK is non-empty; callers are
// expected to supply at least one reference in that case.
func Assemble(w io.Writer, prereqs []wire.OID, refs []wire.Ref, packData []byte) error {
	var buf bytes.Buffer
	buf.WriteString(bundleV2Signature)
	buf.WriteByte('\n')
	for _, oid := range prereqs {
		buf.WriteByte('-')
		buf.WriteString(string(oid))
		buf.WriteByte('\n')
	}
	for _, ref := range refs {
		buf.WriteString(string(ref.OID))
		buf.WriteByte(' ')
		buf.WriteString(ref.Name)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(packData)
	return err
}
