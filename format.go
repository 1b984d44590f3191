package modstrings

import (
	"bytes"
	"encoding/binary"
	"path"
	"strings"

	"github.com/meigma/modstrings/pex"
)

var extFormats = map[string]Format{
	".esp": FormatPlugin,
	".esm": FormatPlugin,
	".esl": FormatPlugin,
	".pex": FormatScript,
	".txt": FormatTranslation,
	".bsa": FormatArchive,
}

// DetectFormat identifies a file by its extension, falling back to the
// leading bytes of its content when the extension is unknown. head may
// be nil. Names may use either slash and may carry an "archive:" prefix.
func DetectFormat(name string, head []byte) Format {
	name = strings.ReplaceAll(name, `\`, "/")
	if f, ok := extFormats[strings.ToLower(path.Ext(name))]; ok {
		return f
	}
	return sniff(head)
}

func sniff(head []byte) Format {
	switch {
	case bytes.HasPrefix(head, []byte("TES4")):
		return FormatPlugin
	case bytes.HasPrefix(head, []byte("BSA\x00")):
		return FormatArchive
	case len(head) >= 4 && binary.BigEndian.Uint32(head) == pex.Magic:
		return FormatScript
	case bytes.HasPrefix(head, []byte{0xff, 0xfe}), bytes.HasPrefix(head, []byte{0xfe, 0xff}):
		return FormatTranslation
	}
	return FormatUnknown
}
