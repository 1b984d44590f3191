package bsa

import "strings"

const hashMultiplier = 0x1003F

var extensionBits = map[string]uint32{
	".kf":  0x80,
	".nif": 0x8000,
	".dds": 0x8080,
	".wav": 0x80000000,
}

// HashName computes the 64-bit hash the archive stores for a file name.
// The name is lowercased and the extension is hashed separately.
func HashName(name string) uint64 {
	name = strings.ToLower(strings.ReplaceAll(name, "/", `\`))
	root, ext := name, ""
	if i := strings.LastIndexByte(name, '.'); i >= 0 && i > strings.LastIndexByte(name, '\\') {
		root, ext = name[:i], name[i:]
	}
	return hash(root, ext)
}

// HashFolder computes the 64-bit hash the archive stores for a folder path.
func HashFolder(path string) uint64 {
	path = strings.ToLower(strings.Trim(strings.ReplaceAll(path, "/", `\`), `\`))
	return hash(path, "")
}

func hash(root, ext string) uint64 {
	var low uint32
	if n := len(root); n > 0 {
		low = uint32(root[n-1]) | uint32(n)<<16 | uint32(root[0])<<24 //nolint:gosec // names are short
		if n > 2 {
			low |= uint32(root[n-2]) << 8
		}
	}
	low |= extensionBits[ext]

	var high uint32
	for i := 1; i < len(root)-2; i++ {
		high = high*hashMultiplier + uint32(root[i])
	}
	var extHash uint32
	for i := range len(ext) {
		extHash = extHash*hashMultiplier + uint32(ext[i])
	}
	high += extHash
	return uint64(high)<<32 | uint64(low)
}
