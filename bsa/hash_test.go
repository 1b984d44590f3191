package bsa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want uint64
	}{
		{"a.kf", 0x1711E3E9610100E1},
		{"ab.dds", 0x8DDBA9C5610280E2},
		{`meshes\test.nif`, 0x00ABFC626D0BF374},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HashName(tt.name), tt.name)
	}
}

func TestHashName_Normalizes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, HashName(`meshes\test.nif`), HashName("MESHES/Test.NIF"))
	assert.NotEqual(t, HashName("test.nif"), HashName("test.dds"))
}

func TestHashFolder(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(0xD507789E74086573), HashFolder("textures"))
	assert.Equal(t, HashFolder("textures"), HashFolder(`Textures\`))
	assert.Equal(t, uint64(0), HashFolder(""))
}
