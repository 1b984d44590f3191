package bsa

import (
	"testing"

	"github.com/stretchr/testify/assert"

	tu "github.com/meigma/modstrings/internal/testutil"
)

func TestGlob(t *testing.T) {
	t.Parallel()

	a := parseArchive(t, tu.Archive(t, Version105, names,
		tu.ArchiveMember{Folder: "scripts", Name: "quest.pex"},
		tu.ArchiveMember{Folder: `scripts\source`, Name: "quest.psc"},
		tu.ArchiveMember{Folder: `interface\translations`, Name: "mymod_english.txt"},
		tu.ArchiveMember{Folder: `interface\translations`, Name: "mymod_german.txt"},
		tu.ArchiveMember{Folder: "textures", Name: "[x].dds"},
	))

	tests := []struct {
		pattern string
		want    []string
	}{
		{"*.pex", []string{"scripts/quest.pex"}},
		{"scripts/*", []string{"scripts/quest.pex", "scripts/source/quest.psc"}},
		{"*", []string{
			"scripts/quest.pex",
			"scripts/source/quest.psc",
			"interface/translations/mymod_english.txt",
			"interface/translations/mymod_german.txt",
			"textures/[x].dds",
		}},
		{"scripts*", []string{"scripts/quest.pex", "scripts/source/quest.psc"}},
		{`INTERFACE\Translations\*_ENGLISH.txt`, []string{"interface/translations/mymod_english.txt"}},
		{"*_[eg]*.txt", []string{
			"interface/translations/mymod_english.txt",
			"interface/translations/mymod_german.txt",
		}},
		{"*_[!e]*.txt", []string{"interface/translations/mymod_german.txt"}},
		{"scripts/quest.ps?", nil},
		{"*quest.ps?", []string{"scripts/source/quest.psc"}},
		{"textures/[x].dds", nil},
		{"textures/[[]x].dds", []string{"textures/[x].dds"}},
		{"*[x*", []string{"textures/[x].dds"}},
		{"*.esp", nil},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, a.Glob(tt.pattern))
		})
	}
}
