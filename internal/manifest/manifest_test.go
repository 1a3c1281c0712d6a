package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/playpack/internal/hashcodec"
)

func TestPackageManifest_RoundTrip(t *testing.T) {
	h := hashcodec.H(0xdeadbeefcafef00d)
	pkg := &PackageManifest{
		Standard: CurrentPackageStandard,
		Metadata: PackageMetadata{Homepage: "https://example.test", Maintainers: []string{"ana"}},
		Outputs: map[string]Resource{
			"module": {URI: "module.tar", Format: FormatArchiveTar, Hash: &h},
		},
	}
	b, err := pkg.Bytes()
	require.NoError(t, err)

	got, err := ParsePackageManifest(b)
	require.NoError(t, err)
	assert.Equal(t, pkg.Standard, got.Standard)
	assert.Equal(t, pkg.Metadata.Homepage, got.Metadata.Homepage)
	assert.Equal(t, pkg.Metadata.Maintainers, got.Metadata.Maintainers)
	assert.Equal(t, pkg.Outputs, got.Outputs)
}

func TestPackageManifest_RejectsMissingOutputs(t *testing.T) {
	_, err := ParsePackageManifest([]byte(`{"standard":1,"metadata":{}}`))
	require.Error(t, err)
}

func TestPackageManifest_RejectsUnsupportedStandard(t *testing.T) {
	_, err := ParsePackageManifest([]byte(`{"standard":2,"outputs":{"a":{"uri":"x"}}}`))
	require.Error(t, err)
}

func TestLockfileManifest_RoundTrip(t *testing.T) {
	lf := &LockfileManifest{
		Standard: CurrentLockfileStandard,
		Metadata: LockfileMetadata{GeneratedAt: 1700000000},
		Root:     []uint32{0},
		Resources: []ResourceLock{
			{URL: "https://example.test/package.json", Format: FormatPackage,
				Lock: Lock{Hash: 1, Size: 10}, Outputs: map[string]uint32{"module": 1}},
			{URL: "https://example.test/mod.tar", Format: FormatArchiveTar, Lock: Lock{Hash: 2, Size: 20}},
		},
	}
	require.NoError(t, lf.Validate())

	b, err := lf.Bytes()
	require.NoError(t, err)
	got, err := ParseLockfileManifest(b)
	require.NoError(t, err)
	assert.Equal(t, lf.Root, got.Root)
	assert.Equal(t, lf.Resources, got.Resources)
	assert.NoError(t, got.Validate())
}

func TestLockfileManifest_ValidateRejectsBadRoot(t *testing.T) {
	lf := &LockfileManifest{
		Standard:  CurrentLockfileStandard,
		Root:      []uint32{0},
		Resources: []ResourceLock{{URL: "x", Format: FormatFile, Lock: Lock{Hash: 1, Size: 1}}},
	}
	assert.Error(t, lf.Validate())
}

func TestLockfileManifest_ValidateRejectsInputsOnNonPackage(t *testing.T) {
	lf := &LockfileManifest{
		Standard: CurrentLockfileStandard,
		Resources: []ResourceLock{
			{URL: "x", Format: FormatFile, Lock: Lock{Hash: 1, Size: 1}, Inputs: map[string]uint32{"a": 0}},
		},
	}
	assert.Error(t, lf.Validate())
}

func TestGenerationManifest_HashIsDeterministic(t *testing.T) {
	gen := &GenerationManifest{
		LockFile:    LockfileManifest{Standard: CurrentLockfileStandard},
		Games:       []GameLock{{Slug: "a-game", Lock: Lock{Hash: 1, Size: 1}}},
		GeneratedAt: 1700000000,
	}
	h1, err := gen.Hash()
	require.NoError(t, err)
	h2, err := gen.Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestGameManifest_RoundTrip(t *testing.T) {
	game := &GameManifest{
		Standard: CurrentGameStandard,
		Slug:     "anime-quest",
		Title:    NewLocalizable("Anime Quest"),
		Tags:     []GameTag{"action", "indie"},
		Images:   GameImages{Cover: "https://example.test/cover.png"},
		HardwareRequirements: &HardwareRequirements{
			Minimum: &HardwareProfile{MemoryMB: 4096, DiskType: DiskTypeSSD},
		},
		Integrations: []Resource{{URI: "https://example.test/package.json"}},
	}
	b, err := game.Bytes()
	require.NoError(t, err)

	got, err := ParseGameManifest(b)
	require.NoError(t, err)
	assert.Equal(t, game.Slug, got.Slug)
	assert.Equal(t, game.Title, got.Title)
	assert.Equal(t, game.HardwareRequirements.Minimum.MemoryMB, got.HardwareRequirements.Minimum.MemoryMB)
	assert.Equal(t, game.Integrations, got.Integrations)
}

func TestGameManifest_RejectsMissingSlug(t *testing.T) {
	_, err := ParseGameManifest([]byte(`{"standard":1,"title":"x","images":{},"integrations":[]}`))
	require.Error(t, err)
}

func TestRegistryManifest_RoundTrip(t *testing.T) {
	reg := &RegistryManifest{
		Standard: 1,
		Games:    []Resource{{URI: "https://example.test/games/a.json"}},
	}
	b, err := reg.Bytes()
	require.NoError(t, err)
	got, err := ParseRegistryManifest(b)
	require.NoError(t, err)
	assert.Equal(t, reg.Games, got.Games)
}
