package manifest

import (
	"encoding/json"

	"github.com/jward/playpack/internal/errs"
)

// CurrentGameStandard is the only game manifest standard version playpack
// accepts.
const CurrentGameStandard = 1

// GameTag is a free-form catalog tag, e.g. "action", "indie", "early-access".
type GameTag string

// DiskType is a hardware-requirement hint, one of hdd/ssd/nvme.
type DiskType string

const (
	DiskTypeHDD  DiskType = "hdd"
	DiskTypeSSD  DiskType = "ssd"
	DiskTypeNVMe DiskType = "nvme"
)

// HardwareProfile describes one tier (minimum or recommended) of a game's
// hardware requirements. Every field is optional — publishers fill in
// whatever they have data for.
type HardwareProfile struct {
	CPU         string   `json:"cpu,omitempty"`
	GPU         string   `json:"gpu,omitempty"`
	MemoryMB    uint64   `json:"memory_mb,omitempty"`
	DiskType    DiskType `json:"disk_type,omitempty"`
	DiskSpaceMB uint64   `json:"disk_space_mb,omitempty"`
}

// HardwareRequirements pairs a minimum and a recommended profile, either
// of which may be absent.
type HardwareRequirements struct {
	Minimum     *HardwareProfile `json:"minimum,omitempty"`
	Recommended *HardwareProfile `json:"recommended,omitempty"`
}

// GameImages holds the catalog-facing artwork URLs for a game entry.
type GameImages struct {
	Cover      string `json:"cover,omitempty"`
	Icon       string `json:"icon,omitempty"`
	Background string `json:"background,omitempty"`
}

// GameManifest describes one catalog entry: a game, its presentation, and
// the package URLs that implement its installable integrations. Supplements
// the distilled spec — dropped by distillation, present in the original
// source's games/manifest package.
type GameManifest struct {
	Standard             uint64
	Slug                 string
	Title                LocalizableString
	Description          *LocalizableString
	Tags                 []GameTag
	Images               GameImages
	HardwareRequirements *HardwareRequirements
	Integrations         []Resource
}

type gameManifestWire struct {
	Standard             uint64                `json:"standard"`
	Slug                 string                `json:"slug"`
	Title                LocalizableString     `json:"title"`
	Description          *LocalizableString    `json:"description,omitempty"`
	Tags                 []GameTag             `json:"tags,omitempty"`
	Images               GameImages            `json:"images"`
	HardwareRequirements *HardwareRequirements `json:"hardware_requirements,omitempty"`
	Integrations         []Resource            `json:"integrations"`
}

// ParseGameManifest decodes a game manifest's JSON bytes.
func ParseGameManifest(data []byte) (*GameManifest, error) {
	var w gameManifestWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &errs.SerializeError{Offset: -1, Err: err}
	}
	if w.Standard == 0 {
		return nil, &errs.AsJSONError{Kind: errs.FieldNotFound, Path: "standard"}
	}
	if w.Standard != CurrentGameStandard {
		return nil, &errs.AsJSONError{Kind: errs.Other, Err: unsupportedStandardError{w.Standard}}
	}
	if w.Slug == "" {
		return nil, &errs.AsJSONError{Kind: errs.FieldNotFound, Path: "slug"}
	}
	if w.Integrations == nil {
		w.Integrations = []Resource{}
	}
	return &GameManifest{
		Standard:             w.Standard,
		Slug:                 w.Slug,
		Title:                w.Title,
		Description:          w.Description,
		Tags:                 w.Tags,
		Images:               w.Images,
		HardwareRequirements: w.HardwareRequirements,
		Integrations:         w.Integrations,
	}, nil
}

// Bytes re-encodes the game manifest as canonical JSON.
func (m *GameManifest) Bytes() ([]byte, error) {
	return json.Marshal(gameManifestWire{
		Standard:             m.Standard,
		Slug:                 m.Slug,
		Title:                m.Title,
		Description:          m.Description,
		Tags:                 m.Tags,
		Images:               m.Images,
		HardwareRequirements: m.HardwareRequirements,
		Integrations:         m.Integrations,
	})
}

// RegistryManifest is the flat games-registry document: a list of
// game-manifest URLs, fetched the way a package's inputs are fetched but
// outside the resolver's dependency graph (games are catalog entries, not
// dependency nodes).
type RegistryManifest struct {
	Standard uint64
	Games    []Resource
}

type registryManifestWire struct {
	Standard uint64     `json:"standard"`
	Games    []Resource `json:"games"`
}

// ParseRegistryManifest decodes a games-registry manifest's JSON bytes.
func ParseRegistryManifest(data []byte) (*RegistryManifest, error) {
	var w registryManifestWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &errs.SerializeError{Offset: -1, Err: err}
	}
	if w.Standard == 0 {
		return nil, &errs.AsJSONError{Kind: errs.FieldNotFound, Path: "standard"}
	}
	if w.Games == nil {
		w.Games = []Resource{}
	}
	return &RegistryManifest{Standard: w.Standard, Games: w.Games}, nil
}

// Bytes re-encodes the registry manifest as canonical JSON.
func (m *RegistryManifest) Bytes() ([]byte, error) {
	return json.Marshal(registryManifestWire{Standard: m.Standard, Games: m.Games})
}
