package playpack

import (
	"github.com/jward/playpack/internal/hashcodec"
	"github.com/jward/playpack/internal/manifest"
	"github.com/jward/playpack/internal/scriptengine"
)

// Public type aliases for internal types used across the facade API.
// These are Go type aliases (=) — identical to the internal types at
// compile time. External consumers use these names; no conversion is
// needed.

type H = hashcodec.H
type PackageManifest = manifest.PackageManifest
type LockfileManifest = manifest.LockfileManifest
type GenerationManifest = manifest.GenerationManifest
type GameLock = manifest.GameLock
type GameManifest = manifest.GameManifest
type RegistryManifest = manifest.RegistryManifest
type ResourceFormat = manifest.ResourceFormat

type BaseDirs = scriptengine.BaseDirs
type Engine = scriptengine.Engine
type EngineOption = scriptengine.Option
