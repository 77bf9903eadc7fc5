// Package config defines the root configuration for the arbiter engine.
//
// Configuration is YAML on disk, loaded once at startup. Loading applies
// defaults, then optional ARBITER_* environment overrides, then validates
// the final structure. Section types delegate to the packages that consume
// them, so every tunable lives next to the code it tunes.
package config
