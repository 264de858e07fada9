// Package config loads and validates the conversion pipeline's HCL
// configuration. Validation happens once at startup; any invalid value is
// fatal before a single image is processed.
package config
