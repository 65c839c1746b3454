package provider

import (
	"embed"
	"io/fs"
)

//go:embed manifests
var builtinManifests embed.FS

// BuiltinManifests returns the descriptor files compiled into the binary.
func BuiltinManifests() fs.FS {
	sub, err := fs.Sub(builtinManifests, "manifests")
	if err != nil {
		panic(err)
	}
	return sub
}
