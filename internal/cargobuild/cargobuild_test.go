package cargobuild

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseArtifactStreamPicksCdylibWasm(t *testing.T) {
	stream := `{"reason":"compiler-artifact","target":{"kind":["lib"]},"filenames":["/out/libfoo.rlib"]}
{"reason":"compiler-artifact","target":{"kind":["cdylib"]},"filenames":["/out/foo.wasm"]}
{"reason":"build-finished","success":true}
`
	path, err := ParseArtifactStream([]byte(stream))
	require.NoError(t, err)
	require.Equal(t, "/out/foo.wasm", path)
}

func TestParseArtifactStreamReturnsEmptyOnFailure(t *testing.T) {
	stream := `{"reason":"compiler-artifact","target":{"kind":["cdylib"]},"filenames":["/out/foo.wasm"]}
{"reason":"build-finished","success":false}
`
	path, err := ParseArtifactStream([]byte(stream))
	require.NoError(t, err)
	require.Empty(t, path)
}

func TestParseArtifactStreamIgnoresUnknownReasons(t *testing.T) {
	stream := `{"reason":"compiler-message","message":{}}
{"reason":"compiler-artifact","target":{"kind":["cdylib"]},"filenames":["/out/bar.d","/out/bar.wasm"]}
{"reason":"build-finished","success":true}
`
	path, err := ParseArtifactStream([]byte(stream))
	require.NoError(t, err)
	require.Equal(t, "/out/bar.wasm", path)
}
