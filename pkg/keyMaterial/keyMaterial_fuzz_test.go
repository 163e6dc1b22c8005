package keyMaterial

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func FuzzLoad(f *testing.F) {
	f.Add(make([]byte, KeyPairLength))
	f.Add([]byte(testKeyPair(7)))
	f.Add([]byte{1, 2, 3})

	f.Fuzz(func(t *testing.T, b []byte) {
		km, err := Load(b)
		if err != nil {
			return
		}
		// Anything accepted must sign verifiably.
		sig, err := km.Sign([]byte("fuzz"))
		require.NoError(t, err)
		require.True(t, Verify(km.Identity(), []byte("fuzz"), sig))
	})
}

func FuzzLoadFromString(f *testing.F) {
	f.Add("")
	f.Add("[1,2,3]")
	f.Add("not base58 0OIl")
	f.Add("[" + "300" + "]")

	f.Fuzz(func(t *testing.T, s string) {
		if len(s) > 4096 {
			s = s[:4096]
		}
		km, err := LoadFromString(s)
		if err != nil {
			return
		}
		require.True(t, km.HasSecret())
	})
}
