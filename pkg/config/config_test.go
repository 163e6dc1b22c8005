package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *CosignerConfig {
	cfg := DefaultCosignerConfig()
	cfg.LocalKeyFile = "/etc/cosigner/id.json"
	return cfg
}

func Test_CosignerConfigValidate(t *testing.T) {
	t.Run("defaults plus a key are valid", func(t *testing.T) {
		cfg := validConfig()
		require.NoError(t, cfg.Validate())
		assert.Equal(t, ClusterLedgerUrls[ClusterName_Devnet], cfg.Ledger.Url)
	})

	t.Run("explicit ledger url wins over cluster", func(t *testing.T) {
		cfg := validConfig()
		cfg.Ledger.Url = "http://localhost:9999"
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://localhost:9999", cfg.Ledger.Url)
	})

	t.Run("unknown cluster", func(t *testing.T) {
		cfg := validConfig()
		cfg.Cluster = "moon"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cluster")
	})

	t.Run("missing key", func(t *testing.T) {
		cfg := DefaultCosignerConfig()
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "localKey")
	})

	t.Run("both key sources", func(t *testing.T) {
		cfg := validConfig()
		cfg.LocalKey = "[1,2,3]"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mutually exclusive")
	})

	t.Run("aggregates every problem", func(t *testing.T) {
		cfg := validConfig()
		cfg.Port = 0
		cfg.Signing.FeePayer = "treasury"
		cfg.Signing.SignerOrder = []SignerRole{SignerRoleLocal, SignerRoleLocal}
		cfg.Submission.MaxConfirmAttempts = 0
		cfg.WalletAgent.Url = ""
		err := cfg.Validate()
		require.Error(t, err)
		for _, want := range []string{"port", "signing.feePayer", "signing.signerOrder[1]", "submission.maxConfirmAttempts", "walletAgent.url"} {
			assert.Contains(t, err.Error(), want)
		}
	})
}

func Test_ParseSignerOrder(t *testing.T) {
	roles, err := ParseSignerOrder("remote, LOCAL")
	require.NoError(t, err)
	assert.Equal(t, []SignerRole{SignerRoleRemote, SignerRoleLocal}, roles)

	roles, err = ParseSignerOrder("")
	require.NoError(t, err)
	assert.Empty(t, roles)

	roles, err = ParseSignerOrder("remote,receiver")
	require.NoError(t, err)
	assert.Equal(t, []SignerRole{SignerRoleRemote, "receiver"}, roles)

	_, err = ParseSignerOrder("remote,not a name")
	require.Error(t, err)
}

func Test_LocalSigners(t *testing.T) {
	t.Run("named local signer can pay fees and sign first", func(t *testing.T) {
		cfg := validConfig()
		cfg.LocalSigners = []LocalSignerConfig{{Name: "receiver", KeyFile: "/keys/receiver.json"}}
		cfg.Signing.FeePayer = "receiver"
		cfg.Signing.SignerOrder = []SignerRole{"receiver", SignerRoleLocal}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, []SignerRole{SignerRoleLocal, SignerRoleRemote, "receiver"}, cfg.SignerRoles())
	})

	t.Run("unknown names are rejected", func(t *testing.T) {
		cfg := validConfig()
		cfg.Signing.SignerOrder = []SignerRole{"receiver"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "signing.signerOrder[0]")
	})

	t.Run("bad local signer entries", func(t *testing.T) {
		cfg := validConfig()
		cfg.LocalSigners = []LocalSignerConfig{
			{Name: "remote", KeyFile: "/keys/a.json"},
			{Name: "receiver"},
			{Name: "treasury", Key: "[1]", KeyFile: "/keys/b.json"},
			{Name: "treasury", KeyFile: "/keys/c.json"},
		}
		err := cfg.Validate()
		require.Error(t, err)
		for _, want := range []string{"localSigners[0].name", "localSigners[1].key", "localSigners[2].keyFile", "localSigners[3].name"} {
			assert.Contains(t, err.Error(), want)
		}
	})

	t.Run("flag form", func(t *testing.T) {
		ls, err := ParseLocalSigner("Receiver=/keys/receiver.json")
		require.NoError(t, err)
		assert.Equal(t, LocalSignerConfig{Name: "receiver", KeyFile: "/keys/receiver.json"}, ls)

		_, err = ParseLocalSigner("receiver")
		assert.Error(t, err)
	})
}

func Test_LoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cosigner.yaml")
	contents := `
cluster: localnet
localKeyFile: /keys/sender.json
walletAgent:
  url: ws://wallet.local:8546
localSigners:
  - name: receiver
    keyFile: /keys/receiver.json
signing:
  feePayer: local
  signerOrder: [local, remote]
  remoteSignTimeout: 45s
submission:
  confirmInterval: 500ms
  maxConfirmAttempts: 4
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ClusterName_Local, cfg.Cluster)
	assert.Equal(t, "http://127.0.0.1:8899", cfg.Ledger.Url)
	assert.Equal(t, SignerRoleLocal, cfg.Signing.FeePayer)
	assert.Equal(t, []SignerRole{SignerRoleLocal, SignerRoleRemote}, cfg.Signing.SignerOrder)
	assert.Equal(t, 45*time.Second, cfg.Signing.RemoteSignTimeout)
	assert.Equal(t, DefaultFreshnessWindow, cfg.Signing.FreshnessWindow)
	assert.Equal(t, 500*time.Millisecond, cfg.Submission.ConfirmInterval)
	assert.Equal(t, 4, cfg.Submission.MaxConfirmAttempts)
	assert.True(t, cfg.WalletAgent.EagerConnect)
	require.Len(t, cfg.LocalSigners, 1)
	assert.Equal(t, SignerRole("receiver"), cfg.LocalSigners[0].Name)

	_, err = LoadConfigFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
