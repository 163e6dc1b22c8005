package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for cosigner configuration
const (
	EnvCosignerConfigFile     = "COSIGNER_CONFIG_FILE"
	EnvCosignerCluster        = "COSIGNER_CLUSTER"
	EnvCosignerLedgerURL      = "COSIGNER_LEDGER_URL"
	EnvCosignerWalletAgentURL = "COSIGNER_WALLET_AGENT_URL"
	EnvCosignerLocalKey       = "COSIGNER_LOCAL_KEY"
	EnvCosignerLocalKeyFile   = "COSIGNER_LOCAL_KEY_FILE"
	EnvCosignerLocalSigners   = "COSIGNER_LOCAL_SIGNERS"
	EnvCosignerFeePayer       = "COSIGNER_FEE_PAYER"
	EnvCosignerSignerOrder    = "COSIGNER_SIGNER_ORDER"
	EnvCosignerPort           = "COSIGNER_PORT"
	EnvCosignerVerbose        = "COSIGNER_VERBOSE"
)

type SignerRole string

func (r SignerRole) String() string {
	return string(r)
}

const (
	SignerRoleLocal  SignerRole = "local"
	SignerRoleRemote SignerRole = "remote"
)

// ParseSignerRole accepts the builtin roles and the names of additional local signers,
// which must be DNS-1123 labels.
func ParseSignerRole(s string) (SignerRole, error) {
	role := SignerRole(strings.ToLower(strings.TrimSpace(s)))
	if role == "" {
		return "", fmt.Errorf("empty signer role")
	}
	if errs := validation.IsDNS1123Label(string(role)); len(errs) > 0 {
		return "", fmt.Errorf("unsupported signer role %q: %s", s, strings.Join(errs, "; "))
	}
	return role, nil
}

func (r SignerRole) IsBuiltin() bool {
	return r == SignerRoleLocal || r == SignerRoleRemote
}

// ParseSignerOrder parses a comma separated role list such as "remote,local".
func ParseSignerOrder(s string) ([]SignerRole, error) {
	var roles []SignerRole
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		role, err := ParseSignerRole(part)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

type ClusterName string

const (
	ClusterName_Devnet  ClusterName = "devnet"
	ClusterName_Testnet ClusterName = "testnet"
	ClusterName_Mainnet ClusterName = "mainnet-beta"
	ClusterName_Local   ClusterName = "localnet"
)

var ClusterLedgerUrls = map[ClusterName]string{
	ClusterName_Devnet:  "https://api.devnet.solana.com",
	ClusterName_Testnet: "https://api.testnet.solana.com",
	ClusterName_Mainnet: "https://api.mainnet-beta.solana.com",
	ClusterName_Local:   "http://127.0.0.1:8899",
}

func GetLedgerUrlForCluster(cluster ClusterName) (string, error) {
	u, ok := ClusterLedgerUrls[cluster]
	if !ok {
		return "", fmt.Errorf("unsupported cluster: %s", cluster)
	}
	return u, nil
}

// GetSupportedClustersString returns supported clusters for CLI help
func GetSupportedClustersString() string {
	return fmt.Sprintf("%s, %s, %s, %s", ClusterName_Devnet, ClusterName_Testnet, ClusterName_Mainnet, ClusterName_Local)
}

const (
	DefaultRequestsPerSecond  = 10
	DefaultRequestBurst       = 5
	DefaultRequestTimeout     = 15 * time.Second
	DefaultWalletAgentUrl     = "ws://127.0.0.1:8546"
	DefaultConnectTimeout     = 30 * time.Second
	DefaultRemoteSignTimeout  = 2 * time.Minute
	DefaultFreshnessWindow    = 60 * time.Second
	DefaultConfirmInterval    = 2 * time.Second
	DefaultMaxConfirmAttempts = 30
	DefaultPort               = 8080
)

type LedgerConfig struct {
	Url               string        `json:"url" yaml:"url"`
	RequestsPerSecond float64       `json:"requestsPerSecond" yaml:"requestsPerSecond"`
	Burst             int           `json:"burst" yaml:"burst"`
	RequestTimeout    time.Duration `json:"requestTimeout" yaml:"requestTimeout"`
}

func (lc *LedgerConfig) Validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	if lc.Url == "" {
		allErrors = append(allErrors, field.Required(path.Child("url"), "ledger url is required"))
	} else if _, err := url.ParseRequestURI(lc.Url); err != nil {
		allErrors = append(allErrors, field.Invalid(path.Child("url"), lc.Url, err.Error()))
	}
	if lc.RequestsPerSecond <= 0 {
		allErrors = append(allErrors, field.Invalid(path.Child("requestsPerSecond"), lc.RequestsPerSecond, "must be positive"))
	}
	if lc.Burst < 1 {
		allErrors = append(allErrors, field.Invalid(path.Child("burst"), lc.Burst, "must be at least 1"))
	}
	if lc.RequestTimeout <= 0 {
		allErrors = append(allErrors, field.Invalid(path.Child("requestTimeout"), lc.RequestTimeout.String(), "must be positive"))
	}
	return allErrors
}

// RemoteSignerConfig points at the out-of-process wallet agent.
type RemoteSignerConfig struct {
	Url string `json:"url" yaml:"url"`
	// EagerConnect attempts a trusted-only connect at startup; failure is ignored.
	EagerConnect   bool          `json:"eagerConnect" yaml:"eagerConnect"`
	ConnectTimeout time.Duration `json:"connectTimeout" yaml:"connectTimeout"`
}

func (rsc *RemoteSignerConfig) Validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	if rsc.Url == "" {
		allErrors = append(allErrors, field.Required(path.Child("url"), "wallet agent url is required"))
	} else if _, err := url.ParseRequestURI(rsc.Url); err != nil {
		allErrors = append(allErrors, field.Invalid(path.Child("url"), rsc.Url, err.Error()))
	}
	if rsc.ConnectTimeout <= 0 {
		allErrors = append(allErrors, field.Invalid(path.Child("connectTimeout"), rsc.ConnectTimeout.String(), "must be positive"))
	}
	return allErrors
}

// SigningConfig assigns the fee payer role and the order signers are asked to sign in.
type SigningConfig struct {
	FeePayer          SignerRole    `json:"feePayer" yaml:"feePayer"`
	SignerOrder       []SignerRole  `json:"signerOrder" yaml:"signerOrder"`
	RemoteSignTimeout time.Duration `json:"remoteSignTimeout" yaml:"remoteSignTimeout"`
	FreshnessWindow   time.Duration `json:"freshnessWindow" yaml:"freshnessWindow"`
}

func (sc *SigningConfig) Validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	if _, err := ParseSignerRole(sc.FeePayer.String()); err != nil {
		allErrors = append(allErrors, field.Invalid(path.Child("feePayer"), sc.FeePayer, err.Error()))
	}
	seen := make(map[SignerRole]bool)
	for i, role := range sc.SignerOrder {
		p := path.Child("signerOrder").Index(i)
		if _, err := ParseSignerRole(role.String()); err != nil {
			allErrors = append(allErrors, field.Invalid(p, role, err.Error()))
			continue
		}
		if seen[role] {
			allErrors = append(allErrors, field.Duplicate(p, role))
		}
		seen[role] = true
	}
	if sc.RemoteSignTimeout <= 0 {
		allErrors = append(allErrors, field.Invalid(path.Child("remoteSignTimeout"), sc.RemoteSignTimeout.String(), "must be positive"))
	}
	if sc.FreshnessWindow <= 0 {
		allErrors = append(allErrors, field.Invalid(path.Child("freshnessWindow"), sc.FreshnessWindow.String(), "must be positive"))
	}
	return allErrors
}

// LocalSignerConfig provisions an additional in-process key addressed by Name in transfer
// requests and in the signing config.
type LocalSignerConfig struct {
	Name SignerRole `json:"name" yaml:"name"`
	// Exactly one of Key (JSON byte array or base58) and KeyFile is set.
	Key     string `json:"-" yaml:"key"`
	KeyFile string `json:"keyFile" yaml:"keyFile"`
}

func (lc *LocalSignerConfig) Validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	if _, err := ParseSignerRole(lc.Name.String()); err != nil {
		allErrors = append(allErrors, field.Invalid(path.Child("name"), lc.Name, err.Error()))
	} else if lc.Name.IsBuiltin() {
		allErrors = append(allErrors, field.Invalid(path.Child("name"), lc.Name, "name is reserved"))
	}
	switch {
	case lc.Key == "" && lc.KeyFile == "":
		allErrors = append(allErrors, field.Required(path.Child("key"), "one of key or keyFile is required"))
	case lc.Key != "" && lc.KeyFile != "":
		allErrors = append(allErrors, field.Forbidden(path.Child("keyFile"), "key and keyFile are mutually exclusive"))
	}
	return allErrors
}

// ParseLocalSigner parses a "name=keyFile" flag value.
func ParseLocalSigner(s string) (LocalSignerConfig, error) {
	name, keyFile, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(keyFile) == "" {
		return LocalSignerConfig{}, fmt.Errorf("local signer %q must have the form name=keyFile", s)
	}
	role, err := ParseSignerRole(name)
	if err != nil {
		return LocalSignerConfig{}, err
	}
	return LocalSignerConfig{Name: role, KeyFile: strings.TrimSpace(keyFile)}, nil
}

type SubmissionConfig struct {
	ConfirmInterval    time.Duration `json:"confirmInterval" yaml:"confirmInterval"`
	MaxConfirmAttempts int           `json:"maxConfirmAttempts" yaml:"maxConfirmAttempts"`
}

func (sc *SubmissionConfig) Validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	if sc.ConfirmInterval <= 0 {
		allErrors = append(allErrors, field.Invalid(path.Child("confirmInterval"), sc.ConfirmInterval.String(), "must be positive"))
	}
	if sc.MaxConfirmAttempts < 1 {
		allErrors = append(allErrors, field.Invalid(path.Child("maxConfirmAttempts"), sc.MaxConfirmAttempts, "must be at least 1"))
	}
	return allErrors
}

// CosignerConfig represents the complete configuration of a cosigner process
type CosignerConfig struct {
	Cluster ClusterName `json:"cluster" yaml:"cluster"`

	Ledger      LedgerConfig       `json:"ledger" yaml:"ledger"`
	WalletAgent RemoteSignerConfig `json:"walletAgent" yaml:"walletAgent"`

	// Exactly one of LocalKey (JSON byte array or base58) and LocalKeyFile is set.
	LocalKey     string `json:"-" yaml:"localKey"`
	LocalKeyFile string `json:"localKeyFile" yaml:"localKeyFile"`
	// LocalSigners are further in-process keys, e.g. a receiver that signs locally too.
	LocalSigners []LocalSignerConfig `json:"localSigners" yaml:"localSigners"`

	Signing    SigningConfig    `json:"signing" yaml:"signing"`
	Submission SubmissionConfig `json:"submission" yaml:"submission"`

	Port  int  `json:"port" yaml:"port"`
	Debug bool `json:"debug" yaml:"debug"`
}

func DefaultCosignerConfig() *CosignerConfig {
	return &CosignerConfig{
		Cluster: ClusterName_Devnet,
		Ledger: LedgerConfig{
			RequestsPerSecond: DefaultRequestsPerSecond,
			Burst:             DefaultRequestBurst,
			RequestTimeout:    DefaultRequestTimeout,
		},
		WalletAgent: RemoteSignerConfig{
			Url:            DefaultWalletAgentUrl,
			EagerConnect:   true,
			ConnectTimeout: DefaultConnectTimeout,
		},
		Signing: SigningConfig{
			FeePayer:          SignerRoleRemote,
			SignerOrder:       []SignerRole{SignerRoleRemote, SignerRoleLocal},
			RemoteSignTimeout: DefaultRemoteSignTimeout,
			FreshnessWindow:   DefaultFreshnessWindow,
		},
		Submission: SubmissionConfig{
			ConfirmInterval:    DefaultConfirmInterval,
			MaxConfirmAttempts: DefaultMaxConfirmAttempts,
		},
		Port: DefaultPort,
	}
}

// LoadConfigFromFile overlays a YAML file on top of the defaults
func LoadConfigFromFile(path string) (*CosignerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := DefaultCosignerConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// SignerRoles lists every role a transfer may name: the builtin roles followed by the
// configured local signers.
func (c *CosignerConfig) SignerRoles() []SignerRole {
	roles := []SignerRole{SignerRoleLocal, SignerRoleRemote}
	for _, ls := range c.LocalSigners {
		roles = append(roles, ls.Name)
	}
	return roles
}

// Validate validates the configuration and fills in the ledger url from the cluster when unset
func (c *CosignerConfig) Validate() error {
	var allErrors field.ErrorList

	if c.Ledger.Url == "" {
		ledgerUrl, err := GetLedgerUrlForCluster(c.Cluster)
		if err != nil {
			allErrors = append(allErrors, field.Invalid(field.NewPath("cluster"), c.Cluster, fmt.Sprintf("supported: %s", GetSupportedClustersString())))
		} else {
			c.Ledger.Url = ledgerUrl
		}
	}

	allErrors = append(allErrors, c.Ledger.Validate(field.NewPath("ledger"))...)
	allErrors = append(allErrors, c.WalletAgent.Validate(field.NewPath("walletAgent"))...)
	allErrors = append(allErrors, c.Signing.Validate(field.NewPath("signing"))...)
	allErrors = append(allErrors, c.Submission.Validate(field.NewPath("submission"))...)

	roles := c.SignerRoles()
	known := make(map[SignerRole]bool, len(roles))
	for _, role := range roles {
		known[role] = true
	}
	supported := make([]string, 0, len(roles))
	for _, role := range roles {
		supported = append(supported, role.String())
	}
	seenNames := make(map[SignerRole]bool)
	for i := range c.LocalSigners {
		p := field.NewPath("localSigners").Index(i)
		allErrors = append(allErrors, c.LocalSigners[i].Validate(p)...)
		if seenNames[c.LocalSigners[i].Name] {
			allErrors = append(allErrors, field.Duplicate(p.Child("name"), c.LocalSigners[i].Name))
		}
		seenNames[c.LocalSigners[i].Name] = true
	}
	signingPath := field.NewPath("signing")
	if _, err := ParseSignerRole(c.Signing.FeePayer.String()); err == nil && !known[c.Signing.FeePayer] {
		allErrors = append(allErrors, field.NotSupported(signingPath.Child("feePayer"), c.Signing.FeePayer, supported))
	}
	for i, role := range c.Signing.SignerOrder {
		if _, err := ParseSignerRole(role.String()); err == nil && !known[role] {
			allErrors = append(allErrors, field.NotSupported(signingPath.Child("signerOrder").Index(i), role, supported))
		}
	}

	switch {
	case c.LocalKey == "" && c.LocalKeyFile == "":
		allErrors = append(allErrors, field.Required(field.NewPath("localKey"), "one of localKey or localKeyFile is required"))
	case c.LocalKey != "" && c.LocalKeyFile != "":
		allErrors = append(allErrors, field.Forbidden(field.NewPath("localKeyFile"), "localKey and localKeyFile are mutually exclusive"))
	}

	if c.Port < 1 || c.Port > 65535 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("port"), c.Port, "must be between 1-65535"))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}
