package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gopkg.in/yaml.v3"
)

// Config carries every knob a sync run needs. It is resolved once at startup
// (env, optional YAML file, then CLI flags on top) and passed by value into
// the engine so two course sources can run in one process without shared
// mutable state.
type Config struct {
	// MirrorRoot is the local directory course mirrors are created under.
	MirrorRoot string `yaml:"mirror_root"`

	// Force re-fetches every classifiable item even when the target file exists.
	Force bool `yaml:"force"`

	// NoVideo disables hosted-video downloads entirely.
	NoVideo bool `yaml:"no_video"`

	// MaxParallel bounds concurrent downloads within one container.
	// 1 keeps the walker fully sequential.
	MaxParallel int `yaml:"max_parallel"`

	Brightspace BrightspaceConfig `yaml:"brightspace"`
	Google      GoogleConfig      `yaml:"google"`
	SFTP        SFTPConfig        `yaml:"sftp"`
}

// BrightspaceConfig holds the D2L endpoint and session cookies.
type BrightspaceConfig struct {
	BaseURL          string `yaml:"base_url"`
	SessionVal       string `yaml:"session_val"`
	SecureSessionVal string `yaml:"secure_session_val"`
	// CookiesFile is a JSON cookie export ([{"name":...,"value":...}, ...]).
	// Takes precedence over the two session values.
	CookiesFile string `yaml:"cookies_file"`
}

// GoogleConfig holds the OAuth client secrets and token cache locations.
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
}

// SFTPConfig configures the optional post-sync upload of a finished mirror.
type SFTPConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	User                  string `yaml:"user"`
	Pass                  string `yaml:"pass"`
	RemoteDir             string `yaml:"remote_dir"`
	InsecureIgnoreHostKey bool   `yaml:"insecure_ignore_host_key"`
}

// Load resolves configuration from environment variables with defaults.
func Load() Config {
	return Config{
		MirrorRoot:  getenv("SINGULARITY_MIRROR_ROOT", "./Downloads"),
		Force:       getenvBool("SINGULARITY_FORCE", false),
		NoVideo:     getenvBool("SINGULARITY_NO_VIDEO", false),
		MaxParallel: getenvInt("SINGULARITY_MAX_PARALLEL", 1),

		Brightspace: BrightspaceConfig{
			BaseURL:          os.Getenv("BRIGHTSPACE_BASE_URL"),
			SessionVal:       os.Getenv("BRIGHTSPACE_SESSION_VAL"),
			SecureSessionVal: os.Getenv("BRIGHTSPACE_SECURE_SESSION_VAL"),
			CookiesFile:      os.Getenv("BRIGHTSPACE_COOKIES_FILE"),
		},

		Google: GoogleConfig{
			CredentialsFile: getenv("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
			TokenFile:       getenv("GOOGLE_TOKEN_FILE", "token.json"),
		},

		SFTP: SFTPConfig{
			Host:                  os.Getenv("SFTP_HOST"),
			Port:                  getenvInt("SFTP_PORT", 22),
			User:                  os.Getenv("SFTP_USER"),
			Pass:                  os.Getenv("SFTP_PASS"),
			RemoteDir:             getenv("SFTP_REMOTE_DIR", "/"),
			InsecureIgnoreHostKey: getenvBool("SFTP_INSECURE_IGNORE_HOST_KEY", false),
		},
	}
}

// LoadFile overlays values from a YAML file onto cfg. Environment variable
// references inside the file are expanded before parsing.
func LoadFile(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", filename, err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", filename, err)
	}
	return nil
}

// ValidateBrightspace checks the fields a Brightspace sync needs.
func (c Config) ValidateBrightspace() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.MirrorRoot, validation.Required),
		validation.Field(&c.MaxParallel, validation.Min(1)),
	); err != nil {
		return err
	}

	bs := c.Brightspace
	if err := validation.ValidateStruct(&bs,
		validation.Field(&bs.BaseURL, validation.Required, is.URL),
	); err != nil {
		return fmt.Errorf("brightspace: %w", err)
	}

	if bs.CookiesFile == "" && (bs.SessionVal == "" || bs.SecureSessionVal == "") {
		return fmt.Errorf("brightspace: provide a cookies file or both session cookie values")
	}
	return nil
}

// ValidateClassroom checks the fields a Google Classroom sync needs.
func (c Config) ValidateClassroom() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.MirrorRoot, validation.Required),
		validation.Field(&c.MaxParallel, validation.Min(1)),
	); err != nil {
		return err
	}

	g := c.Google
	if err := validation.ValidateStruct(&g,
		validation.Field(&g.CredentialsFile, validation.Required),
		validation.Field(&g.TokenFile, validation.Required),
	); err != nil {
		return fmt.Errorf("google: %w", err)
	}
	return nil
}

// ValidateSFTP checks the fields the post-sync upload needs.
func (c Config) ValidateSFTP() error {
	s := c.SFTP
	if err := validation.ValidateStruct(&s,
		validation.Field(&s.Host, validation.Required),
		validation.Field(&s.User, validation.Required),
		validation.Field(&s.Pass, validation.Required),
		validation.Field(&s.Port, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return fmt.Errorf("sftp: %w", err)
	}
	return nil
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func getenvBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}
