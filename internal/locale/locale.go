package locale

import (
	"bytes"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed locales/en_US.toml
var defaultLocale []byte

// Dir is searched for <name>.toml files that override the embedded strings.
var Dir = filepath.Join("config", "locales")

type CliFlags struct {
	Config       string `toml:"config"`
	Transport    string `toml:"transport"`
	Addr         string `toml:"addr"`
	LocalDir     string `toml:"local_dir"`
	Offline      string `toml:"offline"`
	Output       string `toml:"output"`
	OutputFormat string `toml:"output_format"`
	NoCache      string `toml:"no_cache"`
	Summary      string `toml:"summary"`
}

type CliCommands struct {
	Serve    string `toml:"serve"`
	Query    string `toml:"query"`
	Schema   string `toml:"schema"`
	Examples string `toml:"examples"`
	Check    string `toml:"check"`
	Validate string `toml:"validate"`
}

type CliArgs struct {
	Query    string `toml:"query"`
	Validate string `toml:"validate"`
}

type CliSection struct {
	Description string      `toml:"description"`
	Flags       CliFlags    `toml:"flags"`
	Commands    CliCommands `toml:"commands"`
	Args        CliArgs     `toml:"args"`
}

type CheckSection struct {
	Passed   string `toml:"passed"`
	Failed   string `toml:"failed"`
	Mismatch string `toml:"mismatch"`
}

type ValidateSection struct {
	Allowed  string `toml:"allowed"`
	Rejected string `toml:"rejected"`
}

type ErrorsSection struct {
	OutputFormatNotImpl string `toml:"output_format_not_implemented"`
	OutputFormatEmpty   string `toml:"output_format_empty"`
	MissingQuery        string `toml:"missing_query"`
	CheckFailed         string `toml:"check_failed"`
}

type Locale struct {
	CLI      CliSection      `toml:"cli"`
	Check    CheckSection    `toml:"check"`
	Validate ValidateSection `toml:"validate"`
	Errors   ErrorsSection   `toml:"errors"`
}

func DetectSystemLocale() string {
	lang := os.Getenv("LANG")
	if lang == "" || lang == "C" || lang == "POSIX" {
		return "en_US"
	}

	cleanLang := strings.Split(lang, ".")[0]

	return strings.ReplaceAll(cleanLang, "-", "_")
}

// Default returns the embedded en_US strings.
func Default() *Locale {
	var l Locale
	if _, err := toml.NewDecoder(bytes.NewReader(defaultLocale)).Decode(&l); err != nil {
		panic(fmt.Sprintf("embedded locale is invalid: %v", err))
	}
	return &l
}

// Load decodes Dir/<name>.toml over the embedded defaults, so a partial
// translation falls back to English for the keys it leaves out.
func Load(localeName string) (*Locale, error) {
	if localeName == "" || strings.ToLower(localeName) == "auto" {
		localeName = DetectSystemLocale()
	}

	l := Default()

	localePath := filepath.Join(Dir, fmt.Sprintf("%s.toml", localeName))
	if _, err := os.Stat(localePath); os.IsNotExist(err) {
		slog.Debug("Locale file not found, using embedded strings", "locale", localeName)
		return l, nil
	}

	if _, err := toml.DecodeFile(localePath, l); err != nil {
		return nil, fmt.Errorf("failed to load locale file %s: %w", localePath, err)
	}

	return l, nil
}
