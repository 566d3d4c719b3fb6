// Package settings persists user preferences and the remote sync state in a
// TOML file under the application data directory.
package settings

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/language"

	"github.com/you/sc-chat-translator/internal/remotesync"
	"github.com/you/sc-chat-translator/internal/version"
)

const (
	// AppFolder is the directory name under the user config dir.
	AppFolder = "ScTranslationApp"

	FileName = "settings.toml"

	DictionaryFileName = "game_dictionary.json"
	DatabaseFileName   = "chat_history.db"
	LogFileName        = "app.log"

	DefaultDescriptorURL = "https://api.jsonsilo.com/public/d03caeff-8d84-4b55-bd8c-4b9ad6e7d372"
	DefaultDictionaryURL = "https://api.jsonsilo.com/public/245adbbb-9613-47ab-96bb-0e3e40385700"

	defaultLogsPath = "~/Documents/My Games/StarConflict/logs"
	fallbackLang    = "en"
	fallbackShort   = "EN"
)

// Settings is everything the user can change plus the cached remote state.
type Settings struct {
	LastLanguage          string            `toml:"last_language"`
	ManualTranslateLang   string            `toml:"manual_translate_lang"`
	Languages             map[string]string `toml:"languages"`
	ManualLanguages       map[string]string `toml:"manual_languages"`
	GameLogsPath          string            `toml:"game_logs_path"`
	AllowRemoteDictionary bool              `toml:"allow_remote_dictionary"`
	RemoteWelcomeURL      string            `toml:"remote_welcome_url"`
	RemoteDictionaryURL   string            `toml:"remote_dictionary_url"`
	Remote                remotesync.State  `toml:"remote"`
}

// Defaults returns a fresh copy of the built-in settings.
func Defaults() Settings {
	return Settings{
		LastLanguage:        "English",
		ManualTranslateLang: "ru",
		Languages: map[string]string{
			"English":              "en",
			"Spanish":              "es",
			"French":               "fr",
			"German":               "de",
			"Italian":              "it",
			"Polish":               "pl",
			"Portuguese":           "pt",
			"Russian":              "ru",
			"Japanese":             "ja",
			"Chinese (Simplified)": "zh-cn",
			"Arabic":               "ar",
			"Hindi":                "hi",
		},
		ManualLanguages: map[string]string{
			"EN": "en", "ES": "es", "FR": "fr", "DE": "de",
			"IT": "it", "PL": "pl", "PT": "pt", "RU": "ru",
			"JA": "ja", "ZH": "zh-cn", "AR": "ar", "HI": "hi",
		},
		GameLogsPath:        DefaultLogsPath(),
		RemoteWelcomeURL:    DefaultDescriptorURL,
		RemoteDictionaryURL: DefaultDictionaryURL,
		Remote:              remotesync.DefaultState(version.Version),
	}
}

// DefaultLogsPath is where the game writes its log folders.
func DefaultLogsPath() string {
	p, err := expandPath(defaultLogsPath)
	if err != nil {
		return defaultLogsPath
	}
	return p
}

// DataDir returns the per-user application directory.
func DataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, AppFolder), nil
}

// DataPaths are the default file locations inside the data directory.
type DataPaths struct {
	Dir        string
	Settings   string
	Dictionary string
	Database   string
	Log        string
}

// Paths lays out the data directory the way the desktop app always has.
func Paths(dir string) DataPaths {
	return DataPaths{
		Dir:        dir,
		Settings:   filepath.Join(dir, FileName),
		Dictionary: filepath.Join(dir, DictionaryFileName),
		Database:   filepath.Join(dir, "database", DatabaseFileName),
		Log:        filepath.Join(dir, "logs", LogFileName),
	}
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	out.Languages = maps.Clone(s.Languages)
	out.ManualLanguages = maps.Clone(s.ManualLanguages)
	if s.Remote.WhatsNew != nil {
		wn := *s.Remote.WhatsNew
		wn.Changes = slices.Clone(wn.Changes)
		out.Remote.WhatsNew = &wn
	}
	return out
}

// TargetLang is the code for LastLanguage, "en" when unknown or invalid.
func (s Settings) TargetLang() string {
	return validCode(s.Languages[s.LastLanguage])
}

// ManualLang is the manual translation target, "en" when invalid.
func (s Settings) ManualLang() string {
	return validCode(s.ManualTranslateLang)
}

// ShortCode returns the manual-language short code for code, "EN" when none matches.
func (s Settings) ShortCode(code string) string {
	keys := slices.Sorted(maps.Keys(s.ManualLanguages))
	for _, k := range keys {
		if strings.EqualFold(s.ManualLanguages[k], code) {
			return k
		}
	}
	return fallbackShort
}

func validCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return fallbackLang
	}
	if _, err := language.Parse(code); err != nil {
		return fallbackLang
	}
	return code
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
