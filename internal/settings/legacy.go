package settings

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/you/sc-chat-translator/internal/remotesync"
)

const legacyFileName = "settings.json"

// legacySettings is the flat JSON layout written by earlier releases.
type legacySettings struct {
	LastLanguage           *string              `json:"last_language"`
	ManualTranslateLang    *string              `json:"manual_translate_lang"`
	Languages              map[string]string    `json:"languages"`
	ManualLanguages        map[string]string    `json:"manual_languages"`
	GameLogsPath           *string              `json:"game_logs_path"`
	WelcomeCounter         *int                 `json:"welcome_counter"`
	WelcomeMessageColor    *string              `json:"welcome_message_color"`
	RemoteWelcomeID        json.RawMessage      `json:"remote_welcome_id"`
	RemoteWelcomeURL       *string              `json:"remote_welcome_url"`
	AllowRemoteDictionary  *bool                `json:"allow_remote_dictionary"`
	RemoteDictionaryURL    *string              `json:"remote_dictionary_url"`
	LastNotifiedVersion    *string              `json:"last_notified_version"`
	LastRemoteFetch        *float64             `json:"last_remote_fetch"`
	RemoteFetchInterval    *int                 `json:"remote_fetch_interval"`
	ShowExtendedWelcome    *bool                `json:"show_extended_welcome"`
	RemoteWelcomeMessage   *string              `json:"remote_welcome_message"`
	RemoteWhatsNew         *remotesync.WhatsNew `json:"remote_whats_new"`
	RemoteDownloadURL      *string              `json:"remote_download_url"`
	RemoteNotes            *string              `json:"remote_notes"`
	WelcomeMessageOverride *string              `json:"welcome_message_override"`
}

// importLegacy reads an old settings.json. ok is false when the file does not exist.
func importLegacy(path string) (Settings, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Settings{}, false, nil
	}
	if err != nil {
		return Settings{}, false, errors.Wrap(err, "read legacy settings")
	}
	var l legacySettings
	if err := json.Unmarshal(data, &l); err != nil {
		return Settings{}, false, errors.Wrap(err, "decode legacy settings")
	}

	st := Defaults()
	setString(&st.LastLanguage, l.LastLanguage)
	setString(&st.ManualTranslateLang, l.ManualTranslateLang)
	setString(&st.GameLogsPath, l.GameLogsPath)
	setString(&st.RemoteWelcomeURL, l.RemoteWelcomeURL)
	setString(&st.RemoteDictionaryURL, l.RemoteDictionaryURL)
	if l.Languages != nil {
		st.Languages = l.Languages
	}
	if l.ManualLanguages != nil {
		st.ManualLanguages = l.ManualLanguages
	}
	if l.AllowRemoteDictionary != nil {
		st.AllowRemoteDictionary = *l.AllowRemoteDictionary
	}

	r := &st.Remote
	if id := legacyID(l.RemoteWelcomeID); id != "" {
		r.WelcomeID = id
	}
	setString(&r.WelcomeColor, l.WelcomeMessageColor)
	setString(&r.LastNotifiedVersion, l.LastNotifiedVersion)
	setString(&r.WelcomeMessage, l.RemoteWelcomeMessage)
	setString(&r.DownloadURL, l.RemoteDownloadURL)
	setString(&r.Notes, l.RemoteNotes)
	r.WhatsNew = l.RemoteWhatsNew
	if l.WelcomeCounter != nil {
		r.WelcomeShownCount = *l.WelcomeCounter
	}
	if l.LastRemoteFetch != nil {
		r.LastFetchUnix = int64(*l.LastRemoteFetch)
	}
	if l.RemoteFetchInterval != nil {
		r.FetchIntervalSeconds = *l.RemoteFetchInterval
	}
	if l.ShowExtendedWelcome != nil {
		r.ShowExtendedWelcome = *l.ShowExtendedWelcome
	}
	// welcome_message_override predates remote_welcome_message.
	if l.WelcomeMessageOverride != nil && r.WelcomeMessage == "" {
		r.WelcomeMessage = strings.TrimSpace(*l.WelcomeMessageOverride)
	}
	return st, true, nil
}

func setString(dst *string, src *string) {
	if src != nil && strings.TrimSpace(*src) != "" {
		*dst = *src
	}
}

func legacyID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if _, err := strconv.ParseFloat(n.String(), 64); err == nil {
			return n.String()
		}
	}
	return ""
}
