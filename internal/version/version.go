package version

// Overridden at build time with -ldflags "-X github.com/you/sc-chat-translator/internal/version.Version=...".
var (
	Version   = "1.1.3"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// UserAgent is sent with every request to the remote descriptor endpoints.
func UserAgent() string {
	return "SC-Translator/" + Version
}
