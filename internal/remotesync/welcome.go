package remotesync

// Welcome is the banner decision for one process start.
type Welcome struct {
	Show        bool
	Extended    bool
	Message     string
	Color       string
	Changes     []string
	DownloadURL string
	Notes       string
	// Count is the number of times the banner has been shown, this one included.
	Count int
}

// StartupWelcome decides whether this start shows the welcome banner. While
// the shown counter is below the cap it increments the counter, consumes the
// extended-welcome flag and saves the state.
func (e *Engine) StartupWelcome() (Welcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.store.RemoteState()
	if st.WelcomeShownCount >= e.opts.WelcomeCap {
		return Welcome{Count: st.WelcomeShownCount}, nil
	}
	w := Welcome{
		Show:        true,
		Extended:    st.ShowExtendedWelcome,
		Message:     st.WelcomeMessage,
		Color:       st.WelcomeColor,
		Changes:     st.Changes(),
		DownloadURL: st.DownloadURL,
		Notes:       st.Notes,
	}
	if w.Color == "" {
		w.Color = DefaultWelcomeColor
	}
	st.ShowExtendedWelcome = false
	st.WelcomeShownCount++
	w.Count = st.WelcomeShownCount
	return w, e.store.SaveRemoteState(st)
}
