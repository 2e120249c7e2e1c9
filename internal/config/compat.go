package config

// --- Convenience functions (delegate to DefaultStore) ---

// Current returns the effective settings, defaults applied.
func Current() Settings {
	return DefaultStore().Settings()
}

// Set updates one setting in the default store.
func Set(key, value string) error {
	return DefaultStore().Set(key, value)
}

// OrgID returns the current organization id.
func OrgID() string {
	return Current().OrgID
}

// ListenPort returns the port `varman serve` binds to.
func ListenPort() int {
	return Current().ListenPort
}

// DataFile returns the backend data file, or the default path when unset.
func DataFile() string {
	if f := Current().DataFile; f != "" {
		return f
	}
	return DefaultDataFilePath()
}
