package config

import (
	"sync"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// Initialize creates the global configuration manager from the store at
// configPath (default ~/.auto-invoice/config.json) and loads it.
func Initialize(configPath string) error {
	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	manager := NewManager(store)
	if err := manager.RegisterSection(NewLLMSection()); err != nil {
		return err
	}
	if err := manager.RegisterSection(NewCredentialsSection()); err != nil {
		return err
	}
	if err := manager.LoadAll(); err != nil {
		return err
	}

	globalMu.Lock()
	globalManager = manager
	globalMu.Unlock()
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}
	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

// GetLLM returns the LLM settings section from global config.
// Returns nil if config is not initialized.
func GetLLM() *LLMSection {
	if !IsInitialized() {
		return nil
	}
	section, ok := Global().GetSection(SectionIDLLM)
	if !ok {
		return nil
	}
	llm, _ := section.(*LLMSection)
	return llm
}

// GetCredentials returns the credential source section from global config.
// Returns nil if config is not initialized.
func GetCredentials() *CredentialsSection {
	if !IsInitialized() {
		return nil
	}
	section, ok := Global().GetSection(SectionIDCredentials)
	if !ok {
		return nil
	}
	creds, _ := section.(*CredentialsSection)
	return creds
}

func resetGlobal() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalManager = nil
}
