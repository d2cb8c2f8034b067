package tui

import "strings"

// FieldConfig toggles optional detail sections.
type FieldConfig struct {
	ShowLinks    bool
	ShowComments bool
}

// KeyOverrides carries configured single-character rebinds.
type KeyOverrides struct {
	FieldEdit     string
	Yank          string
	IssueSwitcher string
	Refresh       string
}

type Option func(*Model)

func DefaultFieldConfig() FieldConfig {
	return FieldConfig{
		ShowLinks:    true,
		ShowComments: true,
	}
}

func WithFieldConfig(cfg FieldConfig) Option {
	return func(m *Model) {
		m.fieldConfig = cfg
	}
}

func WithKeyOverrides(overrides KeyOverrides) Option {
	return func(m *Model) {
		if k := strings.TrimSpace(overrides.FieldEdit); k != "" {
			m.keys.fieldEdit = rebind(m.keys.fieldEdit, k)
		}
		if k := strings.TrimSpace(overrides.Yank); k != "" {
			m.keys.yank = rebind(m.keys.yank, k)
		}
		if k := strings.TrimSpace(overrides.IssueSwitcher); k != "" {
			m.keys.issueSwitcher = rebind(m.keys.issueSwitcher, k)
		}
		if k := strings.TrimSpace(overrides.Refresh); k != "" {
			m.keys.reload = rebind(m.keys.reload, k)
		}
	}
}

// WithClipboard injects the clipboard writer used by yank.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		m.clipboardWrite = write
	}
}

// WithInitialIssue sets the key loaded on startup.
func WithInitialIssue(key string) Option {
	return func(m *Model) {
		m.initialKey = strings.TrimSpace(key)
	}
}
