package handlers

import (
	"github.com/skillskit/skills-server/internal/config"
	"github.com/skillskit/skills-server/internal/vision"
)

// SettingsSource supplies per-skill overrides, usually config.Config.
type SettingsSource interface {
	Skill(name string) (config.SkillSettings, bool)
}

// Builtin returns the registry of shipped skills with settings applied.
// Skills marked disabled are left out. settings may be nil.
func Builtin(provider vision.Provider, settings SettingsSource) *Registry {
	limits := func(name string) Limits {
		l := DefaultImageLimits()
		if settings == nil {
			return l
		}
		if s, ok := settings.Skill(name); ok {
			l = l.With(s)
		}
		return l
	}

	all := []Handler{
		NewHello(),
		NewBoilerplate(),
		NewLabels(provider, limits("labels")),
		NewFaces(provider, limits("faces")),
	}

	enabled := make([]Handler, 0, len(all))
	for _, h := range all {
		if settings != nil {
			if s, ok := settings.Skill(h.Name()); ok && s.Disabled {
				continue
			}
		}
		enabled = append(enabled, h)
	}
	return NewRegistry(enabled...)
}

// With overrides the limits set in s. Zero values keep the current limit.
func (l Limits) With(s config.SkillSettings) Limits {
	if len(s.AllowedFormats) > 0 {
		l.AllowedFormats = append([]string(nil), s.AllowedFormats...)
	}
	if s.MaxSizeMB > 0 {
		l.MaxSizeMB = s.MaxSizeMB
	}
	if s.MaxLabels > 0 {
		l.MaxLabels = s.MaxLabels
	}
	if s.MinConfidence > 0 {
		l.MinConfidence = s.MinConfidence
	}
	return l
}
