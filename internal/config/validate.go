package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateRanking(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if topic := c.Notifications.NtfyTopic; topic != "" &&
		!strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateExtraction() error {
	switch c.Extraction.Tagger {
	case TaggerLLM, TaggerNone:
	default:
		return fmt.Errorf("extraction.tagger: unsupported value %q (want %q or %q)", c.Extraction.Tagger, TaggerLLM, TaggerNone)
	}
	if c.Extraction.Threshold > 1 {
		return errors.New("extraction.threshold must be between 0 and 1")
	}
	for i, rule := range c.Extraction.Rules {
		if rule.Text == "" {
			return fmt.Errorf("extraction.rules[%d].text must be set", i)
		}
		if len(rule.Patterns) == 0 {
			return fmt.Errorf("extraction.rules[%d].patterns must not be empty", i)
		}
		for _, pattern := range rule.Patterns {
			if _, err := regexp.Compile(pattern); err != nil {
				return fmt.Errorf("extraction.rules[%d]: invalid pattern %q: %w", i, pattern, err)
			}
		}
	}
	return nil
}

func (c *Config) validateRanking() error {
	switch c.Ranking.Mode {
	case RankingModeEnglish, RankingModeMultilingual:
	default:
		return fmt.Errorf("ranking.mode: unsupported value %q", c.Ranking.Mode)
	}
	switch c.Ranking.Scorer {
	case ScorerEmbedding, ScorerLexical, ScorerNone:
	default:
		return fmt.Errorf("ranking.scorer: unsupported value %q", c.Ranking.Scorer)
	}
	for i, exp := range c.Ranking.Expansions {
		if len(exp.Queries) == 0 {
			return fmt.Errorf("ranking.expansions[%d].queries must not be empty", i)
		}
		if len(exp.Keywords) == 0 {
			return fmt.Errorf("ranking.expansions[%d].keywords must not be empty", i)
		}
	}
	return nil
}

func (c *Config) validateProviders() error {
	if c.Providers.Wikipedia.Enabled && !strings.Contains(c.Providers.Wikipedia.BaseURL, "%s") {
		return errors.New("providers.wikipedia.base_url must contain a %s placeholder for the language")
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.OverlayWidth <= 0 {
		return errors.New("render.overlay_width must be positive")
	}
	if c.Render.OffsetX < 0 || c.Render.OffsetY < 0 {
		return errors.New("render.offset_x and render.offset_y must not be negative")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.VADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("transcription.vad_method: unsupported value %q", c.Transcription.VADMethod)
	}
	return nil
}
