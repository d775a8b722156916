package moderation

import (
	"fmt"
	"os"
	"strings"

	"github.com/iamwavecut/tool"
	"gopkg.in/yaml.v2"

	"github.com/iamwavecut/reportbot/resources"
)

const embeddedPolicy = "policy/default.yml"

type Rule struct {
	Code        string `yaml:"code"`
	Title       string `yaml:"title"`
	Action      Action `yaml:"action"`
	Duration    int    `yaml:"duration"`
	Description string `yaml:"description"`
}

type Generation struct {
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Policy is the versioned rule set handed to the classifier as its system prompt.
type Policy struct {
	Version    string     `yaml:"version"`
	Generation Generation `yaml:"generation"`
	Rules      []Rule     `yaml:"rules"`
	Allowed    []string   `yaml:"allowed"`
	Prompt     string     `yaml:"prompt"`

	systemPrompt string
}

// LoadPolicy reads the policy at path, or the embedded default when path is empty.
func LoadPolicy(path string) (*Policy, error) {
	var (
		content []byte
		err     error
	)
	if path == "" {
		content, err = resources.FS.ReadFile(embeddedPolicy)
	} else {
		content, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return ParsePolicy(content)
}

func ParsePolicy(content []byte) (*Policy, error) {
	p := &Policy{Generation: Generation{Temperature: 0.3, MaxTokens: 500}}
	if err := yaml.Unmarshal(content, p); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	p.systemPrompt = strings.TrimSpace(tool.ExecTemplate(p.Prompt, map[string]any{
		"rules":   p.Rules,
		"allowed": p.Allowed,
		"version": p.Version,
	}))
	if p.systemPrompt == "" {
		return nil, fmt.Errorf("policy %s renders an empty prompt", p.Version)
	}
	return p, nil
}

func (p *Policy) validate() error {
	if strings.TrimSpace(p.Version) == "" {
		return fmt.Errorf("policy has no version")
	}
	if len(p.Rules) == 0 {
		return fmt.Errorf("policy %s has no rules", p.Version)
	}
	for _, r := range p.Rules {
		switch r.Action {
		case ActionMute:
			if r.Duration <= 0 {
				return fmt.Errorf("policy rule %s: mute needs a positive duration", r.Code)
			}
		case ActionBan, ActionWarn:
		default:
			return fmt.Errorf("policy rule %s: unsupported action %q", r.Code, r.Action)
		}
	}
	return nil
}

func (p *Policy) SystemPrompt() string {
	return p.systemPrompt
}
