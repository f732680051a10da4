package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/jtcg-crm-agent/agent/contract"
	openrouterx "github.com/tanpawarit/jtcg-crm-agent/pkg/openrouter"
)

// Role selects which model/temperature override applies when the agent
// makes a call. Classification wants a cheap deterministic model, response
// synthesis can afford a more capable one.
type Role string

const (
	RoleClassifier Role = "classifier"
	RoleResponder  Role = "responder"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	ClassifierModel       string  `envconfig:"CLASSIFIER_MODEL" split_words:"true"`
	ResponderModel        string  `envconfig:"RESPONDER_MODEL" split_words:"true"`
	ClassifierTemperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" split_words:"true" default:"-1"`
	ResponderTemperature  float32 `envconfig:"RESPONDER_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouterFor(role Role) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch role {
	case RoleClassifier:
		if v := strings.TrimSpace(c.ClassifierModel); v != "" {
			modelName = v
		}
		if c.ClassifierTemperature >= 0 {
			temp = c.ClassifierTemperature
		}
	case RoleResponder:
		if v := strings.TrimSpace(c.ResponderModel); v != "" {
			modelName = v
		}
		if c.ResponderTemperature >= 0 {
			temp = c.ResponderTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
