// internal/workers/legal/notify-risk-alert/config.go
package notifyriskalert

import (
	"time"

	"legal-analyzer/internal/common/config"
)

const defaultRiskThreshold = 7.0

type Config struct {
	Timeout       time.Duration
	RiskThreshold float64
	SNSTopicARN   string
	SESFrom       string
	SESTo         []string
	SlackChannel  string
}

func LoadConfig(wcfg config.WorkerConfig, ncfg config.NotificationConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	threshold := ncfg.RiskThreshold
	if threshold <= 0 {
		threshold = defaultRiskThreshold
	}
	return &Config{
		Timeout:       timeout,
		RiskThreshold: threshold,
		SNSTopicARN:   ncfg.SNSTopicARN,
		SESFrom:       ncfg.SESFrom,
		SESTo:         ncfg.SESTo,
		SlackChannel:  ncfg.SlackChannel,
	}
}
