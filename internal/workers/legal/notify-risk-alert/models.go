// internal/workers/legal/notify-risk-alert/models.go
package notifyriskalert

type Input struct {
	DocumentID  string   `json:"documentId"`
	Filename    string   `json:"filename,omitempty"`
	OverallRisk float64  `json:"overallRisk"`
	RedFlags    []string `json:"redFlags"`
	Recipients  []string `json:"recipients,omitempty"`
}

type Output struct {
	Notified bool     `json:"notified"`
	Channels []string `json:"channels"`
	Failed   []string `json:"failed,omitempty"`
	Skipped  string   `json:"skipped,omitempty"`
}

// Channel names reported in Output.
const (
	ChannelSNS   = "sns"
	ChannelEmail = "email"
	ChannelSlack = "slack"
)

// Skip reasons.
const (
	SkippedBelowThreshold = "below_threshold"
	SkippedNoChannels     = "no_channels"
)
