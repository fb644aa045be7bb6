// Package adapters holds one client and normalizer per statistics provider.
// Every outbound call goes through a resilience.Doer.
package adapters

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/devfolio/internal/monitoring"
	"github.com/ZanzyTHEbar/devfolio/internal/resilience"
)

// Provider names, used for breakers, health and logs
const (
	ProviderGitHub     = "github"
	ProviderUmami      = "umami"
	ProviderWakaTime   = "wakatime"
	ProviderMonkeytype = "monkeytype"
)

// Providers lists every provider in display order
var Providers = []string{ProviderGitHub, ProviderUmami, ProviderWakaTime, ProviderMonkeytype}

const userAgent = "devfolio/1.0"

// Deps are shared by every adapter. Logger and Metrics may be nil.
type Deps struct {
	Client  resilience.Doer
	Logger  *monitoring.Logger
	Metrics *monitoring.Metrics
}

// degraded records a secondary signal that was replaced by its default
func (d Deps) degraded(provider, signal string, reason error) {
	if d.Logger != nil {
		d.Logger.DegradedLogger(provider, signal, reason.Error())
	}
	if d.Metrics != nil {
		d.Metrics.RecordDegraded(provider)
	}
}

// statusError describes a non-success provider status for logs and degraded signals
func statusError(provider string, resp *resilience.Response) error {
	return fmt.Errorf("%s API error: %s", provider, resp.Status)
}

func joinURL(base string, parts ...string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(strings.Join(parts, "/"), "/")
}
