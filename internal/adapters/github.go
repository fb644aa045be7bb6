package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ZanzyTHEbar/devfolio/internal/config"
	"github.com/ZanzyTHEbar/devfolio/internal/errors"
	"github.com/ZanzyTHEbar/devfolio/internal/resilience"
	"github.com/ZanzyTHEbar/devfolio/internal/stats"
)

const (
	githubFetchFailed   = "Failed to fetch GitHub data"
	githubPayloadFailed = "GitHub API error"
)

const contributionsQuery = `query($userName: String!) {
  user(login: $userName) {
    contributionsCollection {
      contributionCalendar {
        totalContributions
        weeks {
          contributionDays {
            contributionCount
            date
          }
        }
      }
    }
  }
}`

type graphQLRequest struct {
	Query     string            `json:"query"`
	Variables map[string]string `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// CalendarDay is one day of the provider's calendar
type CalendarDay struct {
	ContributionCount int    `json:"contributionCount"`
	Date              string `json:"date"`
}

// ContributionWeek is one column of the provider's calendar
type ContributionWeek struct {
	ContributionDays []CalendarDay `json:"contributionDays"`
}

type contributionsResponse struct {
	Data struct {
		User *struct {
			ContributionsCollection struct {
				ContributionCalendar struct {
					TotalContributions int                `json:"totalContributions"`
					Weeks              []ContributionWeek `json:"weeks"`
				} `json:"contributionCalendar"`
			} `json:"contributionsCollection"`
		} `json:"user"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// GitHubAdapter fetches the contribution calendar over GraphQL
type GitHubAdapter struct {
	deps   Deps
	config config.GitHubConfig
}

// NewGitHubAdapter creates a new GitHub adapter
func NewGitHubAdapter(deps Deps, cfg config.GitHubConfig) *GitHubAdapter {
	return &GitHubAdapter{deps: deps, config: cfg}
}

// Validate reports a configuration error when the token is missing
func (g *GitHubAdapter) Validate() error {
	if g.config.Token == "" {
		return errors.NewConfigurationError("GitHub token not configured")
	}
	return nil
}

// FetchContributions returns the trailing contribution calendar summary
func (g *GitHubAdapter) FetchContributions(ctx context.Context) (*stats.ContributionSummary, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	resp, err := g.deps.Client.Do(ctx, resilience.Request{
		Provider: ProviderGitHub,
		Method:   http.MethodPost,
		URL:      g.config.GraphQLURL,
		Headers: map[string]string{
			"Authorization": "Bearer " + g.config.Token,
			"User-Agent":    userAgent,
		},
		Body: graphQLRequest{
			Query:     contributionsQuery,
			Variables: map[string]string{"userName": g.config.Username},
		},
	})
	if err != nil {
		return nil, errors.NewUpstreamError(ProviderGitHub, githubFetchFailed, http.StatusInternalServerError, "", err)
	}

	if !resp.OK() {
		return nil, errors.NewUpstreamError(ProviderGitHub, githubFetchFailed, http.StatusInternalServerError, "",
			statusError("GitHub", resp))
	}

	var payload contributionsResponse
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, errors.NewUpstreamError(ProviderGitHub, githubFetchFailed, http.StatusInternalServerError, "", err)
	}

	if len(payload.Errors) > 0 {
		messages := make([]string, 0, len(payload.Errors))
		for _, e := range payload.Errors {
			messages = append(messages, e.Message)
		}
		return nil, errors.NewSemanticError(ProviderGitHub, githubPayloadFailed,
			fmt.Errorf("graphql errors: %s", strings.Join(messages, "; ")))
	}

	if payload.Data.User == nil {
		return nil, errors.NewSemanticError(ProviderGitHub, githubPayloadFailed,
			fmt.Errorf("user %q not found", g.config.Username))
	}

	calendar := payload.Data.User.ContributionsCollection.ContributionCalendar
	summary := SummarizeContributions(calendar.TotalContributions, calendar.Weeks)
	return &summary, nil
}

// SummarizeContributions flattens the calendar for the weekly count and keeps the last 52 weeks
func SummarizeContributions(total int, weeks []ContributionWeek) stats.ContributionSummary {
	var days []int
	for _, week := range weeks {
		for _, day := range week.ContributionDays {
			days = append(days, day.ContributionCount)
		}
	}

	thisWeek := 0
	start := len(days) - 7
	if start < 0 {
		start = 0
	}
	for _, count := range days[start:] {
		thisWeek += count
	}

	window := weeks
	if len(window) > stats.MaxWeeks {
		window = window[len(window)-stats.MaxWeeks:]
	}

	out := make([][]stats.ContributionDay, len(window))
	for i, week := range window {
		out[i] = make([]stats.ContributionDay, len(week.ContributionDays))
		for j, day := range week.ContributionDays {
			out[i][j] = stats.ContributionDay{Count: day.ContributionCount, Date: day.Date}
		}
	}

	return stats.ContributionSummary{
		TotalContributions: total,
		ThisWeek:           thisWeek,
		Average:            stats.AveragePerDay(total),
		Weeks:              out,
	}
}
