package projects

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/devfolio/internal/database"
	"github.com/ZanzyTHEbar/devfolio/internal/errors"
	"github.com/ZanzyTHEbar/devfolio/internal/security"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 1000
	maxContentLength     = 50000
	maxURLLength         = 2048
)

// Store is the persistence the catalog needs
type Store interface {
	ListProjects(ctx context.Context, includeHidden bool) ([]database.Project, error)
	GetProjectBySlug(ctx context.Context, slug string) (*database.Project, error)
	CreateProject(ctx context.Context, p *database.Project) error
	UpdateProject(ctx context.Context, slug string, p *database.Project) error
	DeleteProject(ctx context.Context, slug string) error
}

// Invalidator drops cached reads after a write
type Invalidator interface {
	Clear()
}

// Input is the writable part of a project
type Input struct {
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	Image       *string  `json:"image"`
	LinkDemo    *string  `json:"linkDemo"`
	LinkGithub  *string  `json:"linkGithub"`
	Stacks      []string `json:"stacks"`
	Content     *string  `json:"content"`
	IsShow      *bool    `json:"isShow"`
	IsFeatured  bool     `json:"isFeatured"`
}

// ListResult is the catalog listing with the stack filter choices
type ListResult struct {
	Projects []database.Project `json:"projects"`
	Stacks   []string           `json:"stacks"`
}

// Service implements the projects catalog
type Service struct {
	store  Store
	cache  Invalidator
	logger *slog.Logger
}

// NewService creates a catalog service. cache may be nil.
func NewService(store Store, cache Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: cache, logger: logger}
}

// List returns visible projects matching q and stack. Stacks lists every
// stack across visible projects so clients can offer the filter.
func (s *Service) List(ctx context.Context, q, stack string) (*ListResult, error) {
	all, err := s.store.ListProjects(ctx, false)
	if err != nil {
		return nil, s.mapError(err, "list projects")
	}

	q = strings.ToLower(strings.TrimSpace(q))
	stack = strings.TrimSpace(stack)

	result := &ListResult{Projects: []database.Project{}, Stacks: distinctStacks(all)}
	for _, p := range all {
		if q != "" && !strings.Contains(strings.ToLower(p.Title), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		if stack != "" && !p.HasStack(stack) {
			continue
		}
		result.Projects = append(result.Projects, p)
	}

	return result, nil
}

// ListAll returns every project including hidden ones
func (s *Service) ListAll(ctx context.Context) ([]database.Project, error) {
	projects, err := s.store.ListProjects(ctx, true)
	if err != nil {
		return nil, s.mapError(err, "list projects")
	}
	return projects, nil
}

// Get returns a visible project
func (s *Service) Get(ctx context.Context, slug string) (*database.Project, error) {
	p, err := s.store.GetProjectBySlug(ctx, slug)
	if err != nil {
		return nil, s.mapError(err, "get project")
	}
	if !p.IsShow {
		return nil, errors.NewNotFoundError("project")
	}
	return p, nil
}

// Create validates in and stores a new project
func (s *Service) Create(ctx context.Context, in Input) (*database.Project, error) {
	p := &database.Project{IsShow: true}
	if err := apply(p, in); err != nil {
		return nil, err
	}

	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, s.mapError(err, "create project")
	}

	s.invalidate()
	s.logger.Info("Project created", "slug", p.Slug, "id", p.ID)
	return p, nil
}

// Update replaces the mutable fields of the project stored under slug
func (s *Service) Update(ctx context.Context, slug string, in Input) (*database.Project, error) {
	existing, err := s.store.GetProjectBySlug(ctx, slug)
	if err != nil {
		return nil, s.mapError(err, "get project")
	}

	if strings.TrimSpace(in.Slug) == "" {
		in.Slug = existing.Slug
	}

	p := *existing
	if err := apply(&p, in); err != nil {
		return nil, err
	}

	if err := s.store.UpdateProject(ctx, slug, &p); err != nil {
		return nil, s.mapError(err, "update project")
	}

	s.invalidate()
	s.logger.Info("Project updated", "slug", p.Slug, "previous_slug", slug)
	updated, err := s.store.GetProjectBySlug(ctx, p.Slug)
	if err != nil {
		return nil, s.mapError(err, "get project")
	}
	return updated, nil
}

// Delete removes the project stored under slug
func (s *Service) Delete(ctx context.Context, slug string) error {
	if err := s.store.DeleteProject(ctx, slug); err != nil {
		return s.mapError(err, "delete project")
	}

	s.invalidate()
	s.logger.Info("Project deleted", "slug", slug)
	return nil
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.Clear()
	}
}

func (s *Service) mapError(err error, op string) error {
	switch {
	case stderrors.Is(err, database.ErrNotFound):
		return errors.NewNotFoundError("project")
	case stderrors.Is(err, database.ErrDuplicate):
		return errors.NewConflictError("A project with this slug already exists")
	}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return errors.NewInternalError("failed to "+op, err)
}

// apply validates in and copies it onto p
func apply(p *database.Project, in Input) error {
	title := security.SanitizeText(in.Title)
	description := security.SanitizeText(in.Description)
	if title == "" {
		return errors.NewValidationError("title is required")
	}
	if description == "" {
		return errors.NewValidationError("description is required")
	}

	checks := []struct {
		field  string
		value  string
		maxLen int
	}{
		{"title", title, maxTitleLength},
		{"description", description, maxDescriptionLength},
		{"content", deref(in.Content), maxContentLength},
		{"image", deref(in.Image), maxURLLength},
		{"linkDemo", deref(in.LinkDemo), maxURLLength},
		{"linkGithub", deref(in.LinkGithub), maxURLLength},
	}
	for _, check := range checks {
		if err := security.ValidateText(check.field, check.value, check.maxLen); err != nil {
			return errors.NewValidationError(err.Error())
		}
	}

	source := in.Slug
	if strings.TrimSpace(source) == "" {
		source = title
	}
	slug := Slugify(source)
	if slug == "" {
		return errors.NewValidationError("slug could not be derived from title")
	}

	p.Title = title
	p.Slug = slug
	p.Description = description
	p.Image = optional(in.Image)
	p.LinkDemo = optional(in.LinkDemo)
	p.LinkGithub = optional(in.LinkGithub)
	p.Stacks = cleanStacks(in.Stacks)
	p.Content = optional(in.Content)
	p.IsFeatured = in.IsFeatured
	if in.IsShow != nil {
		p.IsShow = *in.IsShow
	}

	return nil
}

// Slugify lowercases s and joins its ASCII letter and digit runs with hyphens
func Slugify(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

func cleanStacks(stacks []string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, s := range stacks {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func distinctStacks(projects []database.Project) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, p := range projects {
		for _, s := range p.Stacks {
			key := strings.ToLower(s)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
