package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Head holds the document head metadata of the front-end.
type Head struct {
	Charset       string `json:"charset" yaml:"charset"`
	Viewport      string `json:"viewport" yaml:"viewport"`
	Title         string `json:"title" yaml:"title"`
	TitleTemplate string `json:"titleTemplate" yaml:"titleTemplate"`
}

type App struct {
	Head Head `json:"head" yaml:"head"`
}

// PublicRuntime is exposed to client-side code. Never put secrets here.
type PublicRuntime struct {
	APIURL string `json:"API_URL" yaml:"API_URL"`
}

type RuntimeConfig struct {
	Public PublicRuntime `json:"public" yaml:"public"`
}

// Site is the front-end configuration served to the web client.
type Site struct {
	CompatibilityDate string        `json:"compatibilityDate" yaml:"compatibilityDate"`
	Devtools          bool          `json:"devtools" yaml:"devtools"`
	Modules           []string      `json:"modules" yaml:"modules"`
	CSS               []string      `json:"css" yaml:"css"`
	App               App           `json:"app" yaml:"app"`
	RuntimeConfig     RuntimeConfig `json:"runtimeConfig" yaml:"runtimeConfig"`
}

const titlePlaceholder = "%s"

func DefaultSite() *Site {
	return &Site{
		CompatibilityDate: "2024-04-03",
		Devtools:          true,
		Modules:           []string{"@nuxtjs/tailwindcss"},
		CSS:               []string{"~/assets/css/main.css"},
		App: App{
			Head: Head{
				Charset:       "utf-8",
				Viewport:      "width=device-width, initial-scale=1",
				Title:         "Vertretungsplan",
				TitleTemplate: titlePlaceholder + " - Vertretungsplan",
			},
		},
	}
}

// LoadSite resolves the site configuration: defaults, then the YAML file at
// path (if any), then API_URL / NUXT_PUBLIC_API_URL from the environment.
func LoadSite(path string) (*Site, error) {
	site := DefaultSite()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read site config: %w", err)
		}
		if err := yaml.Unmarshal(data, site); err != nil {
			return nil, fmt.Errorf("parse site config: %w", err)
		}
	}
	site.applyEnv()
	if err := site.Validate(); err != nil {
		return nil, err
	}
	return site, nil
}

func (s *Site) applyEnv() {
	for _, key := range []string{"API_URL", "NUXT_PUBLIC_API_URL"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			s.RuntimeConfig.Public.APIURL = v
		}
	}
}

// PageTitle renders the title template for a page, verbatim. Only an empty
// page title yields the site title.
func (s *Site) PageTitle(page string) string {
	if page == "" {
		return s.App.Head.Title
	}
	tmpl := s.App.Head.TitleTemplate
	if tmpl == "" {
		return page
	}
	return strings.Replace(tmpl, titlePlaceholder, page, 1)
}

// Public returns the public runtime values. API_URL is always present.
func (s *Site) Public() map[string]string {
	return map[string]string{"API_URL": s.RuntimeConfig.Public.APIURL}
}

func (s *Site) Validate() error {
	var errs []error
	h := s.App.Head
	if strings.TrimSpace(h.Charset) == "" {
		errs = append(errs, errors.New("app.head.charset is empty"))
	}
	if strings.TrimSpace(h.Viewport) == "" {
		errs = append(errs, errors.New("app.head.viewport is empty"))
	}
	if strings.TrimSpace(h.Title) == "" {
		errs = append(errs, errors.New("app.head.title is empty"))
	}
	if !strings.Contains(h.TitleTemplate, titlePlaceholder) {
		errs = append(errs, fmt.Errorf("app.head.titleTemplate %q has no %s placeholder", h.TitleTemplate, titlePlaceholder))
	}
	if err := checkIdentifiers("css", s.CSS); err != nil {
		errs = append(errs, err)
	}
	if err := checkIdentifiers("modules", s.Modules); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func checkIdentifiers(field string, values []string) error {
	seen := make(map[string]struct{}, len(values))
	for i, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			return fmt.Errorf("%s[%d] is empty", field, i)
		}
		if _, dup := seen[v]; dup {
			return fmt.Errorf("%s contains duplicate entry %q", field, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

// Stylesheets maps css entries to URLs served under /assets.
func (s *Site) Stylesheets() []string {
	out := make([]string, 0, len(s.CSS))
	for _, c := range s.CSS {
		c = strings.TrimSpace(c)
		switch {
		case strings.HasPrefix(c, "~/"):
			out = append(out, "/"+strings.TrimPrefix(c, "~/"))
		case strings.HasPrefix(c, "/"), strings.Contains(c, "://"):
			out = append(out, c)
		default:
			out = append(out, "/"+c)
		}
	}
	return out
}
