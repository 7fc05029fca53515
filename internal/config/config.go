package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"shiftline/internal/domain"
	"shiftline/internal/schedule"
)

// Config models shiftline.yml: staffing policy, checker rules and the pattern catalog binding.
type Config struct {
	Staffing struct {
		Baseline  int            `yaml:"baseline" json:"baseline"`
		Overrides map[string]int `yaml:"overrides" json:"overrides,omitempty"`
		Closed    []string       `yaml:"closed" json:"closed,omitempty"`
	} `yaml:"staffing" json:"staffing"`
	Rules struct {
		DailyCeiling int `yaml:"daily_ceiling" json:"daily_ceiling"`
	} `yaml:"rules" json:"rules"`
	Patterns struct {
		Roles map[string]string `yaml:"roles" json:"roles"`
		Seed  []PatternSeed     `yaml:"seed" json:"seed,omitempty"`
	} `yaml:"patterns" json:"patterns"`
	Report struct {
		WeekStart string `yaml:"week_start" json:"week_start,omitempty"`
	} `yaml:"report" json:"report"`
}

type PatternSeed struct {
	Name         string `yaml:"name" json:"name"`
	Start        string `yaml:"start" json:"start"`
	End          string `yaml:"end" json:"end"`
	BreakMinutes int    `yaml:"break_minutes" json:"break_minutes,omitempty"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Staffing.Baseline <= 0 {
		return fmt.Errorf("config.staffing.baseline must be positive")
	}
	overridden := map[time.Weekday]bool{}
	for day, n := range c.Staffing.Overrides {
		wd, err := ParseWeekday(day)
		if err != nil {
			return fmt.Errorf("config.staffing.overrides: %w", err)
		}
		if overridden[wd] {
			return fmt.Errorf("config.staffing.overrides lists %s twice", strings.ToLower(wd.String()))
		}
		overridden[wd] = true
		if n < 0 {
			return fmt.Errorf("config.staffing.overrides.%s must not be negative", day)
		}
	}
	for _, day := range c.Staffing.Closed {
		if _, err := ParseWeekday(day); err != nil {
			return fmt.Errorf("config.staffing.closed: %w", err)
		}
	}
	if c.Rules.DailyCeiling <= 0 {
		return fmt.Errorf("config.rules.daily_ceiling must be positive")
	}
	if len(c.Patterns.Roles) == 0 {
		return fmt.Errorf("config.patterns.roles is required")
	}
	for role, name := range c.Patterns.Roles {
		if _, err := domain.ParsePatternRole(role); err != nil {
			return fmt.Errorf("config.patterns.roles: %w", err)
		}
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("config.patterns.roles.%s is empty", role)
		}
	}
	for _, r := range domain.Roles {
		if _, ok := c.Patterns.Roles[string(r)]; !ok {
			return fmt.Errorf("config.patterns.roles must bind %s", r)
		}
	}
	seen := map[string]bool{}
	for _, s := range c.Patterns.Seed {
		key := strings.ToLower(strings.TrimSpace(s.Name))
		if key == "" {
			return fmt.Errorf("config.patterns.seed has a pattern without name")
		}
		if seen[key] {
			return fmt.Errorf("config.patterns.seed lists %s twice", s.Name)
		}
		seen[key] = true
		if _, err := domain.WorkHours(s.Start, s.End, s.BreakMinutes); err != nil {
			return fmt.Errorf("config.patterns.seed %s: %w", s.Name, err)
		}
	}
	if c.Report.WeekStart != "" {
		if _, err := ParseWeekday(c.Report.WeekStart); err != nil {
			return fmt.Errorf("config.report.week_start: %w", err)
		}
	}
	return nil
}

// StaffingPolicy converts the staffing section for the planner.
func (c *Config) StaffingPolicy() (schedule.Staffing, error) {
	s := schedule.Staffing{
		Baseline:  c.Staffing.Baseline,
		Overrides: map[time.Weekday]int{},
		Closed:    map[time.Weekday]bool{},
	}
	for day, n := range c.Staffing.Overrides {
		wd, err := ParseWeekday(day)
		if err != nil {
			return s, err
		}
		s.Overrides[wd] = n
	}
	for _, day := range c.Staffing.Closed {
		wd, err := ParseWeekday(day)
		if err != nil {
			return s, err
		}
		s.Closed[wd] = true
	}
	return s, nil
}

// RoleNames returns the role to pattern-name binding.
func (c *Config) RoleNames() map[domain.PatternRole]string {
	res := make(map[domain.PatternRole]string, len(c.Patterns.Roles))
	for role, name := range c.Patterns.Roles {
		if r, err := domain.ParsePatternRole(role); err == nil {
			res[r] = name
		}
	}
	return res
}

// WeekStart defaults to Monday.
func (c *Config) WeekStart() time.Weekday {
	if wd, err := ParseWeekday(c.Report.WeekStart); err == nil {
		return wd
	}
	return time.Monday
}

// ParseWeekday accepts full or three-letter English day names.
func ParseWeekday(s string) (time.Weekday, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if in == name || in == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "shiftline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `staffing:
  baseline: 4
  overrides:
    wednesday: 3
    saturday: 5
  closed: []

rules:
  daily_ceiling: 3

patterns:
  roles:
    early: Early
    late: Late
    part_a: Part A
    part_b: Part B
  seed:
    - name: Early
      start: "07:00"
      end: "16:00"
      break_minutes: 60
    - name: Late
      start: "13:00"
      end: "22:00"
      break_minutes: 60
    - name: Part A
      start: "09:00"
      end: "14:00"
    - name: Part B
      start: "17:00"
      end: "22:00"

report:
  week_start: monday
`
