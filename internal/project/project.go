package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/dqguard-cli/internal/analysis"
	"github.com/KaramelBytes/dqguard-cli/internal/dataset"
	"github.com/KaramelBytes/dqguard-cli/internal/rules"
	"github.com/KaramelBytes/dqguard-cli/internal/utils"
)

const (
	projectFileName = "project.json"
)

// Project is a dataset workspace persisted on disk: the data file, the rules
// suggested for it and the subset the user accepted.
type Project struct {
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	DataPath      string       `json:"data_path"`
	Suggested     []*RuleEntry `json:"suggested"`
	Accepted      []*RuleEntry `json:"accepted"`
	Contamination float64      `json:"contamination,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`

	// Not serialized: on-disk location of the project.json
	rootDir string `json:"-"`
}

// NewProject constructs an in-memory project. Call Save() to persist.
func NewProject(name, description, rootDir string) *Project {
	return &Project{
		Name:        name,
		Description: description,
		Suggested:   []*RuleEntry{},
		Accepted:    []*RuleEntry{},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		rootDir:     rootDir,
	}
}

// LoadProject loads a project.json from the provided directory.
func LoadProject(dir string) (*Project, error) {
	path := filepath.Join(dir, projectFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("project not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read project: %w", err)
	}
	var p Project
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse project: %w", err)
	}
	p.rootDir = dir
	return &p, nil
}

// Resolve finds a project directory. A ref containing a path separator is
// searched upward for project.json; anything else names a directory under
// projectsDir.
func Resolve(projectsDir, ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", errors.New("project name is required")
	}
	if strings.ContainsRune(ref, os.PathSeparator) || strings.ContainsRune(ref, '/') {
		return utils.FindUp(ref, projectFileName)
	}
	return filepath.Join(projectsDir, ref), nil
}

// List returns the names of projects under projectsDir, sorted.
func List(projectsDir string) ([]string, error) {
	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read projects dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(projectsDir, e.Name(), projectFileName)); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// RootDir returns the on-disk project directory path.
func (p *Project) RootDir() string { return p.rootDir }

// Save writes project.json using atomic write.
func (p *Project) Save() error {
	if p.rootDir == "" {
		return errors.New("project root directory not set")
	}
	if err := utils.EnsureDir(p.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	p.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(p)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(p.rootDir, projectFileName), data)
}

// SetData points the project at a data file, profiles it and replaces the
// suggested rules. Accepted rules are kept.
func (p *Project) SetData(path string, opt dataset.Options) (*analysis.DatasetProfile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve data path: %w", err)
	}
	ds, err := dataset.Load(abs, opt)
	if err != nil {
		return nil, err
	}
	prof := analysis.Profile(ds)
	p.DataPath = abs
	p.Suggested = p.Suggested[:0]
	for _, r := range rules.Suggest(prof) {
		p.Suggested = append(p.Suggested, newEntry(r))
	}
	p.UpdatedAt = time.Now()
	return prof, nil
}

// Dataset loads the project's data file.
func (p *Project) Dataset(opt dataset.Options) (*dataset.Dataset, error) {
	if p.DataPath == "" {
		return nil, fmt.Errorf("project %s has no data file", p.Name)
	}
	return dataset.Load(p.DataPath, opt)
}

// Accept copies the suggested rules at the given zero-based indexes into the
// accepted list. A rule already accepted for the same column and kind is not
// added twice. It returns the number of rules added.
func (p *Project) Accept(indexes []int) (int, error) {
	for _, i := range indexes {
		if i < 0 || i >= len(p.Suggested) {
			return 0, fmt.Errorf("suggestion index %d out of range (have %d)", i+1, len(p.Suggested))
		}
	}
	added := 0
	for _, i := range indexes {
		s := p.Suggested[i]
		if p.accepted(s.Rule) {
			continue
		}
		p.Accepted = append(p.Accepted, newEntry(s.Rule))
		added++
	}
	if added > 0 {
		p.UpdatedAt = time.Now()
	}
	return added, nil
}

// AcceptAll accepts every suggestion.
func (p *Project) AcceptAll() int {
	idx := make([]int, len(p.Suggested))
	for i := range idx {
		idx[i] = i
	}
	n, _ := p.Accept(idx)
	return n
}

// AcceptResult reports what AcceptRule did.
type AcceptResult int

const (
	// RuleUnchanged means an identical rule was already accepted.
	RuleUnchanged AcceptResult = iota
	// RuleAdded means the rule was appended.
	RuleAdded
	// RuleReplaced means an accepted rule on the same column and kind had
	// different parameters and was overwritten.
	RuleReplaced
)

// AcceptRule adds a rule that did not come from the suggester. An accepted
// rule with the same column and kind but other parameters is replaced in
// place.
func (p *Project) AcceptRule(r rules.Rule) (AcceptResult, error) {
	if err := r.Validate(); err != nil {
		return RuleUnchanged, err
	}
	for i, e := range p.Accepted {
		if !e.Same(r) {
			continue
		}
		if e.Equal(r) {
			return RuleUnchanged, nil
		}
		p.Accepted[i] = newEntry(r)
		p.UpdatedAt = time.Now()
		return RuleReplaced, nil
	}
	p.Accepted = append(p.Accepted, newEntry(r))
	p.UpdatedAt = time.Now()
	return RuleAdded, nil
}

// Reject removes accepted rules at the given zero-based indexes.
func (p *Project) Reject(indexes []int) (int, error) {
	drop := map[int]bool{}
	for _, i := range indexes {
		if i < 0 || i >= len(p.Accepted) {
			return 0, fmt.Errorf("accepted rule index %d out of range (have %d)", i+1, len(p.Accepted))
		}
		drop[i] = true
	}
	kept := p.Accepted[:0]
	for i, e := range p.Accepted {
		if !drop[i] {
			kept = append(kept, e)
		}
	}
	p.Accepted = kept
	if len(drop) > 0 {
		p.UpdatedAt = time.Now()
	}
	return len(drop), nil
}

// AcceptedRules returns the accepted rules in acceptance order.
func (p *Project) AcceptedRules() []rules.Rule {
	out := make([]rules.Rule, len(p.Accepted))
	for i, e := range p.Accepted {
		out[i] = e.Rule
	}
	return out
}

func (p *Project) accepted(r rules.Rule) bool {
	for _, e := range p.Accepted {
		if e.Same(r) {
			return true
		}
	}
	return false
}
