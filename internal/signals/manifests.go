package signals

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/mod/modfile"
)

// manifestParser extracts declared dependency names from a manifest.
type manifestParser func(name string, data []byte) ([]string, error)

type manifestRule struct {
	pattern string // matched against the base name
	parse   manifestParser
	// implies are tokens the manifest itself stands for (go.mod -> go).
	implies []string
}

var manifestRules = []manifestRule{
	{pattern: "package.json", parse: parsePackageJSON, implies: []string{"nodejs"}},
	{pattern: "composer.json", parse: parseComposerJSON, implies: []string{"php"}},
	{pattern: "go.mod", parse: parseGoMod, implies: []string{"go"}},
	{pattern: "requirements*.txt", parse: parseRequirements, implies: []string{"python"}},
	{pattern: "pyproject.toml", parse: parsePyproject, implies: []string{"python"}},
	{pattern: "Pipfile", parse: parsePipfile, implies: []string{"python"}},
	{pattern: "Cargo.toml", parse: parseCargo, implies: []string{"rust"}},
	{pattern: "Gemfile", parse: parseGemfile, implies: []string{"ruby"}},
	{pattern: "pom.xml", parse: parsePom, implies: []string{"java", "maven"}},
	{pattern: "build.gradle", parse: parseGradle, implies: []string{"gradle"}},
	{pattern: "build.gradle.kts", parse: parseGradle, implies: []string{"gradle", "kotlin"}},
}

// matchManifest returns the rule for a manifest base name, if any.
func matchManifest(base string) (manifestRule, bool) {
	for _, r := range manifestRules {
		if ok, _ := doublestar.Match(r.pattern, base); ok {
			return r, true
		}
	}
	return manifestRule{}, false
}

// manifestTokens runs a manifest rule and normalizes the declared names.
func manifestTokens(r manifestRule, base string, data []byte) ([]string, error) {
	names, err := r.parse(base, data)
	if err != nil {
		return r.implies, err
	}
	tokens := append([]string(nil), r.implies...)
	for _, n := range names {
		if t := normalizePackage(n); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens, nil
}

func jsonKeys(data []byte, fields ...string) ([]string, error) {
	if !gjson.ValidBytes(data) {
		return nil, errInvalidManifest
	}
	var names []string
	for _, f := range fields {
		gjson.GetBytes(data, f).ForEach(func(key, _ gjson.Result) bool {
			names = append(names, key.String())
			return true
		})
	}
	return names, nil
}

func parsePackageJSON(_ string, data []byte) ([]string, error) {
	return jsonKeys(data, "dependencies", "devDependencies", "peerDependencies", "optionalDependencies")
}

func parseComposerJSON(_ string, data []byte) ([]string, error) {
	names, err := jsonKeys(data, "require", "require-dev")
	if err != nil {
		return nil, err
	}
	out := names[:0]
	for _, n := range names {
		// platform requirements such as "php" and "ext-json"
		if n == "php" || strings.HasPrefix(n, "ext-") {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func parseGoMod(name string, data []byte) ([]string, error) {
	f, err := modfile.ParseLax(name, data, nil)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(f.Require))
	for _, r := range f.Require {
		names = append(names, r.Mod.Path)
	}
	return names, nil
}

// pep508Name extracts the distribution name from a requirement specifier
// such as "uvicorn[standard]>=0.23; python_version>'3.8'".
var pep508Name = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._-]*)`)

func requirementName(req string) string {
	m := pep508Name.FindStringSubmatch(req)
	if m == nil {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(m[1]), "_", "-")
}

func parseRequirements(_ string, data []byte) ([]string, error) {
	var names []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if i := strings.Index(line, "#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" || strings.HasPrefix(line, "-") || strings.Contains(line, "://") {
			continue
		}
		if n := requirementName(line); n != "" {
			names = append(names, n)
		}
	}
	return names, sc.Err()
}

type pyproject struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies    map[string]any `toml:"dependencies"`
			DevDependencies map[string]any `toml:"dev-dependencies"`
			Group           map[string]struct {
				Dependencies map[string]any `toml:"dependencies"`
			} `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

func parsePyproject(_ string, data []byte) ([]string, error) {
	var p pyproject
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	var names []string
	for _, req := range p.Project.Dependencies {
		names = append(names, requirementName(req))
	}
	for _, group := range sortedKeys(p.Project.OptionalDependencies) {
		for _, req := range p.Project.OptionalDependencies[group] {
			names = append(names, requirementName(req))
		}
	}
	names = append(names, poetryNames(p.Tool.Poetry.Dependencies)...)
	names = append(names, poetryNames(p.Tool.Poetry.DevDependencies)...)
	for _, g := range p.Tool.Poetry.Group {
		names = append(names, poetryNames(g.Dependencies)...)
	}
	return names, nil
}

func poetryNames(deps map[string]any) []string {
	var out []string
	for _, name := range sortedKeys(deps) {
		if strings.EqualFold(name, "python") {
			continue
		}
		out = append(out, requirementName(name))
	}
	return out
}

type pipfile struct {
	Packages    map[string]any `toml:"packages"`
	DevPackages map[string]any `toml:"dev-packages"`
}

func parsePipfile(_ string, data []byte) ([]string, error) {
	var p pipfile
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return append(poetryNames(p.Packages), poetryNames(p.DevPackages)...), nil
}

type cargoManifest struct {
	Dependencies      map[string]any `toml:"dependencies"`
	DevDependencies   map[string]any `toml:"dev-dependencies"`
	BuildDependencies map[string]any `toml:"build-dependencies"`
}

func parseCargo(_ string, data []byte) ([]string, error) {
	var c cargoManifest
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	names := sortedKeys(c.Dependencies)
	names = append(names, sortedKeys(c.DevDependencies)...)
	names = append(names, sortedKeys(c.BuildDependencies)...)
	return names, nil
}

var gemLine = regexp.MustCompile(`(?m)^\s*gem\s+['"]([^'"]+)['"]`)

func parseGemfile(_ string, data []byte) ([]string, error) {
	var names []string
	for _, m := range gemLine.FindAllSubmatch(data, -1) {
		names = append(names, string(m[1]))
	}
	return names, nil
}

type pomProject struct {
	Dependencies []pomDependency `xml:"dependencies>dependency"`
	Management   []pomDependency `xml:"dependencyManagement>dependencies>dependency"`
	Plugins      []pomDependency `xml:"build>plugins>plugin"`
}

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
}

func parsePom(_ string, data []byte) ([]string, error) {
	var p pomProject
	if err := xml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	var names []string
	for _, group := range [][]pomDependency{p.Dependencies, p.Management, p.Plugins} {
		for _, d := range group {
			names = append(names, d.ArtifactID)
		}
	}
	return names, nil
}

// gradleDep matches "implementation 'group:artifact:version'" and the
// Kotlin DSL form implementation("group:artifact:version").
var gradleDep = regexp.MustCompile(`(?m)^\s*(?:implementation|api|compile|compileOnly|runtimeOnly|testImplementation|kapt|annotationProcessor)\s*\(?\s*['"]([^:'"]+):([^:'"]+)`)

func parseGradle(_ string, data []byte) ([]string, error) {
	var names []string
	for _, m := range gradleDep.FindAllSubmatch(data, -1) {
		names = append(names, string(m[2]))
	}
	return names, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
