package signals

import (
	"bytes"
	"errors"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

var errInvalidManifest = errors.New("invalid manifest")

// configRule detects a technology from the presence of a file. Patterns
// are doublestar globs over the slash-separated path relative to the root.
type configRule struct {
	patterns []string
	tokens   []string
	// inspect, when set, derives extra tokens from the file content.
	inspect func(data []byte) []string
}

var configRules = []configRule{
	{patterns: []string{"**/Dockerfile", "**/Dockerfile.*", "**/*.dockerfile", "**/Containerfile"}, tokens: []string{"docker"}},
	{patterns: []string{"**/docker-compose*.yml", "**/docker-compose*.yaml", "**/compose.yml", "**/compose.yaml"}, tokens: []string{"docker", "docker-compose"}, inspect: composeImages},
	{patterns: []string{"**/*.tf", "**/*.tfvars"}, tokens: []string{"terraform"}},
	{patterns: []string{"**/Chart.yaml"}, tokens: []string{"helm", "kubernetes"}},
	{patterns: []string{"**/kustomization.yaml", "**/kustomization.yml"}, tokens: []string{"kubernetes", "kustomize"}},
	{patterns: []string{".github/workflows/*.yml", ".github/workflows/*.yaml"}, tokens: []string{"github-actions", "ci-cd"}},
	{patterns: []string{"**/.gitlab-ci.yml"}, tokens: []string{"gitlab-ci", "ci-cd"}},
	{patterns: []string{"**/Jenkinsfile"}, tokens: []string{"jenkins", "ci-cd"}},
	{patterns: []string{".circleci/config.yml"}, tokens: []string{"circleci", "ci-cd"}},
	{patterns: []string{"**/prometheus.yml", "**/prometheus.yaml"}, tokens: []string{"prometheus"}},
	{patterns: []string{"**/nginx.conf", "**/nginx/**/*.conf"}, tokens: []string{"nginx"}},
	{patterns: []string{"**/*.proto"}, tokens: []string{"grpc", "protobuf"}},
	{patterns: []string{"**/*.graphql", "**/*.graphqls", "**/*.gql"}, tokens: []string{"graphql"}},
	{patterns: []string{"**/serverless.yml", "**/serverless.yaml"}, tokens: []string{"serverless"}},
	{patterns: []string{"**/schema.prisma"}, tokens: []string{"prisma"}},
	{patterns: []string{"**/openapi.yaml", "**/openapi.yml", "**/openapi.json", "**/swagger.yaml", "**/swagger.json"}, tokens: []string{"openapi"}},
	{patterns: []string{"**/tsconfig.json"}, tokens: []string{"typescript"}},
	{patterns: []string{"**/next.config.js", "**/next.config.mjs", "**/next.config.ts"}, tokens: []string{"nextjs"}},
	{patterns: []string{"**/tailwind.config.*"}, tokens: []string{"tailwindcss"}},
	{patterns: []string{"**/vite.config.*"}, tokens: []string{"vite"}},
	{patterns: []string{"**/jest.config.*"}, tokens: []string{"jest"}},
	{patterns: []string{"**/playwright.config.*"}, tokens: []string{"playwright"}},
	{patterns: []string{"**/pytest.ini", "**/conftest.py"}, tokens: []string{"pytest"}},
	{patterns: []string{"**/ansible.cfg", "**/playbook.yml", "**/playbook.yaml"}, tokens: []string{"ansible"}},
	{patterns: []string{"**/vercel.json"}, tokens: []string{"vercel"}},
	{patterns: []string{"**/netlify.toml"}, tokens: []string{"netlify"}},
	{patterns: []string{"**/wrangler.toml"}, tokens: []string{"cloudflare"}},
	{patterns: []string{"**/firebase.json"}, tokens: []string{"firebase"}},
	{patterns: []string{"**/hardhat.config.*", "**/foundry.toml"}, tokens: []string{"ethereum", "solidity"}},
	{patterns: []string{"**/.env.example", "**/.env.sample"}, tokens: []string{"dotenv"}},
	{patterns: []string{"**/alembic.ini"}, tokens: []string{"alembic", "sqlalchemy"}},
	{patterns: []string{"**/*.yaml", "**/*.yml"}, inspect: kubernetesManifest},
}

// matchConfig returns every config rule with a pattern matching rel.
func matchConfig(rel string) []configRule {
	var out []configRule
	for _, r := range configRules {
		for _, p := range r.patterns {
			if ok, _ := doublestar.Match(p, rel); ok {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

type composeFile struct {
	Services map[string]struct {
		Image string `yaml:"image"`
	} `yaml:"services"`
}

// composeImages maps the images of known services to tokens.
func composeImages(data []byte) []string {
	var c composeFile
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil
	}
	var tokens []string
	for _, svc := range c.Services {
		if t := imageToken(svc.Image); t != "" {
			tokens = append(tokens, t)
		}
	}
	sort.Strings(tokens)
	return tokens
}

type k8sHeader struct {
	APIVersion string `yaml:"apiVersion"`
	Kind       string `yaml:"kind"`
}

// kubernetesManifest recognizes any YAML document carrying both apiVersion
// and kind. Multi-document files are checked document by document.
func kubernetesManifest(data []byte) []string {
	if !bytes.Contains(data, []byte("apiVersion")) {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var h k8sHeader
		if err := dec.Decode(&h); err != nil {
			// io.EOF ends the stream; anything else is not a manifest
			return nil
		}
		if h.APIVersion != "" && h.Kind != "" {
			return []string{"kubernetes"}
		}
	}
}

// languageToken returns the language a source file's extension implies.
func languageToken(rel string) string {
	return languageTokens[strings.ToLower(path.Ext(rel))]
}

// IsSignalSource reports whether a change to rel can alter a fingerprint
// through the manifest or config rules. Used by watch mode to ignore
// edits to ordinary source files.
func IsSignalSource(rel string) bool {
	rel = strings.TrimPrefix(path.Clean("/"+rel), "/")
	if _, ok := matchManifest(path.Base(rel)); ok {
		return true
	}
	for _, r := range matchConfig(rel) {
		if len(r.tokens) > 0 {
			return true
		}
	}
	return false
}
