// Package taxonomy defines the fixed category vocabulary of the skill library.
//
// The library on disk is organised as numbered directories (08-messaging-queue,
// 13-file-storage, ...). Those directory names, their display names and a set
// of synonyms all resolve to one Category value here, so category-based
// diversity and gap suggestions work against a closed set.
package taxonomy

import (
	"regexp"
	"strings"
)

// Category is a member of the fixed skill taxonomy.
type Category string

const (
	Foundations        Category = "foundations"
	Frontend           Category = "frontend"
	BackendAPI         Category = "backend-api"
	Database           Category = "database"
	AIMLCore           Category = "ai-ml-core"
	AIMLProduction     Category = "ai-ml-production"
	DocumentProcessing Category = "document-processing"
	Messaging          Category = "messaging"
	Microservices      Category = "microservices"
	Auth               Category = "auth"
	Billing            Category = "billing"
	Compliance         Category = "compliance"
	Storage            Category = "storage"
	Observability      Category = "observability"
	DevOps             Category = "devops"
	Testing            Category = "testing"
	DomainSpecific     Category = "domain-specific"
	ProjectManagement  Category = "project-management"
	SEO                Category = "seo"
	AIIntegration      Category = "ai-integration"
	Documentation      Category = "documentation"
	UXUI               Category = "ux-ui"
	Marketing          Category = "marketing"
	CustomerSupport    Category = "customer-support"
	Ecommerce          Category = "ecommerce"
	Mobile             Category = "mobile"
	CRM                Category = "crm"
	ContentManagement  Category = "content-management"
	Realtime           Category = "realtime"
	Blockchain         Category = "blockchain"
	IoT                Category = "iot"
	VideoStreaming     Category = "video-streaming"
	Gaming             Category = "gaming"
	DataScience        Category = "data-science"
	Networking         Category = "networking"

	// Uncategorized holds documents whose category could not be resolved.
	Uncategorized Category = "uncategorized"
)

// Info describes one category.
type Info struct {
	Category Category `json:"category"`
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	Synonyms []string `json:"synonyms,omitempty"`
}

// infos is in enum order; ties in suggestion matching resolve to the earlier entry.
var infos = []Info{
	{Foundations, "01", "Foundations", []string{"fundamentals", "architecture", "clean-code", "solid", "design-patterns", "python-standards", "typescript", "javascript", "golang", "go", "rust", "python", "java", "pydantic"}},
	{Frontend, "02", "Frontend Development", []string{"react", "next", "nextjs", "vue", "angular", "svelte", "tailwindcss", "tailwind", "redux", "zustand", "css", "html", "vite", "webpack", "ui"}},
	{BackendAPI, "03", "Backend API", []string{"api", "rest", "express", "fastapi", "flask", "django", "nestjs", "gin", "echo", "fiber", "spring", "rails", "graphql", "grpc", "openapi", "koa", "hono"}},
	{Database, "04", "Database", []string{"sql", "postgres", "postgresql", "mysql", "sqlite", "mongodb", "mongoose", "prisma", "sequelize", "typeorm", "drizzle", "redis", "orm", "migration", "dynamodb", "cassandra", "elasticsearch"}},
	{AIMLCore, "05", "AI/ML Core", []string{"ml", "machine-learning", "pytorch", "torch", "tensorflow", "keras", "scikit-learn", "sklearn", "model-training", "deep-learning"}},
	{AIMLProduction, "06", "AI/ML Production", []string{"mlops", "model-serving", "inference", "onnx", "mlflow", "triton", "vllm"}},
	{DocumentProcessing, "07", "Document Processing", []string{"pdf", "ocr", "docx", "parsing", "markdown", "excel", "csv"}},
	{Messaging, "08", "Messaging & Queue", []string{"queue", "kafka", "rabbitmq", "amqp", "mqtt", "pubsub", "nats", "sqs", "sns", "celery", "bullmq", "bull", "event-driven", "redis-streams"}},
	{Microservices, "09", "Microservices", []string{"service-mesh", "istio", "linkerd", "envoy", "saga", "circuit-breaker", "api-gateway"}},
	{Auth, "10", "Authentication & Authorization", []string{"authentication", "authorization", "oauth", "oauth2", "jwt", "oidc", "saml", "next-auth", "passport", "auth0", "keycloak", "rbac", "session"}},
	{Billing, "11", "Billing & Subscription", []string{"stripe", "payments", "subscription", "paddle", "invoice", "paypal"}},
	{Compliance, "12", "Compliance & Governance", []string{"gdpr", "hipaa", "soc2", "pci", "audit", "governance", "privacy"}},
	{Storage, "13", "File Storage", []string{"s3", "blob", "minio", "gcs", "upload", "file-storage", "cdn", "object-storage"}},
	{Observability, "14", "Monitoring & Observability", []string{"monitoring", "prometheus", "grafana", "opentelemetry", "otel", "tracing", "logging", "metrics", "sentry", "datadog", "jaeger", "loki"}},
	{DevOps, "15", "DevOps & Infrastructure", []string{"docker", "docker-compose", "kubernetes", "k8s", "helm", "terraform", "ansible", "ci", "cd", "github-actions", "gitlab-ci", "jenkins", "nginx", "serverless", "infrastructure", "pulumi", "aws", "gcp", "azure"}},
	{Testing, "16", "Testing", []string{"jest", "pytest", "vitest", "mocha", "cypress", "playwright", "selenium", "unit-test", "e2e", "testify", "tdd"}},
	{DomainSpecific, "17", "Domain-Specific", []string{"fintech", "healthcare", "edtech", "legal", "logistics"}},
	{ProjectManagement, "18", "Project Management", []string{"agile", "scrum", "jira", "kanban", "planning"}},
	{SEO, "19", "SEO Optimization", []string{"sitemap", "schema-org", "meta-tags", "search-engine"}},
	{AIIntegration, "20", "AI Integration", []string{"llm", "openai", "anthropic", "langchain", "llamaindex", "rag", "embeddings", "agents", "ai-agents", "prompt", "vector", "pinecone", "chroma"}},
	{Documentation, "21", "Documentation", []string{"docs", "readme", "docusaurus", "mkdocs", "sphinx", "swagger", "adr"}},
	{UXUI, "22", "UX/UI Design", []string{"ux", "design-system", "accessibility", "a11y", "figma", "storybook"}},
	{Marketing, "28", "Marketing Integration", []string{"analytics", "mailchimp", "sendgrid", "email-marketing", "segment", "hubspot-marketing"}},
	{CustomerSupport, "29", "Customer Support", []string{"helpdesk", "zendesk", "intercom", "chatbot", "ticketing"}},
	{Ecommerce, "30", "E-commerce", []string{"shopify", "cart", "checkout", "woocommerce", "medusa", "catalog"}},
	{Mobile, "31", "Mobile Development", []string{"ios", "android", "react-native", "flutter", "expo", "swift", "kotlin"}},
	{CRM, "32", "CRM Integration", []string{"salesforce", "hubspot", "pipedrive", "zoho"}},
	{ContentManagement, "33", "Content Management", []string{"cms", "strapi", "contentful", "sanity", "wordpress", "ghost"}},
	{Realtime, "34", "Real-time Features", []string{"websocket", "websockets", "socket.io", "ws", "sse", "webrtc", "pusher", "live"}},
	{Blockchain, "35", "Blockchain/Web3", []string{"web3", "ethereum", "solidity", "ethers", "hardhat", "smart-contract", "nft", "solana"}},
	{IoT, "36", "IoT Integration", []string{"embedded", "arduino", "raspberry-pi", "sensors", "edge", "zigbee"}},
	{VideoStreaming, "37", "Video Streaming", []string{"video", "hls", "ffmpeg", "streaming", "dash", "rtmp", "mux"}},
	{Gaming, "38", "Gaming Features", []string{"game", "unity", "unreal", "godot", "leaderboard", "matchmaking"}},
	{DataScience, "39", "Data Science/ML", []string{"pandas", "numpy", "jupyter", "data-preprocessing", "polars", "spark", "dbt", "etl", "airflow", "matplotlib"}},
	{Networking, "40", "Networking", []string{"network", "tcp", "udp", "http", "http2", "quic", "dns", "tls", "proxy", "load-balancer", "vpn"}},
}

var (
	bySlug    = map[string]Category{}
	byCode    = map[string]Category{}
	byName    = map[string]Category{}
	bySynonym = map[string]Category{}
	infoOf    = map[Category]Info{}
)

var (
	nonSlug  = regexp.MustCompile(`[^a-z0-9.+]+`)
	numbered = regexp.MustCompile(`^(\d{1,3})[-_ .]+(.*)$`)
)

func init() {
	for _, info := range infos {
		bySlug[string(info.Category)] = info.Category
		byCode[info.Code] = info.Category
		byName[slugify(info.Name)] = info.Category
		infoOf[info.Category] = info
		for _, s := range info.Synonyms {
			if _, taken := bySynonym[s]; !taken {
				bySynonym[s] = info.Category
			}
		}
	}
	infoOf[Uncategorized] = Info{Category: Uncategorized, Name: "Uncategorized"}
}

// All returns every category in enum order, excluding Uncategorized.
func All() []Info {
	out := make([]Info, len(infos))
	copy(out, infos)
	return out
}

// Lookup returns the Info for c.
func Lookup(c Category) (Info, bool) {
	info, ok := infoOf[c]
	return info, ok
}

// Valid reports whether c is a known category other than Uncategorized.
func (c Category) Valid() bool {
	_, ok := bySlug[string(c)]
	return ok
}

// String returns the category slug.
func (c Category) String() string {
	return string(c)
}

// DisplayName returns the human-readable name.
func (c Category) DisplayName() string {
	if info, ok := infoOf[c]; ok {
		return info.Name
	}
	return string(c)
}

// Parse resolves a slug, display name, numbered directory name
// ("08-messaging-queue") or synonym to a Category. Unknown input yields
// Uncategorized and false.
func Parse(s string) (Category, bool) {
	key := slugify(s)
	if key == "" {
		return Uncategorized, false
	}
	if c, ok := lookupKey(key); ok {
		return c, true
	}

	if m := numbered.FindStringSubmatch(key); m != nil {
		code := m[1]
		if len(code) == 1 {
			code = "0" + code
		}
		if c, ok := byCode[code]; ok {
			return c, true
		}
		if c, ok := lookupKey(m[2]); ok {
			return c, true
		}
	}
	if c, ok := byCode[key]; ok {
		return c, true
	}
	return Uncategorized, false
}

// ParseDirName is Parse restricted to numbered directory names. Plain
// directory names such as "kafka" are not treated as categories.
func ParseDirName(name string) (Category, bool) {
	if !numbered.MatchString(slugify(name)) {
		return Uncategorized, false
	}
	return Parse(name)
}

func lookupKey(key string) (Category, bool) {
	if c, ok := bySlug[key]; ok {
		return c, true
	}
	if c, ok := byName[key]; ok {
		return c, true
	}
	if c, ok := bySynonym[key]; ok {
		return c, true
	}
	return "", false
}

// slugify lower-cases s and collapses every run of characters outside
// [a-z0-9.+] to a single dash.
func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "&", " ")
	s = nonSlug.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ParseName resolves only slugs and display names, never synonyms. Free text
// uses it so that a technology word like "kafka" is not read as a category.
func ParseName(s string) (Category, bool) {
	key := slugify(s)
	if c, ok := bySlug[key]; ok {
		return c, true
	}
	if c, ok := byName[key]; ok {
		return c, true
	}
	return Uncategorized, false
}
