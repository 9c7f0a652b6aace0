package signals

import (
	"path"
	"regexp"
	"strings"
)

// libraryAliases maps declared package names to the technology token the
// skill library tags documents with. Keys are lower-case package names as
// they appear in manifests (npm, PyPI, Go module paths, crates, gems,
// Maven artifacts).
var libraryAliases = map[string]string{
	// JavaScript / TypeScript
	"@prisma/client":        "prisma",
	"prisma":                "prisma",
	"socket.io":             "websocket",
	"socket.io-client":      "websocket",
	"ws":                    "websocket",
	"next":                  "nextjs",
	"react-dom":             "react",
	"react-scripts":         "react",
	"@angular/core":         "angular",
	"@nestjs/core":          "nestjs",
	"@nestjs/common":        "nestjs",
	"mongoose":              "mongodb",
	"mongodb":               "mongodb",
	"pg":                    "postgresql",
	"postgres":              "postgresql",
	"mysql2":                "mysql",
	"ioredis":               "redis",
	"kafkajs":               "kafka",
	"amqplib":               "rabbitmq",
	"bullmq":                "bullmq",
	"bull":                  "bullmq",
	"@apollo/server":        "graphql",
	"@apollo/client":        "graphql",
	"apollo-server":         "graphql",
	"graphql-yoga":          "graphql",
	"@grpc/grpc-js":         "grpc",
	"jsonwebtoken":          "jwt",
	"jose":                  "jwt",
	"next-auth":             "next-auth",
	"@auth/core":            "next-auth",
	"@supabase/supabase-js": "supabase",
	"firebase-admin":        "firebase",
	"drizzle-orm":           "drizzle",
	"@opentelemetry/api":    "opentelemetry",
	"@opentelemetry/sdk-node": "opentelemetry",
	"prom-client":           "prometheus",
	"@langchain/core":       "langchain",
	"@aws-sdk/client-s3":    "aws",
	"aws-sdk":               "aws",
	"@google-cloud/storage": "gcp",
	"@azure/storage-blob":   "azure",
	"@stripe/stripe-js":     "stripe",
	"@sentry/node":          "sentry",
	"@sentry/react":         "sentry",
	"@tanstack/react-query": "react-query",
	"@playwright/test":      "playwright",
	"cypress":               "cypress",
	"three":                 "threejs",
	"mqtt":                  "mqtt",
	"ethers":                "ethereum",
	"web3":                  "ethereum",
	"hls.js":                "hls",
	"elasticsearch":         "elasticsearch",
	"@elastic/elasticsearch": "elasticsearch",

	// Python
	"psycopg2":          "postgresql",
	"psycopg2-binary":   "postgresql",
	"psycopg":           "postgresql",
	"asyncpg":           "postgresql",
	"pymysql":           "mysql",
	"pymongo":           "mongodb",
	"motor":             "mongodb",
	"kafka-python":      "kafka",
	"confluent-kafka":   "kafka",
	"aiokafka":          "kafka",
	"pika":              "rabbitmq",
	"aio-pika":          "rabbitmq",
	"paho-mqtt":         "mqtt",
	"torch":             "pytorch",
	"tensorflow":        "tensorflow",
	"scikit-learn":      "scikit-learn",
	"sklearn":           "scikit-learn",
	"transformers":      "huggingface",
	"sentence-transformers": "huggingface",
	"langchain":         "langchain",
	"langchain-core":    "langchain",
	"llama-index":       "llamaindex",
	"openai":            "openai",
	"anthropic":         "anthropic",
	"graphene":          "graphql",
	"strawberry-graphql": "graphql",
	"grpcio":            "grpc",
	"pyjwt":             "jwt",
	"python-jose":       "jwt",
	"boto3":             "aws",
	"prometheus-client": "prometheus",
	"opentelemetry-api": "opentelemetry",
	"opentelemetry-sdk": "opentelemetry",
	"celery":            "celery",
	"sqlalchemy":        "sqlalchemy",
	"beautifulsoup4":    "web-scraping",
	"scrapy":            "web-scraping",
	"pypdf":             "pdf",
	"pypdf2":            "pdf",
	"pdfplumber":        "pdf",
	"websockets":        "websocket",
	"stripe":            "stripe",

	// Go
	"github.com/gin-gonic/gin":              "gin",
	"github.com/labstack/echo":              "echo",
	"github.com/gofiber/fiber":              "fiber",
	"github.com/go-chi/chi":                 "chi",
	"github.com/gorilla/websocket":          "websocket",
	"nhooyr.io/websocket":                   "websocket",
	"github.com/coder/websocket":            "websocket",
	"gorm.io/gorm":                          "gorm",
	"github.com/jackc/pgx":                  "postgresql",
	"github.com/lib/pq":                     "postgresql",
	"github.com/go-sql-driver/mysql":        "mysql",
	"github.com/redis/go-redis":             "redis",
	"github.com/go-redis/redis":             "redis",
	"go.mongodb.org/mongo-driver":           "mongodb",
	"github.com/segmentio/kafka-go":         "kafka",
	"github.com/ibm/sarama":                 "kafka",
	"github.com/shopify/sarama":             "kafka",
	"github.com/confluentinc/confluent-kafka-go": "kafka",
	"github.com/twmb/franz-go":              "kafka",
	"github.com/rabbitmq/amqp091-go":        "rabbitmq",
	"github.com/streadway/amqp":             "rabbitmq",
	"github.com/nats-io/nats.go":            "nats",
	"github.com/eclipse/paho.mqtt.golang":   "mqtt",
	"google.golang.org/grpc":                "grpc",
	"google.golang.org/protobuf":            "protobuf",
	"github.com/99designs/gqlgen":           "graphql",
	"github.com/graphql-go/graphql":         "graphql",
	"github.com/golang-jwt/jwt":             "jwt",
	"github.com/aws/aws-sdk-go":             "aws",
	"github.com/aws/aws-sdk-go-v2":          "aws",
	"cloud.google.com/go/storage":           "gcp",
	"github.com/prometheus/client_golang":   "prometheus",
	"go.opentelemetry.io/otel":              "opentelemetry",
	"github.com/stretchr/testify":           "testify",
	"github.com/spf13/cobra":                "cobra",
	"github.com/stripe/stripe-go":           "stripe",
	"github.com/sashabaranov/go-openai":     "openai",
	"github.com/anthropics/anthropic-sdk-go": "anthropic",
	"github.com/mark3labs/mcp-go":           "mcp",
	"github.com/modelcontextprotocol/go-sdk": "mcp",
	"k8s.io/client-go":                      "kubernetes",
	"github.com/elastic/go-elasticsearch":   "elasticsearch",

	// Rust
	"tokio":            "tokio",
	"actix-web":        "actix",
	"axum":             "axum",
	"tonic":            "grpc",
	"rdkafka":          "kafka",
	"lapin":            "rabbitmq",
	"sqlx":             "sqlx",
	"diesel":           "diesel",
	"tokio-tungstenite": "websocket",
	"async-graphql":    "graphql",

	// Ruby / PHP / JVM
	"rails":                      "rails",
	"sidekiq":                    "sidekiq",
	"pg-ruby":                    "postgresql",
	"ruby-kafka":                 "kafka",
	"bunny":                      "rabbitmq",
	"laravel/framework":          "laravel",
	"symfony/framework-bundle":   "symfony",
	"php-amqplib/php-amqplib":    "rabbitmq",
	"spring-boot-starter-web":    "spring",
	"spring-boot-starter":        "spring",
	"spring-kafka":               "kafka",
	"kafka-clients":              "kafka",
	"spring-boot-starter-amqp":   "rabbitmq",
	"postgresql":                 "postgresql",
	"mysql-connector-java":       "mysql",
	"grpc-netty":                 "grpc",
	"graphql-java":               "graphql",
	"junit-jupiter":              "junit",
	"junit":                      "junit",
}

// ignoredScopes are npm scopes that carry no technology meaning on their own.
var ignoredScopes = map[string]struct{}{
	"types":             {},
	"babel":             {},
	"eslint":            {},
	"typescript-eslint": {},
	"commitlint":        {},
	"vitejs":            {},
	"testing-library":   {},
}

var goMajorSuffix = regexp.MustCompile(`/v[0-9]+$`)

// normalizePackage maps a declared dependency name to a technology token.
// Aliases win; otherwise npm scopes and Go module paths are reduced to
// their most specific meaningful segment. An empty result means the
// dependency carries no usable token.
func normalizePackage(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	if alias, ok := libraryAliases[name]; ok {
		return alias
	}

	switch {
	case strings.HasPrefix(name, "@"):
		scope, _, _ := strings.Cut(name[1:], "/")
		if _, skip := ignoredScopes[scope]; skip {
			return ""
		}
		if alias, ok := libraryAliases["@"+scope]; ok {
			return alias
		}
		return scope

	case strings.Contains(name, "."), strings.Count(name, "/") > 1:
		// Go module path: strip the major version suffix and retry the table.
		trimmed := goMajorSuffix.ReplaceAllString(name, "")
		if alias, ok := libraryAliases[trimmed]; ok {
			return alias
		}
		if strings.Contains(trimmed, "/") {
			return path.Base(trimmed)
		}
		return trimmed

	case strings.Contains(name, "/"):
		// composer vendor/package
		_, pkg, _ := strings.Cut(name, "/")
		return pkg
	}
	return name
}

// imageAliases maps container image names from compose files to tokens.
var imageAliases = map[string]string{
	"postgres":       "postgresql",
	"postgis":        "postgresql",
	"mysql":          "mysql",
	"mariadb":        "mysql",
	"mongo":          "mongodb",
	"redis":          "redis",
	"valkey":         "redis",
	"kafka":          "kafka",
	"cp-kafka":       "kafka",
	"redpanda":       "kafka",
	"zookeeper":      "zookeeper",
	"cp-zookeeper":   "zookeeper",
	"rabbitmq":       "rabbitmq",
	"nats":           "nats",
	"mosquitto":      "mqtt",
	"eclipse-mosquitto": "mqtt",
	"emqx":           "mqtt",
	"elasticsearch":  "elasticsearch",
	"opensearch":     "elasticsearch",
	"nginx":          "nginx",
	"traefik":        "traefik",
	"prometheus":     "prometheus",
	"grafana":        "grafana",
	"jaeger":         "opentelemetry",
	"all-in-one":     "opentelemetry",
	"otel-collector": "opentelemetry",
	"minio":          "s3",
	"localstack":     "aws",
	"keycloak":       "keycloak",
	"qdrant":         "vector-database",
	"weaviate":       "vector-database",
	"milvus":         "vector-database",
	"pgvector":       "vector-database",
	"ollama":         "ollama",
	"clickhouse-server": "clickhouse",
	"memcached":      "memcached",
}

// imageToken reduces "docker.io/bitnami/kafka:3.6" to its alias token.
func imageToken(image string) string {
	image = strings.ToLower(strings.TrimSpace(image))
	if image == "" || strings.Contains(image, "${") {
		return ""
	}
	if i := strings.IndexAny(image, "@"); i >= 0 {
		image = image[:i]
	}
	name := path.Base(image)
	if i := strings.Index(name, ":"); i >= 0 {
		name = name[:i]
	}
	return imageAliases[name]
}

// keywordVocabulary is the set of technology names the keyword rule looks
// for in free text. Ambiguous English words (go, next, echo, express,
// spring) are deliberately absent.
var keywordVocabulary = buildVocabulary([]string{
	"kafka", "rabbitmq", "mqtt", "nats", "zeromq", "pubsub",
	"redis", "memcached", "postgresql", "postgres", "mysql", "mongodb", "sqlite",
	"elasticsearch", "cassandra", "dynamodb", "clickhouse", "neo4j", "supabase", "firebase",
	"graphql", "grpc", "protobuf", "websocket", "websockets", "socket.io", "webrtc",
	"kubernetes", "k8s", "docker", "terraform", "helm", "ansible", "pulumi",
	"prometheus", "grafana", "opentelemetry", "jaeger", "sentry", "datadog",
	"oauth", "oauth2", "jwt", "saml", "keycloak", "auth0",
	"stripe", "paypal", "openai", "anthropic", "langchain", "llamaindex", "huggingface",
	"pytorch", "tensorflow", "scikit-learn", "pandas", "numpy",
	"react", "vue", "svelte", "angular", "nextjs", "nuxt", "tailwindcss",
	"django", "fastapi", "flask", "rails", "laravel", "nestjs",
	"typescript", "python", "golang", "rust", "kotlin", "swift", "java",
	"s3", "gcs", "aws", "gcp", "azure", "cloudflare", "vercel", "netlify",
	"nginx", "traefik", "envoy", "istio",
	"ethereum", "solidity", "web3",
	"ffmpeg", "hls", "webassembly", "wasm",
	"playwright", "cypress", "jest", "pytest", "vitest",
	"celery", "sidekiq", "bullmq", "airflow", "spark", "kafka-streams",
	"pdf", "ocr", "tesseract",
})

// keywordAliases folds spelling variants found by the keyword rule.
var keywordAliases = map[string]string{
	"postgres":   "postgresql",
	"k8s":        "kubernetes",
	"websockets": "websocket",
	"socket.io":  "websocket",
	"golang":     "go",
	"oauth2":     "oauth",
	"wasm":       "webassembly",
}

func buildVocabulary(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// languageTokens maps source extensions to the language token detected by
// file presence. Markup, data and stylesheet formats are not listed.
var languageTokens = map[string]string{
	".go":    "go",
	".py":    "python",
	".ts":    "typescript",
	".tsx":   "typescript",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".rs":    "rust",
	".java":  "java",
	".kt":    "kotlin",
	".rb":    "ruby",
	".php":   "php",
	".cs":    "csharp",
	".swift": "swift",
	".scala": "scala",
	".ex":    "elixir",
	".exs":   "elixir",
	".dart":  "dart",
	".sol":   "solidity",
	".vue":   "vue",
	".svelte": "svelte",
}

// textExtensions are the files the keyword rule reads.
var textExtensions = map[string]struct{}{
	".md": {}, ".txt": {}, ".rst": {},
	".go": {}, ".py": {}, ".ts": {}, ".tsx": {}, ".js": {}, ".jsx": {}, ".mjs": {},
	".rs": {}, ".java": {}, ".kt": {}, ".rb": {}, ".php": {}, ".cs": {}, ".swift": {},
	".scala": {}, ".ex": {}, ".exs": {}, ".dart": {}, ".vue": {}, ".svelte": {},
	".yaml": {}, ".yml": {}, ".toml": {}, ".json": {}, ".env": {}, ".ini": {}, ".cfg": {},
	".sh": {}, ".sql": {},
}
