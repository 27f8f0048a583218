package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	SQLite    SQLiteConfig
	Vector    VectorConfig
	Redis     RedisConfig
	LLM       LLMConfig
	Ingestion IngestionConfig
	Concepts  ConceptsConfig
	Output    OutputConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path        string
	BusyTimeout int
}

type VectorConfig struct {
	// Provider selects the vector backend: "milvus" or "local".
	Provider       string
	Endpoint       string
	CollectionName string
	Dim            int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type LLMConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
}

type IngestionConfig struct {
	MaxChunkSize int
	ChunkOverlap int
}

type ConceptsConfig struct {
	VocabularyPath string
}

type OutputConfig struct {
	MaxResults     int
	IncludeSources bool
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/logos-rag")

	viper.SetEnvPrefix("LOGOS_RAG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 60)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("sqlite.path", "./data/metadata.db")
	viper.SetDefault("sqlite.busyTimeout", 30000)

	viper.SetDefault("vector.provider", "local")
	viper.SetDefault("vector.endpoint", "localhost:19530")
	viper.SetDefault("vector.collectionName", "documents")
	viper.SetDefault("vector.dim", 1536)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("llm.model", "gpt-4")
	viper.SetDefault("llm.embeddingModel", "text-embedding-3-small")
	viper.SetDefault("llm.temperature", 0.3)
	viper.SetDefault("llm.maxTokens", 2048)

	viper.SetDefault("ingestion.maxChunkSize", 1000)
	viper.SetDefault("ingestion.chunkOverlap", 100)

	viper.SetDefault("concepts.vocabularyPath", "./config/theological_concepts.yaml")

	viper.SetDefault("output.maxResults", 10)
	viper.SetDefault("output.includeSources", true)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
