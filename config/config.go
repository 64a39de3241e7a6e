package config

import (
	"os"
	"strconv"
)

// Config holds every runtime setting. It is populated once from the
// environment in Load; nothing else in the codebase reads env vars.
type Config struct {
	Port string

	// Viking knowledge base
	VikingAK     string
	VikingSK     string
	VikingHost   string
	CollectionID string

	// Knowledge base search tuning
	SearchLimit   int
	RerankSwitch  bool
	RerankModel   string
	DenseWeight   float64
	RetrieveCount int

	// Well-known documents inside the collection
	GroupSupplierDocID    string
	OilfieldSupplierDocID string
	CertificateDocID      string

	// Ark LLM endpoint (OpenAI compatible)
	ArkAPIKey  string
	ArkBaseURL string
	ArkModel   string

	// Persistence
	DataDir string

	// Upload archive storage
	StorageType         string
	LocalStoragePath    string
	S3Bucket            string
	S3Region            string
	S3Endpoint          string
	S3AccessKeyID       string
	S3SecretAccessKey   string
	S3ForcePathStyle    bool
}

// Load reads the environment and applies defaults.
func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8000"),

		VikingAK:     os.Getenv("VIKING_AK"),
		VikingSK:     os.Getenv("VIKING_SK"),
		VikingHost:   getEnv("VIKING_HOST", "api-knowledgebase.mlp.cn-beijing.volces.com"),
		CollectionID: os.Getenv("KNOWLEDGE_COLLECTION_ID"),

		SearchLimit:   getEnvInt("KNOWLEDGE_SEARCH_LIMIT", 10),
		RerankSwitch:  getEnvBool("KNOWLEDGE_RERANK_SWITCH", false),
		RerankModel:   getEnv("KNOWLEDGE_RERANK_MODEL", "Doubao-pro-4k-rerank"),
		DenseWeight:   getEnvFloat("KNOWLEDGE_DENSE_WEIGHT", 0.5),
		RetrieveCount: getEnvInt("KNOWLEDGE_RETRIEVE_COUNT", 15),

		GroupSupplierDocID:    os.Getenv("GROUP_SUPPLIER_DOC_ID"),
		OilfieldSupplierDocID: os.Getenv("OILFIELD_SUPPLIER_DOC_ID"),
		CertificateDocID:      getEnv("CERTIFICATE_DOC_ID", "_sys_auto_gen_doc_id-17526703582802695253"),

		ArkAPIKey:  os.Getenv("ARK_API_KEY"),
		ArkBaseURL: getEnv("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		ArkModel:   getEnv("ARK_MODEL", "doubao-seed-1-6-flash-250828"),

		DataDir: getEnv("DATA_DIR", "./data"),

		StorageType:       getEnv("STORAGE_TYPE", "local"),
		LocalStoragePath:  getEnv("LOCAL_STORAGE_PATH", "./uploads"),
		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3ForcePathStyle:  getEnvBool("S3_FORCE_PATH_STYLE", false),
	}
}

// HasLLM reports whether the Ark model can be called.
func (c *Config) HasLLM() bool {
	return c.ArkAPIKey != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
