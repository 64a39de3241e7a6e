package main

import (
	"log"

	"procurement-backend/config"
	"procurement-backend/handlers"
	"procurement-backend/kb"
	"procurement-backend/llm"
	"procurement-backend/repository"
	"procurement-backend/service"
	"procurement-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from project root (relative to cmd/server/)
	// Try current directory first, then project root
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	cfg := config.Load()

	// Knowledge base client
	kbClient := kb.NewClient(kb.Config{
		Host:          cfg.VikingHost,
		AK:            cfg.VikingAK,
		SK:            cfg.VikingSK,
		CollectionID:  cfg.CollectionID,
		RerankSwitch:  cfg.RerankSwitch,
		RerankModel:   cfg.RerankModel,
		DenseWeight:   cfg.DenseWeight,
		RetrieveCount: cfg.RetrieveCount,
	})
	log.Println("知识库客户端初始化完成")

	// LLM client; the service degrades to raw search results without one
	var chatter service.Chatter
	if cfg.HasLLM() {
		chatter = llm.NewClient(llm.Config{
			APIKey:  cfg.ArkAPIKey,
			BaseURL: cfg.ArkBaseURL,
			Model:   cfg.ArkModel,
		})
		log.Printf("LLM 客户端初始化完成, 模型: %s", cfg.ArkModel)
	} else {
		log.Println("Warning: ARK_API_KEY 未设置, 运行在无 LLM 模式")
	}

	// Repositories
	projectRepo, err := repository.NewProjectRepository(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to initialize project repository: %v", err)
	}
	productRepo, err := repository.NewProductRepository(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to initialize product repository: %v", err)
	}

	// Upload archive storage
	fileStorage, err := storage.New(storage.Config{
		Type:            storage.Type(cfg.StorageType),
		LocalPath:       cfg.LocalStoragePath,
		S3Bucket:        cfg.S3Bucket,
		S3Region:        cfg.S3Region,
		S3Endpoint:      cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		ForcePathStyle:  cfg.S3ForcePathStyle,
	})
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	log.Println("Storage initialized")

	// Services
	knowledgeService := service.NewKnowledgeService(
		service.KnowledgeWithSearcher(kbClient),
		service.KnowledgeWithChatter(chatter),
		service.KnowledgeWithSupplierDocs(cfg.GroupSupplierDocID, cfg.OilfieldSupplierDocID),
		service.KnowledgeWithCertificateDoc(cfg.CertificateDocID),
	)

	// Handlers
	knowledgeHandler := handlers.NewKnowledgeHandler(knowledgeService)
	projectHandler := handlers.NewProjectHandler(projectRepo)
	productHandler := handlers.NewProductHandler(productRepo)
	uploadHandler := handlers.NewUploadHandler(productRepo, projectRepo, fileStorage)

	// Setup Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Knowledge base endpoints
		api.POST("/knowledge/search", knowledgeHandler.Search)
		api.POST("/knowledge/search-specs", knowledgeHandler.SearchSpecs)
		api.POST("/knowledge/search-suppliers", knowledgeHandler.SearchSuppliers)
		api.POST("/knowledge/qa", knowledgeHandler.QA)
		api.POST("/knowledge/certificate-personnel", knowledgeHandler.CertificatePersonnel)
		api.POST("/knowledge/refresh-image-link", knowledgeHandler.RefreshImageLink)

		// Project endpoints
		api.POST("/projects", projectHandler.Create)
		api.GET("/projects", projectHandler.List)
		api.GET("/projects/:id", projectHandler.Get)
		api.DELETE("/projects/:id", projectHandler.Delete)

		// Product endpoints
		api.GET("/products", productHandler.List)
		api.GET("/products/:id", productHandler.Get)
		api.PUT("/products/:id", productHandler.Update)
		api.PUT("/products/:id/specs-suppliers", productHandler.UpdateSpecsAndSuppliers)
		api.POST("/products/:id/complete", productHandler.CompleteInquiry)
		api.DELETE("/products/:id", productHandler.Delete)

		// Upload endpoint
		api.POST("/upload", uploadHandler.Upload)
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
