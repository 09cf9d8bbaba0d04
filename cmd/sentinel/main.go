// Sentinel is a layered content-safety pipeline for AI-assisted
// development platforms: pattern detection, semantic classification,
// code backdoor analysis and risk summarization behind one decision.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/sentinelsec/sentinel/pkg/backdoor"
	"github.com/sentinelsec/sentinel/pkg/cache"
	"github.com/sentinelsec/sentinel/pkg/config"
	"github.com/sentinelsec/sentinel/pkg/detect"
	"github.com/sentinelsec/sentinel/pkg/pipeline"
	"github.com/sentinelsec/sentinel/pkg/semantic"
	"github.com/sentinelsec/sentinel/pkg/summarize"
	"github.com/sentinelsec/sentinel/pkg/telemetry"
)

// Version is the release version, overridable at build time.
var Version = "0.1.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		port := "3000"
		if len(os.Args) > 2 {
			port = os.Args[2]
		}
		runHTTPServer(port)
	case "scan":
		if len(os.Args) < 3 {
			fmt.Println("Usage: sentinel scan [--type <content_type>] <text>")
			os.Exit(1)
		}
		args := os.Args[2:]
		contentType := ""
		if args[0] == "--type" && len(args) >= 3 {
			contentType = args[1]
			args = args[2:]
		}
		runCLIScan(strings.Join(args, " "), contentType)
	case "version":
		fmt.Printf("Sentinel v%s\n", Version)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Sentinel - layered content-safety pipeline")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sentinel serve [port]                  Start the HTTP server (default port 3000)")
	fmt.Println("  sentinel scan [--type <ct>] <text>     Scan text once and print the decision")
	fmt.Println("  sentinel version                       Print version")
}

// buildOrchestrator assembles the pipeline from configuration, logging
// which optional components came up.
func buildOrchestrator(cfg *config.Config) *pipeline.Orchestrator {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	engine := detect.NewEngine(detect.EngineOptions{
		EnabledCategories: cfg.EnabledCategories,
		MaxParallelChecks: cfg.MaxParallelChecks,
		MaxInputLength:    cfg.MaxInputLength,
	})
	log.Printf("✓ Detection engine enabled (%d patterns, %d categories)",
		detect.Get().TotalPatterns(), len(cfg.EnabledCategories))

	var store cache.Store
	if cfg.RedisAddr != "" {
		redisStore, err := cache.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Printf("○ Redis cache store disabled (connect failed: %v)", err)
		} else {
			store = redisStore
			log.Printf("✓ Redis cache store enabled (%s)", cfg.RedisAddr)
		}
	} else {
		log.Println("○ Redis cache store disabled (not configured)")
	}
	resultCache := cache.New(cache.Options{
		TTL:     cfg.CacheTTL,
		MaxSize: cfg.CacheMaxSize,
		Store:   store,
	})

	semClient := semantic.NewClient(cfg.SemanticURL, cfg.SemanticAPIKey, cfg.SemanticTimeout)
	if semClient.Ready() {
		log.Println("✓ Semantic adapter enabled")
	} else {
		log.Println("○ Semantic adapter disabled (no endpoint/key)")
	}

	var index *backdoor.EmbeddingIndex
	if cfg.EmbeddingURL != "" {
		var err error
		index, err = backdoor.NewEmbeddingIndex(ctx, cfg.EmbeddingURL, cfg.EmbeddingModel, cfg.EmbeddingTimeout)
		if err != nil {
			log.Printf("○ Embedding similarity disabled (init failed: %v)", err)
			index = nil
		} else {
			log.Println("✓ Embedding similarity enabled (chromem-go)")
		}
	} else {
		log.Println("○ Embedding similarity disabled (no embedder configured)")
	}
	analyzer := backdoor.New(backdoor.Thresholds{
		SQLRisk:      cfg.SQLRiskThreshold,
		Subprocess:   cfg.SubprocessThreshold,
		EmbeddingSim: cfg.EmbeddingSimThreshold,
		MediumFloor:  cfg.MediumRiskFloor,
	}, index)

	summarizer := summarize.New(cfg.SummaryLLMURL, cfg.SummaryLLMKey, cfg.SummaryLLMModel, cfg.SummaryLLMTimeout)
	if summarizer.Ready() {
		log.Println("✓ Risk summarizer enabled (LLM)")
	} else {
		log.Println("○ Risk summarizer on deterministic fallback (no LLM configured)")
	}

	emitter := telemetry.NewEmitter(telemetry.LogSink{})
	if cfg.AuditLogPath != "" {
		if sink, err := telemetry.NewFileSink(cfg.AuditLogPath); err != nil {
			log.Printf("○ Audit log disabled (open failed: %v)", err)
		} else {
			emitter.AddSink(sink)
			log.Printf("✓ Audit log enabled (%s)", cfg.AuditLogPath)
		}
	}
	if cfg.WebhookURL != "" {
		if sink, err := telemetry.NewWebhookSink(cfg.WebhookURL, 10); err != nil {
			log.Printf("○ Webhook telemetry disabled: %v", err)
		} else {
			emitter.AddSink(sink)
			log.Printf("✓ Webhook telemetry enabled (%s)", cfg.WebhookURL)
		}
	}
	if cfg.PostgresDSN != "" {
		if sink, err := telemetry.NewPostgresSink(ctx, cfg.PostgresDSN); err != nil {
			log.Printf("○ Postgres telemetry disabled (connect failed: %v)", err)
		} else {
			emitter.AddSink(sink)
			log.Println("✓ Postgres telemetry enabled")
		}
	}

	return pipeline.New(pipeline.Options{
		Config:     cfg,
		Engine:     engine,
		Cache:      resultCache,
		Semantic:   semClient,
		Analyzer:   analyzer,
		Summarizer: summarizer,
		Emitter:    emitter,
	})
}

func runHTTPServer(port string) {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("[STARTUP] FATAL: %v", err)
	}
	cfg.MustValidate()
	orch := buildOrchestrator(cfg)

	app := fiber.New(fiber.Config{
		AppName: "Sentinel",
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": Version})
	})

	app.Post("/scan", func(c fiber.Ctx) error {
		var req pipeline.Request
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		if req.Text == "" {
			return c.Status(400).JSON(fiber.Map{"error": "text field is required"})
		}
		decision, err := orch.Process(c.Context(), req)
		if err != nil {
			log.Printf("[WARN] scan failed: %v", err)
			return c.Status(500).JSON(fiber.Map{"error": "scan failed"})
		}
		return c.JSON(decision)
	})

	log.Printf("Sentinel HTTP server starting on :%s", port)
	log.Printf("Endpoints:")
	log.Printf("  GET  /health  - Health check")
	log.Printf("  POST /scan    - Scan content {text, content_type?, direction?}")

	if err := app.Listen(":" + port); err != nil {
		log.Fatal(err)
	}
}

func runCLIScan(text, contentType string) {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("[STARTUP] FATAL: %v", err)
	}
	cfg.MustValidate()
	orch := buildOrchestrator(cfg)

	decision, err := orch.Process(context.Background(), pipeline.Request{
		Text:        text,
		ContentType: contentType,
	})
	if err != nil {
		log.Fatalf("scan failed: %v", err)
	}
	out, err := json.MarshalIndent(decision, "", "  ")
	if err != nil {
		log.Fatalf("encode decision: %v", err)
	}
	fmt.Println(string(out))

	if decision.Blocked() {
		os.Exit(2)
	}
}
