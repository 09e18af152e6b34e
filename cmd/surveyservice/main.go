// Package main implements the Survey Service server.
package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/ElicitSoftware/Survey-sub001/internal/common"
	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/api"
	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/archive"
	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/engine"
	"github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/persistence"
	persistencemongo "github.com/ElicitSoftware/Survey-sub001/internal/surveyservice/persistence/mongo"
)

//go:embed openapi.yaml
var openapiSpec []byte

func runServer(ctx context.Context, configPath string) error {
	common.PrintSplash()
	log.Default().Println("Loading Survey Service...")
	log.Default().Println("Config Path:", configPath)

	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
		return err
	}
	common.PrintConfiguration(cfg)

	// === Main Router ===
	r := chi.NewRouter()
	common.AddCors(r, cfg)
	common.AddHealthEndpoint(r, cfg)
	common.AddSwaggerEndpoint(r, cfg, openapiSpec)

	// === Database ===
	log.Printf("🗄️  Connecting to Postgres at %s:%d/%s", cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.DBName)
	db, err := common.InitializeDatabase(cfg.Postgres, "resources/sql/surveyschema.sql")
	if err != nil {
		log.Printf("❌ DB connect failed: %v", err)
		return err
	}
	log.Println("✅ Postgres connection established")

	// === Definition Snapshot ===
	var loader persistence.DefinitionLoader = persistence.NewPostgreSQLDefinitionLoader(db)
	if cfg.Definitions.Source == "mongodb" {
		loader, err = persistencemongo.NewMongoDefinitionLoader(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			log.Printf("❌ MongoDB connect failed: %v", err)
			return err
		}
		log.Println("✅ MongoDB definition source selected")
	}

	def, err := loader.LoadDefinition(ctx, cfg.Definitions.SurveyID)
	if err != nil {
		log.Printf("❌ Failed to load survey %d: %v", cfg.Definitions.SurveyID, err)
		return err
	}
	log.Printf("✅ Survey %d definition loaded (%d placements)", def.SurveyID(), len(def.StepsSections()))

	// === Engine ===
	eng := engine.New(def, persistence.NewPostgreSQLSurveyBackend(db))
	if cfg.Archive.Enabled {
		archiver, err := archive.NewS3Archiver(ctx, cfg.Archive)
		if err != nil {
			log.Printf("❌ Archive setup failed: %v", err)
			return err
		}
		eng.SetArchiver(archiver)
		log.Printf("✅ Finalize archive enabled (bucket %s)", cfg.Archive.Bucket)
	}

	svc := api.NewSurveyAPIService(eng)
	svc.RegisterRoutes(r, cfg.Server.ContextPath)

	// === Start Server ===
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port)
	log.Printf("▶️ Survey Service listening on %s (contextPath=%q)\n", addr, cfg.Server.ContextPath)

	go func() {
		if err := http.ListenAndServe(addr, r); err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")
	return nil
}

func main() {
	ctx := context.Background()
	configPath := ""
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()
	if err := runServer(ctx, configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
