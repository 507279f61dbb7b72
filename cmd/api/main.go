package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"mediastore/internal/config"
	"mediastore/internal/database"
	"mediastore/internal/domain/upload"
	"mediastore/internal/middleware"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadRuntimeConfig()
	if err != nil {
		log.Fatal(err)
	}

	specData, err := os.ReadFile(cfg.SpecPath)
	if err != nil {
		log.Fatal("read upload spec: ", err)
	}
	spec, err := upload.ParseSpec(specData)
	if err != nil {
		log.Fatal(err)
	}

	if err := os.MkdirAll(cfg.StorageRoot, 0o755); err != nil {
		log.Fatal("create storage root: ", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}

	locator, err := upload.NewLocator(cfg.StorageRoot, upload.Scheme(cfg.StorageScheme))
	if err != nil {
		log.Fatal(err)
	}

	store, err := upload.NewStore(db, upload.StoreConfig{
		Table:    cfg.Table,
		Sequence: cfg.Sequence,
		Columns:  cfg.ColumnMap,
		Extra:    cfg.ExtraColumns,
		URLBase:  cfg.URLBase,
	}, locator)
	if err != nil {
		log.Fatal(err)
	}
	if err := store.EnsureSchema(context.Background()); err != nil {
		log.Fatal(err)
	}
	log.Printf("metadata store ready family=%s table=%s", store.Family(), cfg.Table)

	codec := &upload.ImagingCodec{TempDir: cfg.TempDir}
	service := upload.NewService(
		spec,
		upload.NewExtractor(codec, cfg.StrictMime),
		upload.NewResizer(codec),
		store,
		upload.NewFileStore(locator),
		cfg.TempDir,
	)
	handler := upload.NewHandler(service)

	r := gin.Default()
	r.Use(middleware.ErrorLogger())
	r.Static(cfg.URLBase, cfg.StorageRoot)

	v1 := r.Group("/api/v1")
	upload.RegisterRoutes(v1, handler)

	if err := r.Run(cfg.Addr); err != nil {
		log.Fatal(err)
	}
}
