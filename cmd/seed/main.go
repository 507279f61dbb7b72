// Command seed pushes local files through the upload pipeline, one
// field=path argument per declared upload slot. Useful for populating
// a fresh storage root and metadata table from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"mediastore/internal/config"
	"mediastore/internal/database"
	"mediastore/internal/domain/upload"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		log.Fatalf("usage: %s field=path [field=path ...]", os.Args[0])
	}
	files := make(map[string]upload.LocalFile, len(os.Args)-1)
	for _, arg := range os.Args[1:] {
		field, path, ok := strings.Cut(arg, "=")
		if !ok || field == "" || path == "" {
			log.Fatalf("malformed argument %q, want field=path", arg)
		}
		files[field] = upload.LocalFile{Path: path}
	}

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
	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal(err)
	}

	codec := &upload.ImagingCodec{TempDir: cfg.TempDir}
	service := upload.NewService(
		spec,
		upload.NewExtractor(codec, cfg.StrictMime),
		upload.NewResizer(codec),
		store,
		upload.NewFileStore(locator),
		cfg.TempDir,
	)

	entity, err := service.StoreAll(ctx, upload.FileSource{Files: files}, nil, nil)
	if err != nil {
		log.Fatal(err)
	}
	out, _ := json.MarshalIndent(entity, "", "  ")
	fmt.Println(string(out))
}
