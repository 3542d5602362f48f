// Command inspect prints the contents of a saved memory snapshot.
//
//	inspect <snapshot.json|snapshot.yaml> [concept]
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"concept-memory/internal/analytics"
	"concept-memory/internal/config"
	"concept-memory/internal/engine"
	"concept-memory/internal/logger"
	"concept-memory/internal/storage"
)

const topN = 10

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: inspect <snapshot file> [concept]")
		os.Exit(2)
	}
	_ = godotenv.Load(".env")

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	path := os.Args[1]
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	codec, err := storage.CodecFor(format)
	if err != nil {
		lg.Fatal("unsupported snapshot file", zap.String("path", path), zap.Error(err))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		lg.Fatal("read snapshot", zap.Error(err))
	}
	doc, err := codec.Decode(data)
	if err != nil {
		lg.Fatal("decode snapshot", zap.Error(err))
	}

	e := engine.New(cfg.EngineOptions(), lg)
	st := e.Restore(doc)

	fmt.Print(analytics.Summarize(e.Stats(), analytics.TopConcepts(e.Graph(), topN)))
	if !st.OK() {
		fmt.Printf("import problems: %d\n", len(st.Problems))
		for _, p := range st.Problems {
			fmt.Printf("- %s\n", p)
		}
	}

	if len(os.Args) > 2 {
		concept := strings.ToLower(strings.Join(os.Args[2:], "_"))
		fmt.Printf("\nneighbors of %s:\n", concept)
		ns := e.Graph().NeighborsOf(concept)
		if len(ns) == 0 {
			fmt.Println("- none")
		}
		for _, n := range ns {
			fmt.Printf("- %s %.4f\n", n.Concept, n.Weight)
		}
		fmt.Printf("\nrecords mentioning %s: %d\n", concept, e.Log().Mentions(concept))
		for _, r := range e.Log().RelatedTo([]string{concept}) {
			fmt.Printf("#%d %s\n", r.ID, r.Text)
		}
	}
}
