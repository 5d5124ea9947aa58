package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/joelkehle/office-action-analyzer/internal/httpapi"
	"github.com/joelkehle/office-action-analyzer/internal/llm"
	"github.com/joelkehle/office-action-analyzer/internal/pdfexport"
	"github.com/joelkehle/office-action-analyzer/internal/rebuttal"
	"github.com/joelkehle/office-action-analyzer/internal/session"
	"github.com/joelkehle/office-action-analyzer/internal/tracing"
)

func main() {
	addrFlag := flag.String("addr", "", "listen address (overrides PORT env var)")
	dbFlag := flag.String("db", "", "path to SQLite database file (overrides DB_PATH env var)")
	uploadsFlag := flag.String("uploads", "", "upload scratch directory (overrides UPLOAD_DIR env var)")
	flag.Parse()

	addr := *addrFlag
	if addr == "" {
		addr = ":8080"
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		}
	}
	dbPath := *dbFlag
	if dbPath == "" {
		dbPath = os.Getenv("DB_PATH")
	}
	if dbPath == "" {
		dbPath = "./data/sessions.db"
	}
	uploadDir := *uploadsFlag
	if uploadDir == "" {
		uploadDir = os.Getenv("UPLOAD_DIR")
	}
	if uploadDir == "" {
		uploadDir = "./data/uploads"
	}

	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		log.Fatalf("create upload dir (%s): %v", uploadDir, err)
	}

	shutdown, err := tracing.Setup(context.Background(), "rebuttal-server")
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	store, err := session.Open(dbPath)
	if err != nil {
		log.Fatalf("open session store (%s): %v", dbPath, err)
	}
	defer store.Close()
	log.Printf("using session store at %s", dbPath)

	completer, err := llm.NewCompleterFromEnv()
	if err != nil {
		// The process stays up; the misconfiguration surfaces when a
		// stage is first run.
		log.Printf("llm not configured: %v", err)
		completer = llm.Disabled{Reason: err}
	}

	h := httpapi.NewServer(httpapi.Config{
		Store:     store,
		Pipeline:  rebuttal.NewPipeline(rebuttal.NewLLMStageRunner(completer)),
		Renderer:  pdfexport.NewChromiumRenderer(),
		UploadDir: uploadDir,
	})
	log.Printf("rebuttal-server listening on %s", addr)
	if err := http.ListenAndServe(addr, h); err != nil {
		log.Fatal(err)
	}
}
