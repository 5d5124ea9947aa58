package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joelkehle/office-action-analyzer/internal/docxport"
	"github.com/joelkehle/office-action-analyzer/internal/extract"
	"github.com/joelkehle/office-action-analyzer/internal/llm"
	"github.com/joelkehle/office-action-analyzer/internal/rebuttal"
	"github.com/joelkehle/office-action-analyzer/internal/tracing"
)

func main() {
	actionFlag := flag.String("action", "", "office action PDF (required)")
	referenceFlag := flag.String("reference", "", "referenced prior-art PDF (required)")
	filedFlag := flag.String("filed", "", "application-as-filed PDF (required)")
	pendingFlag := flag.String("pending", "", "pending claims PDF (optional)")
	outFlag := flag.String("out", ".", "output directory for report.md and report.docx")
	flag.Parse()

	if *actionFlag == "" || *referenceFlag == "" || *filedFlag == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdown, err := tracing.Setup(ctx, "rebuttal-pipeline")
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	completer, err := llm.NewCompleterFromEnv()
	if err != nil {
		log.Fatalf("llm: %v", err)
	}

	docs := rebuttal.Documents{
		Action:    mustExtract(ctx, *actionFlag),
		Reference: mustExtract(ctx, *referenceFlag),
		Filed:     mustExtract(ctx, *filedFlag),
	}
	if *pendingFlag != "" {
		docs.Pending = mustExtract(ctx, *pendingFlag)
	}

	pipeline := rebuttal.NewPipeline(rebuttal.NewLLMStageRunner(completer))
	state, err := pipeline.RunAll(ctx, docs, func(stage rebuttal.Stage, msg string) {
		log.Print(msg)
	})
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	report := rebuttal.BuildReportMarkdown(state)
	mdPath := filepath.Join(*outFlag, "report.md")
	if err := os.WriteFile(mdPath, []byte(report), 0o644); err != nil {
		log.Fatalf("write %s: %v", mdPath, err)
	}
	docxData, err := docxport.Export(report)
	if err != nil {
		log.Fatalf("export docx: %v", err)
	}
	docxPath := filepath.Join(*outFlag, "report.docx")
	if err := os.WriteFile(docxPath, docxData, 0o644); err != nil {
		log.Fatalf("write %s: %v", docxPath, err)
	}
	log.Printf("wrote %s and %s", mdPath, docxPath)
}

func mustExtract(ctx context.Context, path string) string {
	doc, err := extract.ExtractPDF(ctx, path)
	if err != nil {
		log.Fatalf("extract %s: %v", path, err)
	}
	log.Printf("extracted %s (%d pages, %s)", path, doc.PageCount(), doc.Method)
	return doc.Text()
}
