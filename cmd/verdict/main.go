// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	verdict "github.com/poiesic/verdict"
	"github.com/poiesic/verdict/ai"
	"github.com/poiesic/verdict/core"
	"github.com/poiesic/verdict/pipeline"
	"github.com/urfave/cli/v2"
)

func main() {
	// Optional .env for local runs; absence is fine
	godotenv.Load()

	app := &cli.App{
		Name:  "verdict",
		Usage: "Compliance document pipeline: policies in, rules and violations out",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Store a PDF document for an organization",
				ArgsUsage: "<file.pdf>",
				Action:    ingestCommand,
				Flags: append(storeFlags(),
					&cli.Uint64Flag{
						Name:     "org",
						Usage:    "Organization ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "kind",
						Usage:    "Document kind: policy or audit",
						Required: true,
					},
				),
			},
			{
				Name:      "process-policy",
				Usage:     "Run the policy pipeline for an ingested document",
				ArgsUsage: "<document-id>",
				Action:    processPolicyCommand,
				Flags:     append(storeFlags(), aiFlags()...),
			},
			{
				Name:      "process-audit",
				Usage:     "Run the audit pipeline for an ingested document",
				ArgsUsage: "<document-id>",
				Action:    processAuditCommand,
				Flags:     append(storeFlags(), aiFlags()...),
			},
			{
				Name:      "status",
				Usage:     "Show a document's processing status",
				ArgsUsage: "<document-id>",
				Action:    statusCommand,
				Flags:     storeFlags(),
			},
			{
				Name:   "rules",
				Usage:  "List extracted compliance rules for an organization",
				Action: rulesCommand,
				Flags: append(storeFlags(),
					&cli.Uint64Flag{
						Name:     "org",
						Usage:    "Organization ID",
						Required: true,
					},
					&cli.Uint64Flag{
						Name:  "policy",
						Usage: "Filter to one source policy document ID",
					},
				),
			},
			{
				Name:      "violations",
				Usage:     "List violations detected in an audit document",
				ArgsUsage: "<audit-document-id>",
				Action:    violationsCommand,
				Flags: append(storeFlags(),
					&cli.Uint64Flag{
						Name:     "org",
						Usage:    "Organization ID",
						Required: true,
					},
				),
			},
			{
				Name:      "remediate",
				Usage:     "Draft and attach a remediation suggestion for a violation",
				ArgsUsage: "<violation-id>",
				Action:    remediateCommand,
				Flags:     append(storeFlags(), aiFlags()...),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// storeFlags are shared by every command that opens the database.
func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory",
			EnvVars: []string{"VERDICT_DB"},
			Value:   "verdict-data/records",
		},
		&cli.StringFlag{
			Name:    "blobs",
			Usage:   "Path to blob store directory",
			EnvVars: []string{"VERDICT_BLOBS"},
			Value:   "verdict-data/blobs",
		},
	}
}

// aiFlags are shared by commands that call model services.
func aiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Usage:   "OpenAI-compatible service host URL",
			EnvVars: []string{"VERDICT_AI_HOST"},
			Value:   "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			EnvVars: []string{"VERDICT_EMBEDDING_MODEL"},
			Value:   "embeddinggemma",
		},
		&cli.StringFlag{
			Name:    "chat-model",
			Usage:   "Chat model name for extraction and detection",
			EnvVars: []string{"VERDICT_CHAT_MODEL"},
			Value:   "qwen2.5:3b",
		},
		&cli.IntFlag{
			Name:  "max-parse-attempts",
			Usage: "Retry budget for malformed model output",
			Value: 3,
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Maximum time to wait for processing to finish",
			Value: 10 * time.Minute,
		},
	}
}

func openDatabase(c *cli.Context) (*verdict.Database, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithChatModel(c.String("chat-model")),
		ai.WithMaxParseAttempts(c.Int("max-parse-attempts")),
	)

	db, err := verdict.NewDatabase(c.String("db"), c.String("blobs"),
		verdict.WithAIConfig(aiConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one PDF file argument")
	}
	filePath := c.Args().First()

	kind, err := parseKind(c.String("kind"))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	orgID := core.ID(c.Uint64("org"))
	doc, err := db.DocumentRepository().AddDocument(ctx, &core.Document{
		OrgId:    orgID,
		Kind:     kind,
		Filename: filepath.Base(filePath),
	})
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	blobPath, err := db.BlobStore().Put(ctx, orgID, doc.Id, data)
	if err != nil {
		return fmt.Errorf("failed to store blob: %w", err)
	}

	doc, err = db.DocumentRepository().AttachBlob(ctx, doc.Id, blobPath, int64(len(data)))
	if err != nil {
		return fmt.Errorf("failed to record blob location: %w", err)
	}

	fmt.Printf("Ingested %s as document %d (org %d, kind %s, %d bytes)\n",
		doc.Filename, doc.Id, doc.OrgId, doc.Kind, doc.FileSize)
	return nil
}

func processPolicyCommand(c *cli.Context) error {
	return processCommand(c, core.KindPolicy)
}

func processAuditCommand(c *cli.Context) error {
	return processCommand(c, core.KindAudit)
}

func processCommand(c *cli.Context, kind core.DocumentKind) error {
	ctx := context.Background()

	docID, err := argumentID(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := db.NewPipeline()
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer p.Release()

	if kind == core.KindPolicy {
		err = p.TriggerPolicyProcessing(ctx, docID)
	} else {
		err = p.TriggerAuditProcessing(ctx, docID)
	}
	if err != nil {
		return fmt.Errorf("failed to start processing: %w", err)
	}

	doc, err := waitForTerminal(ctx, p, docID, c.Duration("timeout"))
	if err != nil {
		return err
	}

	if doc.Status == core.StatusFailed {
		return fmt.Errorf("document %d failed: %s", docID, doc.FailureReason)
	}

	fmt.Printf("Document %d finished with status %s", docID, doc.Status)
	if doc.FailureReason != "" {
		fmt.Printf(" (%s)", doc.FailureReason)
	}
	fmt.Println()
	return nil
}

// waitForTerminal polls until the document reaches a terminal status.
func waitForTerminal(ctx context.Context, p *pipeline.Pipeline, docID core.ID, timeout time.Duration) (*core.Document, error) {
	deadline := time.Now().Add(timeout)
	for {
		doc, err := p.GetStatus(ctx, docID)
		if err != nil {
			return nil, err
		}
		if doc.Status.Terminal() {
			return doc, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timed out waiting for document %d (last status %s)", docID, doc.Status)
		}
		time.Sleep(250 * time.Millisecond)
	}
}

func statusCommand(c *cli.Context) error {
	ctx := context.Background()

	docID, err := argumentID(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	doc, err := db.DocumentRepository().GetDocument(ctx, docID)
	if err != nil {
		return err
	}

	fmt.Printf("Document:  %d\n", doc.Id)
	fmt.Printf("Org:       %d\n", doc.OrgId)
	fmt.Printf("Kind:      %s\n", doc.Kind)
	fmt.Printf("Filename:  %s\n", doc.Filename)
	fmt.Printf("Status:    %s\n", doc.Status)
	if doc.FailureReason != "" {
		fmt.Printf("Reason:    %s\n", doc.FailureReason)
	}
	fmt.Printf("Uploaded:  %s\n", doc.UploadedAt.Format(time.RFC3339))
	fmt.Printf("Updated:   %s\n", doc.UpdatedAt.Format(time.RFC3339))
	return nil
}

func rulesCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	orgID := core.ID(c.Uint64("org"))
	policyID := core.ID(c.Uint64("policy"))

	rules, err := db.RuleRepository().ListRulesByOrg(ctx, orgID, policyID)
	if err != nil {
		return err
	}

	if len(rules) == 0 {
		fmt.Println("No rules found.")
		return nil
	}

	for _, rule := range rules {
		fmt.Printf("[%d] (%s, %s, policy %d) %s\n",
			rule.Id, rule.Severity, rule.Category, rule.PolicyId, rule.RuleText)
	}
	return nil
}

func violationsCommand(c *cli.Context) error {
	ctx := context.Background()

	auditID, err := argumentID(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	violations, err := db.ViolationRepository().ListViolationsByAudit(ctx, core.ID(c.Uint64("org")), auditID)
	if err != nil {
		return err
	}

	if len(violations) == 0 {
		fmt.Println("No violations found.")
		return nil
	}

	for _, v := range violations {
		fmt.Printf("[%d] (%s, rule %d) %s\n", v.Id, v.Severity, v.RuleId, v.Explanation)
		if v.Remediation != "" {
			fmt.Printf("    remediation: %s\n", v.Remediation)
		}
	}
	return nil
}

func remediateCommand(c *cli.Context) error {
	ctx := context.Background()

	violationID, err := argumentID(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	service, err := db.NewRemediationService()
	if err != nil {
		return fmt.Errorf("failed to create remediation service: %w", err)
	}

	violation, err := service.Suggest(ctx, violationID)
	if err != nil {
		return fmt.Errorf("failed to draft remediation: %w", err)
	}

	fmt.Printf("Violation %d remediation:\n%s\n", violation.Id, violation.Remediation)
	return nil
}

// argumentID parses the single positional document/violation ID argument.
func argumentID(c *cli.Context) (core.ID, error) {
	if c.NArg() != 1 {
		return 0, fmt.Errorf("expected exactly one ID argument")
	}

	var id uint64
	if _, err := fmt.Sscanf(c.Args().First(), "%d", &id); err != nil || id == 0 {
		return 0, fmt.Errorf("invalid ID %q", c.Args().First())
	}
	return core.ID(id), nil
}

func parseKind(s string) (core.DocumentKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "policy":
		return core.KindPolicy, nil
	case "audit":
		return core.KindAudit, nil
	default:
		return core.KindAny, fmt.Errorf("invalid kind %q: must be policy or audit", s)
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
