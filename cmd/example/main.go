// Command example runs the full translation lifecycle against in-memory
// bindings: a markdown-sourced document is requested for translation, the
// vendor fake completes its job, and the result is refreshed and committed.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/adrg/frontmatter"

	tms "github.com/goliatone/go-tms"
	"github.com/goliatone/go-tms/internal/contentstore"
	"github.com/goliatone/go-tms/internal/vendorcontent"
	"github.com/goliatone/go-tms/pkg/interfaces"
	"github.com/goliatone/go-tms/pkg/testsupport"
)

const sourceMarkdown = `---
id: post-hello
type: post
revision: rev-1
title: Hello
---
Welcome to the translation demo.

This body becomes a keyed block list.
`

type docMatter struct {
	ID       string `yaml:"id"`
	Type     string `yaml:"type"`
	Revision string `yaml:"revision"`
	Title    string `yaml:"title"`
}

// documentFromMarkdown parses frontmatter plus body into the tree shape the
// module works with: one keyed block per paragraph.
func documentFromMarkdown(raw string) (interfaces.Document, error) {
	var meta docMatter
	body, err := frontmatter.Parse(strings.NewReader(raw), &meta)
	if err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	blocks := []any{}
	for i, paragraph := range strings.Split(strings.TrimSpace(string(body)), "\n\n") {
		blocks = append(blocks, map[string]any{
			"_key":  fmt.Sprintf("b%d", i+1),
			"_type": "block",
			"text":  strings.TrimSpace(paragraph),
		})
	}
	return interfaces.Document{
		"_id":   meta.ID,
		"_type": meta.Type,
		"_rev":  meta.Revision,
		"title": meta.Title,
		"body":  blocks,
	}, nil
}

func main() {
	ctx := context.Background()

	source, err := documentFromMarkdown(sourceMarkdown)
	if err != nil {
		log.Fatalf("load source: %v", err)
	}

	repo := contentstore.NewMemory()
	if err := repo.Seed(source); err != nil {
		log.Fatalf("seed repository: %v", err)
	}

	vendor := testsupport.NewVendorFake()
	adapter := testsupport.NewAdapterFake(map[string]string{
		"en": "en-US",
		"fr": "fr-FR",
	})
	adapter.Seeder = repo

	cfg := tms.DefaultConfig()
	cfg.DefaultLanguage = "en"
	cfg.Vendor.DefaultTemplateID = "template-default"
	cfg.Translations.TranslatableTypes = []string{"post"}

	module, err := tms.New(cfg,
		tms.WithVendorClient(vendor),
		tms.WithDocumentAdapter(adapter),
		tms.WithContentRepository(repo),
		tms.WithCredentials(interfaces.VendorCredentials{APIKey: "demo"}),
	)
	if err != nil {
		log.Fatalf("build module: %v", err)
	}
	defer module.Close()

	md, err := module.RequestTranslation(ctx, tms.Request{
		Source:          tms.DocumentRef{ID: "post-hello", Type: "post", Revision: "rev-1", Language: "en"},
		Paths:           []tms.Path{tms.NewPath(tms.FieldSegment("title")), tms.NewPath(tms.FieldSegment("body"))},
		TargetLanguages: []string{"fr"},
	})
	if err != nil {
		log.Fatalf("request translation: %v", err)
	}
	fmt.Printf("requested %s status=%s project=%s\n", md.Key, md.Status, md.ProjectID)

	for _, result := range module.ClassifyStaleness(ctx, source, []string{"fr"}) {
		fmt.Printf("staleness %s: %s\n", result.Language, result.Status)
	}

	// Simulate the vendor translating the job, then completing it.
	translated := testsupport.CloneDocument(source)
	translated["title"] = "Bonjour"
	payload, err := vendorcontent.Encode(translated, md.Paths)
	if err != nil {
		log.Fatalf("encode translated payload: %v", err)
	}
	target := md.Target("fr")
	vendor.SetPreview(md.ProjectID, target.Jobs[0].ID, payload)

	md, err = module.HandleVendorEvent(ctx, tms.Event{
		Kind:           tms.EventJobCompleted,
		TranslationKey: md.Key,
		ProjectID:      md.ProjectID,
		JobID:          target.Jobs[0].ID,
		Status:         "COMPLETED",
	})
	if err != nil {
		log.Fatalf("handle vendor event: %v", err)
	}
	fmt.Printf("after completion status=%s\n", md.Status)

	md, err = module.CommitTranslation(ctx, md.Key)
	if err != nil {
		log.Fatalf("commit translation: %v", err)
	}
	fmt.Printf("committed at %s\n", md.CommittedAt.Format("2006-01-02 15:04:05"))

	docs, err := repo.FetchByIDs(ctx, []string{"post-hello-fr"})
	if err != nil || len(docs) == 0 {
		log.Fatalf("fetch translated document: %v", err)
	}
	pretty, _ := json.MarshalIndent(docs[0], "", "  ")
	fmt.Printf("translated document:\n%s\n", pretty)
}
