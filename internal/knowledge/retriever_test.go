package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/compass-pm/compass/pkg/models"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "kb.db"))
	if err != nil {
		t.Fatalf("failed to open knowledge store: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate knowledge store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func addDoc(t *testing.T, store *Store, collection, topic, title, body string) {
	t.Helper()
	err := store.Create(&Document{
		ID:         "doc-" + strings.ReplaceAll(title, " ", "-"),
		Collection: collection,
		Topic:      topic,
		Title:      title,
		Body:       body,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to add document: %v", err)
	}
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	store := setupTestStore(t)
	r := NewRetriever(store, nil)

	res, err := r.Retrieve(context.Background(), models.AgentDiagnosis, "conversion dropped", "conversion", 5)
	if err != nil {
		t.Fatalf("Retrieve on empty index should not error: %v", err)
	}
	if res.Summary != "" {
		t.Errorf("Summary = %q, want empty", res.Summary)
	}
	if len(res.Hits) != 0 {
		t.Errorf("Hits = %v, want none", res.Hits)
	}
}

func TestRetrieve_ScopedToAgentCollections(t *testing.T) {
	store := setupTestStore(t)
	addDoc(t, store, CollectionIndustry, "", "Checkout benchmarks", "Industry checkout conversion benchmarks hover near 3 percent.")
	addDoc(t, store, CollectionIntel, "", "Competitor checkout", "A competitor rebuilt their checkout flow last quarter.")

	r := NewRetriever(store, nil)

	// Diagnosis sees industry docs but not competitive intel.
	res, err := r.Retrieve(context.Background(), models.AgentDiagnosis, "checkout conversion", "general", 5)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	for _, h := range res.Hits {
		if h.Collection == CollectionIntel {
			t.Errorf("diagnosis retrieval leaked intel collection: %+v", h)
		}
	}
	if len(res.Hits) == 0 {
		t.Fatal("expected at least one industry hit")
	}

	// Competitive intel sees the intel collection.
	res, err = r.Retrieve(context.Background(), models.AgentCompetitiveIntel, "checkout", "general", 5)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	found := false
	for _, h := range res.Hits {
		if h.Collection == CollectionIntel {
			found = true
		}
	}
	if !found {
		t.Error("expected intel hit for competitive-intel agent")
	}
}

func TestRetrieve_TopicContext(t *testing.T) {
	store := setupTestStore(t)
	addDoc(t, store, CollectionCompany, "pricing", "Pricing history", "We ran three pricing experiments in the last year.")

	r := NewRetriever(store, nil)
	res, err := r.Retrieve(context.Background(), models.AgentStrategy, "unrelated words zzz", "pricing", 5)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(res.Structured) != 1 {
		t.Fatalf("Structured = %v, want one topical entry", res.Structured)
	}
	if !strings.Contains(res.Summary, "Pricing history") {
		t.Errorf("summary should mention topical doc, got %q", res.Summary)
	}
}

func TestFTSQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"dedup and lowercase", "Conversion conversion rate", `"conversion" OR "rate"`},
		{"short words dropped", "is it up", ""},
		{"punctuation stripped", "what's going on?", `"what" OR "going"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ftsQuery(tt.in); got != tt.want {
				t.Errorf("ftsQuery(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	store := setupTestStore(t)

	path := filepath.Join(t.TempDir(), "docs.yaml")
	content := `documents:
  - collection: company_context
    topic: conversion
    title: Funnel overview
    body: Our funnel loses most users between cart and payment.
  - collection: industry_context
    title: Benchmark digest
    body: Median e-commerce conversion sits around 2 to 3 percent.
`
	if err := writeFile(path, content); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	n, err := LoadFile(store, path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if n != 2 {
		t.Errorf("loaded = %d, want 2", n)
	}

	count, _ := store.Count()
	if count != 2 {
		t.Errorf("stored = %d, want 2", count)
	}
}

func TestLoadFile_UnknownCollection(t *testing.T) {
	store := setupTestStore(t)

	path := filepath.Join(t.TempDir(), "docs.yaml")
	content := `documents:
  - collection: not_a_collection
    title: Bad doc
    body: Should fail validation.
`
	if err := writeFile(path, content); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	if _, err := LoadFile(store, path); err == nil {
		t.Error("expected error for unknown collection")
	}
}
