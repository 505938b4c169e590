package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

const zoo = `
name: zoo
classes: [Animal, Dog, Cat, Owner, DogOwner, Robot]
object_properties: [owns]
individuals: [rex, alice]
axioms:
  - SubClassOf: [Dog, Animal]
  - SubClassOf: [Cat, Animal]
  - DisjointClasses: [Dog, Cat]
  - EquivalentClasses: [Owner, {some: [owns, Animal]}]
  - EquivalentClasses: [DogOwner, {some: [owns, Dog]}]
  - SubClassOf: [Robot, {and: [Dog, Cat]}]
  - ClassAssertion: [rex, Dog]
  - ObjectPropertyAssertion: [owns, alice, rex]
`

const broken = `
classes: [A, B]
individuals: [x]
axioms:
  - DisjointClasses: [A, B]
  - ClassAssertion: [x, {and: [A, B]}]
`

func writeKB(t *testing.T, name, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func setup(t *testing.T) {
	t.Helper()
	logger = zap.NewNop()
	configPath, journalPath, htmlOut, historyLimit = "", "", "", 0
	t.Cleanup(func() { configPath, journalPath, htmlOut, historyLimit = "", "", "", 0 })
}

func TestClassifyPrintsTaxonomy(t *testing.T) {
	setup(t)
	path := writeKB(t, "zoo.yaml", zoo)
	htmlOut = filepath.Join(t.TempDir(), "zoo.html")

	var out bytes.Buffer
	if err := classify(context.Background(), &out, path, false); err != nil {
		t.Fatalf("classify: %v", err)
	}
	text := out.String()
	for _, want := range []string{"owl:Thing\n", "  Animal\n", "    Dog\n", "    DogOwner\n", "unsatisfiable: Robot"} {
		if !strings.Contains(text, want) {
			t.Errorf("output lacks %q:\n%s", want, text)
		}
	}

	page, err := os.ReadFile(htmlOut)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(page), "DogOwner") {
		t.Errorf("report lacks DogOwner")
	}
}

func TestRealizeListsIndividuals(t *testing.T) {
	setup(t)
	path := writeKB(t, "zoo.yaml", zoo)

	var out bytes.Buffer
	if err := classify(context.Background(), &out, path, true); err != nil {
		t.Fatalf("realize: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "  - rex") {
		t.Errorf("rex not listed:\n%s", text)
	}
	if !strings.Contains(text, "  - alice") {
		t.Errorf("alice not listed:\n%s", text)
	}
}

func TestCheckReportsEveryFile(t *testing.T) {
	setup(t)
	good := writeKB(t, "zoo.yaml", zoo)
	bad := writeKB(t, "broken.yaml", broken)

	var out bytes.Buffer
	err := check(context.Background(), &out, []string{good, bad})
	if err == nil {
		t.Fatal("expected an error for the inconsistent file")
	}
	text := out.String()
	if !strings.Contains(text, good+": consistent") {
		t.Errorf("zoo not reported consistent:\n%s", text)
	}
	if !strings.Contains(text, bad+": inconsistent") {
		t.Errorf("broken not reported inconsistent:\n%s", text)
	}
}

func TestHistoryReadsJournal(t *testing.T) {
	setup(t)
	path := writeKB(t, "zoo.yaml", zoo)
	journalPath = filepath.Join(t.TempDir(), "journal.db")

	if err := classify(context.Background(), &bytes.Buffer{}, path, false); err != nil {
		t.Fatalf("classify: %v", err)
	}

	var out bytes.Buffer
	if err := history(context.Background(), &out); err != nil {
		t.Fatalf("history: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "SubClassOf") {
		t.Errorf("journal lacks the told axioms:\n%s", text)
	}
	if !strings.Contains(text, "taxonomy ") || !strings.Contains(text, "DogOwner") {
		t.Errorf("journal lacks the taxonomy snapshot:\n%s", text)
	}
}

func TestHistoryNeedsJournal(t *testing.T) {
	setup(t)
	if err := history(context.Background(), &bytes.Buffer{}); err == nil {
		t.Fatal("expected an error without a journal")
	}
}
