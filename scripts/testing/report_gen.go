// Command report_gen merges `go test -json` output with the TestPurpose
// annotations in _test.go doc comments and writes JSON and Markdown
// reports. Tests that never ran are listed as "not run" so coverage gaps
// stay visible.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const modulePath = "github.com/crewdesk/crewdesk/"

// TestMetadata holds info parsed from Go source comments
type TestMetadata struct {
	Name       string `json:"name"`
	Purpose    string `json:"purpose,omitempty"`
	Scope      string `json:"scope,omitempty"`
	Security   string `json:"security,omitempty"`
	Expected   string `json:"expected,omitempty"`
	TestCaseID string `json:"test_case_id,omitempty"`
	Package    string `json:"package"`
	Category   string `json:"category"`
	Type       string `json:"type"` // UT, SYSTEM, E2E
}

// GoTestEvent represents a single event from 'go test -json'
type GoTestEvent struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Elapsed float64   `json:"Elapsed"`
	Output  string    `json:"Output"`
}

// FinalTestResult is the merged result for a single test
type FinalTestResult struct {
	Name        string       `json:"name"`
	Status      string       `json:"status"`
	Elapsed     float64      `json:"elapsed_seconds"`
	Package     string       `json:"package"`
	Failure     string       `json:"failure_reason,omitempty"`
	Annotations TestMetadata `json:"annotations"`
}

// ReportSummary holds top-level stats
type ReportSummary struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Total       int               `json:"total"`
	Passed      int               `json:"passed"`
	Failed      int               `json:"failed"`
	Skipped     int               `json:"skipped"`
	Results     []FinalTestResult `json:"results"`
}

func main() {
	inputPath := flag.String("input", "", "Path to go test -json output file")
	outputJSON := flag.String("out-json", "", "Path for output JSON report")
	outputMD := flag.String("out-md", "", "Path for output Markdown report")
	title := flag.String("title", "Test Report", "Report title")
	filterType := flag.String("filter-type", "", "Only include tests of this type (UT, SYSTEM, E2E)")
	excludeType := flag.String("exclude-type", "", "Exclude tests of this type")
	flag.Parse()

	if *inputPath == "" || *outputJSON == "" || *outputMD == "" {
		fmt.Println("Usage: report_gen -input <json_file> -out-json <out_json> -out-md <out_md>")
		os.Exit(1)
	}

	results := parseTestOutput(*inputPath, scanMetadata())

	if *filterType != "" {
		results = filterResults(results, func(r FinalTestResult) bool {
			return strings.EqualFold(r.Annotations.Type, *filterType)
		})
	}
	if *excludeType != "" {
		results = filterResults(results, func(r FinalTestResult) bool {
			return !strings.EqualFold(r.Annotations.Type, *excludeType)
		})
	}

	summary := generateSummary(results)
	saveJSON(summary, *outputJSON)
	saveMarkdown(summary, *outputMD, *title)

	if summary.Failed > 0 {
		fmt.Printf("\n%d tests failed\n", summary.Failed)
		os.Exit(1)
	}
}

func filterResults(results []FinalTestResult, keep func(FinalTestResult) bool) []FinalTestResult {
	out := results[:0]
	for _, r := range results {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// annotationKeys maps doc-comment prefixes to metadata fields.
func (m *TestMetadata) absorb(line string) {
	for prefix, field := range map[string]*string{
		"TestPurpose:":   &m.Purpose,
		"Scope:":         &m.Scope,
		"Security:":      &m.Security,
		"Expected:":      &m.Expected,
		"Test Case ID:": &m.TestCaseID,
	} {
		if strings.HasPrefix(line, prefix) {
			*field = strings.TrimSpace(strings.TrimPrefix(line, prefix))
			return
		}
	}
}

func scanMetadata() map[string]TestMetadata {
	metadataMap := make(map[string]TestMetadata)
	fset := token.NewFileSet()

	filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, "_test.go") {
			return nil
		}
		if strings.Contains(path, "vendor/") || strings.Contains(path, ".git/") {
			return nil
		}

		node, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil
		}

		pkgPath := packagePath(path)

		for _, decl := range node.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || !strings.HasPrefix(fn.Name.Name, "Test") {
				continue
			}

			meta := TestMetadata{
				Name:     fn.Name.Name,
				Package:  pkgPath,
				Type:     testType(pkgPath),
				Category: category(pkgPath),
			}
			if fn.Doc != nil {
				for _, line := range fn.Doc.List {
					meta.absorb(strings.TrimSpace(strings.TrimPrefix(line.Text, "//")))
				}
			}
			metadataMap[pkgPath+"."+fn.Name.Name] = meta
		}
		return nil
	})

	return metadataMap
}

func packagePath(filePath string) string {
	dir := strings.TrimPrefix(filepath.Dir(filePath), "./")
	if dir == "." {
		return "main"
	}
	return modulePath + dir
}

func testType(pkgPath string) string {
	relPath := strings.TrimPrefix(pkgPath, modulePath)
	if strings.HasPrefix(relPath, "tests/") {
		parts := strings.Split(relPath, "/")
		if len(parts) > 1 {
			return strings.ToUpper(parts[1])
		}
	}
	return "UT"
}

// categoryOrder fixes the section order in the Markdown report.
var categoryOrder = []string{
	"Access Control", "Identity", "Roles", "Team", "Audit",
	"Store", "API", "SYSTEM Tests", "E2E Tests", "Other",
}

func category(pkgPath string) string {
	switch {
	case strings.Contains(pkgPath, "internal/access"):
		return "Access Control"
	case strings.Contains(pkgPath, "internal/identity"):
		return "Identity"
	case strings.Contains(pkgPath, "internal/role"):
		return "Roles"
	case strings.Contains(pkgPath, "internal/team"):
		return "Team"
	case strings.Contains(pkgPath, "internal/audit"):
		return "Audit"
	case strings.Contains(pkgPath, "internal/store"):
		return "Store"
	case strings.Contains(pkgPath, "transport/http"):
		return "API"
	}
	if t := testType(pkgPath); t != "UT" {
		return t + " Tests"
	}
	return "Other"
}

func parseTestOutput(path string, meta map[string]TestMetadata) []FinalTestResult {
	// Start from every annotated test so never-run tests surface.
	testStates := make(map[string]*FinalTestResult)
	for key, m := range meta {
		testStates[key] = &FinalTestResult{
			Name:        m.Name,
			Package:     m.Package,
			Status:      "not run",
			Annotations: m,
		}
	}

	file, err := os.Open(path)
	if err != nil {
		fmt.Printf("Error opening test output: %v\n", err)
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event GoTestEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil || event.Test == "" {
			continue
		}

		key := event.Package + "." + event.Test
		res, ok := testStates[key]
		if !ok {
			res = newResult(event, meta)
			testStates[key] = res
		}

		switch event.Action {
		case "pass":
			res.Status = "pass"
			res.Elapsed = event.Elapsed
		case "fail":
			res.Status = "fail"
			res.Elapsed = event.Elapsed
		case "skip":
			res.Status = "skip"
		case "output":
			if res.Status == "fail" || res.Status == "" {
				res.Failure += event.Output
			}
		}
	}

	var list []FinalTestResult
	for _, v := range testStates {
		list = append(list, *v)
	}
	return list
}

// newResult builds a record for a test seen in the stream but absent from
// the annotation scan. Subtests inherit the parent's annotations.
func newResult(event GoTestEvent, meta map[string]TestMetadata) *FinalTestResult {
	annotations := TestMetadata{
		Name:     event.Test,
		Package:  event.Package,
		Type:     testType(event.Package),
		Category: "Other",
	}
	if parent, _, isSub := strings.Cut(event.Test, "/"); isSub {
		if pm, found := meta[event.Package+"."+parent]; found {
			annotations = pm
			annotations.Name = event.Test
			annotations.Purpose = pm.Purpose + " (Subtest: " + event.Test + ")"
		}
	}
	return &FinalTestResult{
		Name:        event.Test,
		Package:     event.Package,
		Annotations: annotations,
	}
}

func generateSummary(results []FinalTestResult) ReportSummary {
	summary := ReportSummary{
		GeneratedAt: time.Now(),
		Results:     results,
	}
	for _, r := range results {
		summary.Total++
		switch r.Status {
		case "pass":
			summary.Passed++
		case "fail":
			summary.Failed++
		case "skip":
			summary.Skipped++
		}
	}
	return summary
}

func saveJSON(summary ReportSummary, path string) {
	data, _ := json.MarshalIndent(summary, "", "  ")
	os.MkdirAll(filepath.Dir(path), 0755)
	os.WriteFile(path, data, 0644)
}

var statusIcons = map[string]string{
	"pass":    "✅",
	"fail":    "❌",
	"skip":    "⏭️",
	"not run": "⚪",
}

func saveMarkdown(summary ReportSummary, path string, title string) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Crewdesk %s\n\n", title))
	sb.WriteString(fmt.Sprintf("**Generated:** %s  \n", summary.GeneratedAt.Format("2006-01-02 15:04:05 MST")))

	status := "✅ PASSED"
	if summary.Failed > 0 {
		status = "❌ FAILED"
	}
	sb.WriteString(fmt.Sprintf("**Status:** %s\n\n", status))

	rate := 0.0
	if summary.Total > 0 {
		rate = float64(summary.Passed) / float64(summary.Total) * 100
	}
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Total | Passed | Failed | Skipped | Pass Rate |\n")
	sb.WriteString("|-------|--------|--------|---------|-----------|\n")
	sb.WriteString(fmt.Sprintf("| %d | %d | %d | %d | %.1f%% |\n\n",
		summary.Total, summary.Passed, summary.Failed, summary.Skipped, rate))

	categories := make(map[string][]FinalTestResult)
	for _, r := range summary.Results {
		cat := r.Annotations.Category
		if cat == "" {
			cat = "Other"
		}
		categories[cat] = append(categories[cat], r)
	}

	sb.WriteString("## Test Results by Category\n\n")
	for _, cat := range categoryOrder {
		tests := categories[cat]
		if len(tests) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("### %s\n\n", cat))
		sb.WriteString("| ID | Test Name | Status | Purpose | Security |\n")
		sb.WriteString("|----|-----------|--------|---------|----------|\n")
		for _, t := range tests {
			security := t.Annotations.Security
			if security != "" {
				security = "**" + security + "**"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				t.Annotations.TestCaseID, t.Name, statusIcons[t.Status], t.Annotations.Purpose, security))
		}
		sb.WriteString("\n")
	}

	if summary.Failed > 0 {
		sb.WriteString("## Failure Details\n\n")
		for _, t := range summary.Results {
			if t.Status == "fail" {
				sb.WriteString(fmt.Sprintf("### %s (%s)\n", t.Name, t.Package))
				sb.WriteString("```\n")
				sb.WriteString(t.Failure)
				sb.WriteString("\n```\n\n")
			}
		}
	}

	sb.WriteString("---\n*Report generated by Crewdesk Test Infrastructure*\n")

	os.MkdirAll(filepath.Dir(path), 0755)
	os.WriteFile(path, []byte(sb.String()), 0644)
}
