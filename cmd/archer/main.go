// Command archer ingests a corpus into an index directory and answers
// queries against it.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/corpusindex/archer"
)

func main() {
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "ingest":
		err = runIngest(args[1:])
	case "query":
		err = runQuery(args[1:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  archer ingest <index-dir> <corpus-file>")
	fmt.Fprintln(os.Stderr, "  archer query <index-dir> <query-string>")
}

func runIngest(args []string) error {
	if len(args) != 2 {
		usage()
		os.Exit(2)
	}
	dir, corpusPath := args[0], args[1]

	opts, err := archer.LoadOptionsYAML(dir + "/config.yaml")
	if err != nil {
		return err
	}
	idx, err := archer.Create(dir, opts)
	if err != nil {
		return err
	}

	f, err := os.Open(corpusPath)
	if err != nil {
		return fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	count := 0
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		lex := archer.NewDefaultLexer(line)
		if _, err := idx.AddDocument(lex); err != nil {
			return fmt.Errorf("index document %d: %w", count, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read corpus: %w", err)
	}

	if err := idx.Close(); err != nil {
		return err
	}
	slog.Info("ingest complete", "documents", count, "dir", dir)
	return nil
}

func runQuery(args []string) error {
	if len(args) != 2 {
		usage()
		os.Exit(2)
	}
	dir, queryStr := args[0], args[1]

	idx, err := archer.Open(dir)
	if err != nil {
		return err
	}
	defer idx.Release()

	q := archer.NewParser().Parse(queryStr)
	eval := archer.NewEvaluator(idx)
	matches, err := eval.Evaluate(q)
	if err != nil {
		return err
	}

	for _, m := range matches {
		fmt.Printf("%d\t%.4f\n", m.DocID, m.Score)
	}
	return nil
}
