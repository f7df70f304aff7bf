package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"cull-os/cab/internal/lexer"
	"cull-os/cab/internal/noder"
)

// newCheckCmd builds the "check" command group; "check syntax" is its one
// subcommand.
func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run fixture-based checks",
	}
	cmd.AddCommand(newCheckSyntaxCmd())
	return cmd
}

func newCheckSyntaxCmd() *cobra.Command {
	var (
		dir       string
		failFast  bool
		overwrite bool
		watch     bool
	)

	cmd := &cobra.Command{
		Use:   "syntax",
		Short: "Parse every.cab fixture and compare its CST dump to a golden.expect file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sweepFixtures(dir, failFast, overwrite); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return watchFixtures(cmd, dir, failFast, overwrite)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "testdata/syntax", "fixture directory to walk")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop at the first mismatch")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "write the rendered CST dump as the new.expect file instead of comparing")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-run the sweep whenever a fixture under --dir changes")

	return cmd
}

const fixtureExt = ".cab"
const expectExt = ".expect"

// sweepFixtures walks dir for every *.cab file, parses it, renders the
// debug form of the resulting CST, and either overwrites the matching
// *.expect file or compares byte-exact against it. It returns a
// non-nil error - and a nonzero process exit, via cobra's error path - if
// any checked fixture mismatches; with failFast the sweep stops at the first
// mismatch and still returns that error.
func sweepFixtures(dir string, failFast, overwrite bool) error {
	var fixtures []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, fixtureExt) {
			fixtures = append(fixtures, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", dir, err)
	}

	failures := 0
	for _, path := range fixtures {
		ok, err := checkFixture(path, overwrite)
		if err != nil {
			return err
		}
		if !ok {
			failures++
			if failFast {
				break
			}
		}
	}

	fmt.Printf("%d fixture(s) checked, %d failed\n", len(fixtures), failures)
	if failures > 0 {
		return fmt.Errorf("%d fixture(s) failed", failures)
	}
	return nil
}

// checkFixture parses the single fixture at path and reports whether its
// rendered CST dump matches (or, under overwrite, was written to) the
// sibling.expect file.
func checkFixture(path string, overwrite bool) (bool, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}

	toks := lexer.Tokenize(string(src))
	parse := noder.NewParseOracle().Parse(toks)
	dump := parse.Root.Dump()

	expectPath := strings.TrimSuffix(path, fixtureExt) + expectExt

	if overwrite {
		if err := os.WriteFile(expectPath, []byte(dump), 0o644); err != nil {
			return false, fmt.Errorf("writing %s: %w", expectPath, err)
		}
		fmt.Printf("overwrote %s\n", expectPath)
		return true, nil
	}

	want, err := os.ReadFile(expectPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("FAIL %s: no %s (run with --overwrite to create it)\n", path, expectPath)
			return false, nil
		}
		return false, fmt.Errorf("reading %s: %w", expectPath, err)
	}

	if dump == string(want) {
		fmt.Printf("ok   %s\n", path)
		return true, nil
	}

	fmt.Printf("FAIL %s\n", path)
	printDiff(expectPath, dump)
	return false, nil
}

// printDiff shells out to the external diff tool between the golden file
// on disk and the freshly rendered dump (written to a temp file).
func printDiff(expectPath, got string) {
	tmp, err := os.CreateTemp("", "cab-check-syntax-*.expect")
	if err != nil {
		fmt.Fprintf(os.Stderr, "  (could not create temp file for diff: %v)\n", err)
		return
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(got); err != nil {
		tmp.Close()
		fmt.Fprintf(os.Stderr, "  (could not write temp file for diff: %v)\n", err)
		return
	}
	tmp.Close()

	out, err := exec.Command("diff", "-u", expectPath, tmp.Name()).CombinedOutput()
	if len(out) > 0 {
		fmt.Println(string(out))
	}
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			fmt.Fprintf(os.Stderr, "  (diff invocation failed: %v)\n", err)
		}
	}
}

// watchFixtures re-runs the fixture sweep whenever a .cab or .expect file
// under dir changes.
func watchFixtures(cmd *cobra.Command, dir string, failFast, overwrite bool) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "watching %s for changes (ctrl-c to stop)\n", dir)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, fixtureExt) && !strings.HasSuffix(event.Name, expectExt) {
				continue
			}
			if err := sweepFixtures(dir, failFast, overwrite); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		}
	}
}
